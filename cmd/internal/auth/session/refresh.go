package session

import (
	"reelist/cmd/security/token"
)

func newOpaqueRefreshToken(nBytes int) (plain string, hashHex string, err error) {
	plain, err = token.NewOpaqueToken(nBytes)
	if err != nil {
		return "", "", err
	}

	hashHex = token.HashRefreshTokenHex(plain) // 64 hex chars

	return plain, hashHex, nil
}

func hashRefreshTokenHex(plain string) string {
	return token.HashRefreshTokenHex(plain)
}
