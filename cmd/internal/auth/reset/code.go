package reset

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// CodeDigits is the length of a reset code.
const CodeDigits = 6

var codeSpace = big.NewInt(1_000_000)

// newCode returns a uniformly random zero-padded 6-digit code.
func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
