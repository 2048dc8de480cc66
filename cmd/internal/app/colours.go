package app

import "strconv"

const (
	ansiReset   = "\x1b[0m"
	ansiDim     = "\x1b[2m"
	ansiBright  = "\x1b[1m"
	ansiRed     = "\x1b[31m"
	ansiGreen   = "\x1b[32m"
	ansiYellow  = "\x1b[33m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
)

func colorizeHTTPMethod(method string, color bool) string {
	if !color {
		return method
	}
	switch method {
	case "GET":
		return ansiGreen + method + ansiReset
	case "POST":
		return ansiBlue + method + ansiReset
	case "PUT", "PATCH":
		return ansiYellow + method + ansiReset
	case "DELETE":
		return ansiRed + method + ansiReset
	default:
		return ansiMagenta + method + ansiReset
	}
}

func colorizeStatusCode(status int, color bool) string {
	s := strconv.Itoa(status)
	if !color {
		return s
	}
	switch {
	case status >= 500:
		return ansiRed + s + ansiReset
	case status >= 400:
		return ansiYellow + s + ansiReset
	case status >= 300:
		return ansiCyan + s + ansiReset
	case status >= 200:
		return ansiGreen + s + ansiReset
	default:
		return ansiDim + s + ansiReset
	}
}

func colorizeStatusClass(class string, color bool) string {
	if !color {
		return class
	}
	switch class {
	case "5xx":
		return ansiRed + class + ansiReset
	case "4xx":
		return ansiYellow + class + ansiReset
	case "3xx":
		return ansiCyan + class + ansiReset
	case "2xx":
		return ansiGreen + class + ansiReset
	default:
		return ansiDim + class + ansiReset
	}
}

func colorizeDurationMS(ms int64, color bool) string {
	s := strconv.FormatInt(ms, 10) + "ms"
	if !color {
		return s
	}
	switch {
	case ms >= 1000:
		return ansiRed + s + ansiReset
	case ms >= 250:
		return ansiYellow + s + ansiReset
	default:
		return ansiGreen + s + ansiReset
	}
}

func colorizeResult(result string, color bool) string {
	if !color {
		return result
	}
	switch result {
	case "server_error":
		return ansiRed + result + ansiReset
	case "client_error":
		return ansiYellow + result + ansiReset
	case "redirect":
		return ansiCyan + result + ansiReset
	case "success":
		return ansiGreen + result + ansiReset
	default:
		return ansiDim + result + ansiReset
	}
}