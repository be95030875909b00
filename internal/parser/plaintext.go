package parser

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// parsePlainText validates encoding and normalizes line endings.
func parsePlainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("invalid UTF-8")
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return text, nil
}
