// Package encoding provides text and path helpers for RMesh string fields.
package encoding

import (
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// ANSIToUTF8 converts single-byte ANSI (Latin-1) bytes to a UTF-8 string.
// Every byte maps to exactly one rune; no validation is performed.
func ANSIToUTF8(data []byte) string {
	if isASCII(data) {
		return string(data)
	}
	result, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), data)
	if err != nil {
		// Return as-is if decoding fails
		return string(data)
	}
	return string(result)
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}
