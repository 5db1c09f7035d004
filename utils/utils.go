package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"unsafe"
)

type Key string

// B2S converts a byte slice to a string without copying.
// The input must not be mutated afterwards.
func B2S(b []byte) string {
	return *(*string)(unsafe.Pointer(&b))
}

// S2B converts a string to a byte slice without copying.
// The output must not be mutated.
func S2B(s string) (b []byte) {
	return *(*[]byte)(unsafe.Pointer(
		&struct {
			string
			Cap int
		}{s, len(s)},
	))
}

// GenerateRandomString returns a random hex string of n characters.
func GenerateRandomString(n int) (string, error) {
	b := make([]byte, (n+1)/2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b)[:n], nil
}

// GenerateReceiptToken returns the voter's ballot receipt,
// 6 uppercase hex characters from 3 random bytes.
func GenerateReceiptToken() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

// IsHexID reports whether s looks like a canonical object id,
// 24 lowercase/uppercase hex characters.
func IsHexID(s string) bool {
	if len(s) != 24 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F' {
			continue
		}
		return false
	}
	return true
}
