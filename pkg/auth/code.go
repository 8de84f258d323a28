package auth

import (
	"crypto/rand"
)

// CodeLength is the length of generated verification codes.
const CodeLength = 6

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateCode returns a fixed-length uppercase alphanumeric verification
// code drawn from crypto/rand. Rejection sampling keeps the distribution
// uniform over the alphabet.
func GenerateCode() (string, error) {
	// Largest multiple of len(codeAlphabet) below 256
	max := byte(256 - 256%len(codeAlphabet))

	code := make([]byte, 0, CodeLength)
	buf := make([]byte, CodeLength*2)
	for len(code) < CodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= max {
				continue
			}
			code = append(code, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(code) == CodeLength {
				break
			}
		}
	}
	return string(code), nil
}
