// Package randstr generates cryptographically random strings over a fixed
// charset, used for activation codes and password-reset codes. Sampling uses
// rejection to avoid modulo bias.
package randstr

import "crypto/rand"

// Chars is the charset used for generated codes. It excludes characters that
// are easy to confuse when read out of an email (0/O, 1/l/I).
var Chars = []byte("ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789")

const (
	// CodeLen is the length of activation and reset codes, ~187 bits over
	// the 57-character charset.
	CodeLen = 32

	byteRange = 256
)

// NewCode returns a fresh activation/reset code.
func NewCode() string {
	return NewLen(CodeLen)
}

// NewLen returns a random string of the given length over Chars.
func NewLen(length int) string {
	return NewLenChars(length, Chars)
}

// NewLenChars returns a random string of the given length over the given
// charset (2..256 distinct bytes).
func NewLenChars(length int, chars []byte) string {
	if length == 0 {
		return ""
	}

	clen := len(chars)
	if clen < 2 || clen > byteRange {
		panic("randstr: charset must contain 2..256 bytes")
	}

	// Largest byte value that maps onto the charset without bias.
	maxByte := byteRange - byteRange%clen

	out := make([]byte, 0, length)
	buf := make([]byte, length)

	for {
		if _, err := rand.Read(buf); err != nil {
			panic("randstr: reading random bytes: " + err.Error())
		}

		for _, b := range buf {
			if int(b) >= maxByte {
				continue
			}

			out = append(out, chars[int(b)%clen])
			if len(out) == length {
				return string(out)
			}
		}
	}
}
