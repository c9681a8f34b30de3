package randstr

import (
	"bytes"
	"testing"
)

func TestNewLenLengthAndCharset(t *testing.T) {
	for _, length := range []int{0, 1, 16, 32, 100} {
		got := NewLen(length)
		if len(got) != length {
			t.Fatalf("NewLen(%d) returned %d characters", length, len(got))
		}

		for i := 0; i < len(got); i++ {
			if !bytes.ContainsRune(Chars, rune(got[i])) {
				t.Fatalf("NewLen(%d) produced %q outside the charset", length, got[i])
			}
		}
	}
}

func TestNewCodeIsUnique(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 1000; i++ {
		code := NewCode()
		if len(code) != CodeLen {
			t.Fatalf("code length = %d, want %d", len(code), CodeLen)
		}

		if seen[code] {
			t.Fatalf("duplicate code %q after %d draws", code, i)
		}

		seen[code] = true
	}
}

func TestNewLenCharsRejectsBadCharset(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for single-character charset")
		}
	}()

	NewLenChars(8, []byte("a"))
}
