package board

import (
	"fmt"
	"strings"

	"github.com/ruteri/zkkb/interfaces"
)

const positionDigits = "0123456789abcdefghijklmnopqrstuvwxyz"

// KeyBetween returns an order key strictly between a and b. An empty a means
// "before everything", an empty b means "after everything". Keys use the
// digits 0-9a-z and never end in '0', which guarantees there is always room
// for another key on either side.
func KeyBetween(a, b string) (string, error) {
	if err := validatePosition(a); err != nil {
		return "", err
	}
	if err := validatePosition(b); err != nil {
		return "", err
	}
	if b != "" && a >= b {
		return "", fmt.Errorf("%w: order key %q is not before %q", interfaces.ErrInvalidInput, a, b)
	}
	return midpoint(a, b), nil
}

func validatePosition(key string) error {
	for i := 0; i < len(key); i++ {
		if strings.IndexByte(positionDigits, key[i]) < 0 {
			return fmt.Errorf("%w: order key %q has invalid character %q", interfaces.ErrInvalidInput, key, key[i])
		}
	}
	if strings.HasSuffix(key, "0") {
		return fmt.Errorf("%w: order key %q ends in 0", interfaces.ErrInvalidInput, key)
	}
	return nil
}

func digitAt(s string, i int) byte {
	if i < len(s) {
		return s[i]
	}
	return positionDigits[0]
}

func suffix(s string, n int) string {
	if n >= len(s) {
		return ""
	}
	return s[n:]
}

// midpoint assumes a < b (or b == "") and neither ends in '0'.
func midpoint(a, b string) string {
	if b != "" {
		n := 0
		for n < len(b) && digitAt(a, n) == b[n] {
			n++
		}
		if n > 0 {
			return b[:n] + midpoint(suffix(a, n), b[n:])
		}
	}

	lo := 0
	if a != "" {
		lo = strings.IndexByte(positionDigits, a[0])
	}
	hi := len(positionDigits)
	if b != "" {
		hi = strings.IndexByte(positionDigits, b[0])
	}

	if hi-lo > 1 {
		return string(positionDigits[(lo+hi)/2])
	}
	if b != "" && len(b) > 1 {
		return b[:1]
	}
	return string(positionDigits[lo]) + midpoint(suffix(a, 1), "")
}
