// Package address resolves spreadsheet-style column addresses.
//
// Addresses are bijective base-26 numerals with no zero digit: A=1 … Z=26,
// AA=27, AZ=52, ZZ=702, ZZX=18276.
package address

import (
	"math"
	"strconv"

	"github.com/csvsub/runtime/internal/errhandling"
)

const radix = 26

// Resolve converts a case-insensitive letter address to its 1-based column number.
func Resolve(label string) (int, error) {
	if label == "" {
		return 0, errhandling.Newf(errhandling.KindInvalidAddress, "empty column address")
	}

	n := 0
	for i := 0; i < len(label); i++ {
		v, ok := letterValue(label[i])
		if !ok {
			return 0, errhandling.Newf(errhandling.KindInvalidAddress,
				"%q is not a convertible alphabet string", label)
		}
		if n > (math.MaxInt-radix)/radix {
			return 0, errhandling.Newf(errhandling.KindInvalidAddress,
				"column address %q is too long", label)
		}
		n = n*radix + v
	}
	return n, nil
}

// Index resolves label and returns the 0-based column index.
func Index(label string) (int, error) {
	n, err := Resolve(label)
	if err != nil {
		return 0, err
	}
	return n - 1, nil
}

// ParseColumn turns a column selector into a 0-based index. A digit string is
// taken literally; a letter string is resolved as an address.
func ParseColumn(selector string) (int, error) {
	if IsNumeric(selector) {
		idx, err := strconv.Atoi(selector)
		if err != nil {
			return 0, errhandling.New(errhandling.KindInvalidColumnMarking,
				"column selector "+strconv.Quote(selector)+" is out of range", err)
		}
		return idx, nil
	}

	idx, err := Index(selector)
	if err != nil {
		return 0, errhandling.New(errhandling.KindInvalidColumnMarking,
			"column selector "+strconv.Quote(selector)+" is neither an integer nor a column address", err)
	}
	return idx, nil
}

// Label returns the letter address of the 1-based column n, or "" when n < 1.
func Label(n int) string {
	var buf []byte
	for n > 0 {
		n--
		buf = append(buf, byte('A'+n%radix))
		n /= radix
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

// IsNumeric reports whether s is a non-empty string of ASCII digits.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func letterValue(c byte) (int, bool) {
	switch {
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 1, true
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 1, true
	default:
		return 0, false
	}
}
