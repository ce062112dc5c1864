package domain

import (
	"sort"
	"strconv"
	"strings"
)

// Seat is a parsed seat code such as "23J".
type Seat struct {
	Row    int
	Letter byte
}

func (s Seat) String() string {
	return strconv.Itoa(s.Row) + string(s.Letter)
}

// ParseSeat parses a seat code made of a positive row number (no leading
// zeros) followed by a single letter. Surrounding spaces are ignored and the
// letter is upper-cased, so "  23j" and "23J" name the same seat.
func ParseSeat(code string) (Seat, bool) {
	code = strings.TrimSpace(code)
	if len(code) < 2 {
		return Seat{}, false
	}

	letter := code[len(code)-1]
	if letter >= 'a' && letter <= 'z' {
		letter -= 'a' - 'A'
	}
	if letter < 'A' || letter > 'Z' {
		return Seat{}, false
	}

	digits := code[:len(code)-1]
	if digits[0] == '0' {
		return Seat{}, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return Seat{}, false
		}
	}

	row, err := strconv.Atoi(digits)
	if err != nil || row <= 0 {
		return Seat{}, false
	}

	return Seat{Row: row, Letter: letter}, true
}

// CanonicalSeat returns the canonical form of code, or false when code is not
// syntactically a seat code.
func CanonicalSeat(code string) (string, bool) {
	s, ok := ParseSeat(code)
	if !ok {
		return "", false
	}
	return s.String(), true
}

// SortSeats orders seat codes by row, then by letter. Codes that do not parse
// sort after valid ones, lexically.
func SortSeats(codes []string) {
	sort.SliceStable(codes, func(i, j int) bool {
		a, okA := ParseSeat(codes[i])
		b, okB := ParseSeat(codes[j])
		switch {
		case okA && okB:
			if a.Row != b.Row {
				return a.Row < b.Row
			}
			return a.Letter < b.Letter
		case okA != okB:
			return okA
		default:
			return codes[i] < codes[j]
		}
	})
}
