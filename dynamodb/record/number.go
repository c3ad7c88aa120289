package record

import (
	"bytes"
	"math/big"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
)

// Numeric is a constraint for all numeric types.
type Numeric interface {
	constraints.Integer | constraints.Float
}

// FormatNumber renders v as a decimal literal.
func FormatNumber[T Numeric](v T) string {
	switch x := any(v).(type) {
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	if v < 0 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatUint(uint64(v), 10)
}

var decimalPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// IsNumber reports whether s is a decimal number literal.
// Surrounding whitespace, hex, NaN and infinities are rejected.
func IsNumber(s string) bool {
	return decimalPattern.MatchString(s)
}

// CanonicalNumber rewrites a decimal literal in JSON number form without
// changing its value, so ".5" becomes "0.5", "+2" becomes "2" and "5." becomes "5".
func CanonicalNumber(s string) (string, bool) {
	if !IsNumber(s) {
		return "", false
	}
	var sign string
	switch s[0] {
	case '-':
		sign, s = "-", s[1:]
	case '+':
		s = s[1:]
	}
	mant, exp := s, ""
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		mant, exp = s[:i], s[i:]
	}
	whole, frac, _ := strings.Cut(mant, ".")
	whole = strings.TrimLeft(whole, "0")
	if whole == "" {
		whole = "0"
	}
	out := sign + whole
	if frac != "" {
		out += "." + frac
	}
	return out + exp, true
}

func parseRat(s string) (*big.Rat, bool) {
	if !IsNumber(s) {
		return nil, false
	}
	return new(big.Rat).SetString(s)
}

// CompareNumbers orders two decimal literals by value. Literals that fail to
// parse sort after all numbers, by text.
func CompareNumbers(a, b string) int {
	ra, okA := parseRat(a)
	rb, okB := parseRat(b)
	switch {
	case okA && okB:
		return ra.Cmp(rb)
	case okA:
		return -1
	case okB:
		return 1
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// SortedStrings returns the distinct values in ascending order.
func SortedStrings(values []string) []string {
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}

// SortedNumbers returns the numerically distinct values in ascending order.
// Of several literals with the same value, the first one wins.
func SortedNumbers(values []string) []string {
	out := slices.Clone(values)
	slices.SortStableFunc(out, CompareNumbers)
	return slices.CompactFunc(out, func(a, b string) bool {
		return CompareNumbers(a, b) == 0
	})
}

// SortedBinaries returns the distinct values in ascending byte order.
func SortedBinaries(values [][]byte) [][]byte {
	out := slices.Clone(values)
	slices.SortFunc(out, bytes.Compare)
	return slices.CompactFunc(out, bytes.Equal)
}
