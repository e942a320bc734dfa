// Package datfile parses the exchange's pipe-delimited daily session files.
package datfile

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	zeroLiterals    = map[string]bool{"-": true, "": true, "N/D": true, "0": true, "0,00": true, "0.00": true}
	currencyMarkers = []string{"Bs.", "bs.", "Bs", "$"}
	epsilon         = decimal.New(1, -4)
)

// ParseNumber converts exchange formatted numbers ("6.230,00", "1,250.5",
// "Bs. 12,5") to float64. Anything unparseable is 0.
func ParseNumber(text string) float64 {
	d, ok := parseDecimal(text)
	if !ok {
		return 0
	}
	return d.InexactFloat64()
}

// ParseQuantity is ParseNumber truncated to an integer.
func ParseQuantity(text string) int64 {
	d, ok := parseDecimal(text)
	if !ok {
		return 0
	}
	return d.IntPart()
}

func parseDecimal(text string) (decimal.Decimal, bool) {
	t := strings.TrimSpace(text)
	if zeroLiterals[t] {
		return decimal.Zero, false
	}

	for _, marker := range currencyMarkers {
		t = strings.ReplaceAll(t, marker, "")
	}
	t = strings.TrimSpace(t)

	hasDot := strings.Contains(t, ".")
	hasComma := strings.Contains(t, ",")
	switch {
	case hasDot && hasComma:
		if commaIsDecimal(t) {
			t = strings.ReplaceAll(t, ".", "")
			t = strings.ReplaceAll(t, ",", ".")
		} else {
			t = strings.ReplaceAll(t, ",", "")
		}
	case hasComma:
		if commaIsDecimal(t) {
			t = strings.ReplaceAll(t, ",", ".")
		} else {
			t = strings.ReplaceAll(t, ",", "")
		}
	}

	t = strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, t)
	if t == "" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(t)
	if err != nil {
		return decimal.Zero, false
	}
	if d.Abs().LessThan(epsilon) {
		return decimal.Zero, false
	}
	return d, true
}

// commaIsDecimal reports whether the group after the last comma has exactly two digits.
func commaIsDecimal(t string) bool {
	idx := strings.LastIndex(t, ",")
	return len(t)-idx-1 == 2
}
