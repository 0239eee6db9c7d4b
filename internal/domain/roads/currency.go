package roads

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var brPrinter = message.NewPrinter(language.BrazilianPortuguese)

// ParseCurrency reads a money amount written either in pt-BR ("R$ 1.234,56"),
// with a lone decimal comma ("1234,5") or in plain form ("1234.56").
// Unparseable input yields 0.
func ParseCurrency(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	only := b.String()
	if only == "" {
		return 0
	}
	hasDot := strings.Contains(only, ".")
	hasComma := strings.Contains(only, ",")
	switch {
	case hasDot && hasComma:
		only = strings.ReplaceAll(only, ".", "")
		only = strings.ReplaceAll(only, ",", ".")
	case hasComma:
		only = strings.ReplaceAll(only, ",", ".")
	}
	n, err := strconv.ParseFloat(leadingNumber(only), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

// leadingNumber keeps the longest prefix that looks like a decimal number,
// mirroring how lenient float parsing stops at the first invalid character.
func leadingNumber(s string) string {
	end := 0
	seenDot := false
	for i, r := range s {
		switch {
		case r == '-' && i == 0:
		case r >= '0' && r <= '9':
		case r == '.' && !seenDot:
			seenDot = true
		default:
			return s[:end]
		}
		end = i + 1
	}
	return s[:end]
}

// FormatBRL renders v as Brazilian reais, e.g. "R$ 1.234,56".
func FormatBRL(v float64) string {
	if v == 0 {
		return "R$ 0,00"
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + "R$ " + brPrinter.Sprintf("%.2f", v)
}
