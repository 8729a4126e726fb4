package erp

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parseAmount parses an ERP amount. Both "1.234,56" and "1,234.56" are
// accepted: the separator that comes last is the decimal one. Spaces,
// including the non-breaking ones Excel inserts, are thousands separators.
func parseAmount(s string) (decimal.Decimal, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '\'':
			return -1
		}

		return r
	}, s)

	dot := strings.LastIndex(clean, ".")
	comma := strings.LastIndex(clean, ",")

	switch {
	case comma > dot:
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.Replace(clean, ",", ".", 1)
	case dot > comma && comma >= 0:
		clean = strings.ReplaceAll(clean, ",", "")
	}

	return decimal.NewFromString(clean)
}
