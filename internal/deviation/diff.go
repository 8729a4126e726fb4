package deviation

import (
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/docmatch/internal/document"
)

// Outcome tells equal values apart from differing and uncomparable ones.
type Outcome int

const (
	OutcomeEqual Outcome = iota
	OutcomeDiffers
	OutcomeInvalid
)

// Diff holds the absolute and relative difference of two values.
// Rel is 2|a-b|/(|a|+|b|), zero when both are zero.
type Diff struct {
	Outcome Outcome
	A, B    decimal.Decimal
	Abs     decimal.Decimal
	Rel     decimal.Decimal
}

var two = decimal.NewFromInt(2)

// CompareDecimal computes the difference metrics of a and b.
func CompareDecimal(a, b decimal.Decimal) Diff {
	d := Diff{A: a, B: b}

	if a.Equal(b) {
		d.Outcome = OutcomeEqual
		return d
	}

	d.Outcome = OutcomeDiffers
	d.Abs = a.Sub(b).Abs()

	sum := a.Abs().Add(b.Abs())
	if !sum.IsZero() {
		d.Rel = two.Mul(d.Abs).Div(sum)
	}

	return d
}

// Compare parses both values and computes their difference. Unparseable
// input yields OutcomeInvalid.
func Compare(a, b string) Diff {
	da, errA := document.ParseAmount(a)
	db, errB := document.ParseAmount(b)

	if errA != nil || errB != nil {
		return Diff{Outcome: OutcomeInvalid}
	}

	return CompareDecimal(da, db)
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var (
	cent         = mustDecimal("0.01")
	halfCent     = mustDecimal("0.005")
	one          = mustDecimal("1")
	ten          = mustDecimal("10")
	fifty        = mustDecimal("50")
	permille     = mustDecimal("0.001")
	onePercent   = mustDecimal("0.01")
	fivePercent  = mustDecimal("0.05")
	tenPercent   = mustDecimal("0.10")
	twentyPct    = mustDecimal("0.20")
	fiftyPercent = mustDecimal("0.50")
)

// HeaderAmountSeverity classifies a document total difference.
func HeaderAmountSeverity(d Diff) Severity {
	switch d.Outcome {
	case OutcomeEqual:
		return SeverityNone
	case OutcomeInvalid:
		return SeverityLow
	}

	switch {
	case d.Abs.LessThanOrEqual(cent) && d.Rel.LessThanOrEqual(permille):
		return SeverityNone
	case d.Abs.LessThanOrEqual(one) && d.Rel.LessThanOrEqual(onePercent):
		return SeverityLow
	case d.Abs.LessThanOrEqual(fifty) && d.Rel.LessThanOrEqual(fivePercent):
		return SeverityMedium
	}

	return SeverityHigh
}

// LineAmountSeverity classifies a line amount difference.
func LineAmountSeverity(d Diff) Severity {
	switch d.Outcome {
	case OutcomeEqual:
		return SeverityNone
	case OutcomeInvalid:
		return SeverityLow
	}

	switch {
	case d.Abs.LessThanOrEqual(cent):
		return SeverityNone
	case d.Abs.LessThanOrEqual(one) || d.Rel.LessThanOrEqual(onePercent):
		return SeverityLow
	case d.Abs.LessThanOrEqual(ten) || d.Rel.LessThanOrEqual(tenPercent):
		return SeverityMedium
	}

	return SeverityHigh
}

// UnitPriceSeverity classifies a unit price difference.
func UnitPriceSeverity(d Diff) Severity {
	switch d.Outcome {
	case OutcomeEqual:
		return SeverityNone
	case OutcomeInvalid:
		return SeverityLow
	}

	switch {
	case d.Abs.LessThanOrEqual(halfCent) || d.Rel.LessThanOrEqual(halfCent):
		return SeverityNone
	case d.Rel.LessThanOrEqual(fivePercent):
		return SeverityLow
	case d.Rel.LessThanOrEqual(twentyPct):
		return SeverityMedium
	}

	return SeverityHigh
}

// QuantityExcessSeverity classifies a delivered or invoiced quantity above
// the ordered one.
func QuantityExcessSeverity(d Diff) Severity {
	switch d.Outcome {
	case OutcomeEqual:
		return SeverityNone
	case OutcomeInvalid:
		return SeverityLow
	}

	switch {
	case d.Abs.LessThanOrEqual(one) && d.Rel.LessThanOrEqual(tenPercent):
		return SeverityLow
	case d.Abs.LessThanOrEqual(ten) || d.Rel.LessThanOrEqual(fiftyPercent):
		return SeverityMedium
	}

	return SeverityHigh
}

// UnmatchedValueSeverity classifies the value of an item with no counterpart.
func UnmatchedValueSeverity(amount decimal.NullDecimal) Severity {
	if !amount.Valid {
		return SeverityLow
	}

	v := amount.Decimal.Abs()

	switch {
	case v.LessThanOrEqual(cent):
		return SeverityNone
	case v.LessThanOrEqual(one):
		return SeverityLow
	case v.LessThanOrEqual(ten):
		return SeverityMedium
	}

	return SeverityHigh
}

// DescriptionSeverity maps a description similarity onto a severity.
func DescriptionSeverity(sim float64) Severity {
	switch {
	case sim >= 0.98:
		return SeverityNone
	case sim >= 0.90:
		return SeverityInfo
	case sim >= 0.75:
		return SeverityLow
	case sim >= 0.50:
		return SeverityMedium
	}

	return SeverityHigh
}

// formatAmount renders at least two decimals without hiding extra precision.
func formatAmount(d decimal.Decimal) string {
	if d.Exponent() >= -2 {
		return d.StringFixed(2)
	}

	return d.String()
}
