package deviation

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/docmatch/internal/document"
)

// Similarities carries the item matcher's scores for a pair. A nil field
// means the signal was not computed.
type Similarities struct {
	ItemID      *float64
	Description *float64
}

// sideValue is one document's value for a comparison.
type sideValue struct {
	field   string
	raw     string
	present bool
	dec     decimal.Decimal
	valid   bool
}

type comparison struct {
	code   Code
	label  string
	value  func(kind document.Kind, f document.Fields) sideValue
	ladder func(Diff) Severity
}

var comparisons = []comparison{
	{
		code:   CodeAmountsDiffer,
		label:  "Amounts differ",
		value:  lineAmountValue,
		ladder: LineAmountSeverity,
	},
	{
		code:   CodePricesPerUnitDiffer,
		label:  "Prices per unit differ",
		value:  unitPriceValue,
		ladder: UnitPriceSeverity,
	},
}

func numericValue(field string, f document.Fields) sideValue {
	v := sideValue{field: field}

	raw, ok := f.Get(field)
	if !ok || strings.TrimSpace(raw) == "" {
		return v
	}

	v.raw = raw
	v.present = true

	d, err := document.ParseAmount(raw)
	if err == nil {
		v.dec = d
		v.valid = true
	}

	return v
}

func lineAmountValue(kind document.Kind, f document.Fields) sideValue {
	switch kind {
	case document.KindInvoice:
		return numericValue(document.FieldInvoiceAmount, f)
	case document.KindDeliveryReceipt:
		return numericValue(document.FieldReceiptAmount, f)
	case document.KindPurchaseOrder:
		qty := numericValue(document.FieldPOQuantity, f)
		unit := numericValue(document.FieldPOUnitPrice, f)

		v := sideValue{field: document.FieldPOQuantity + "*" + document.FieldPOUnitPrice}
		if !qty.present || !unit.present {
			return v
		}

		v.present = true
		v.raw = qty.raw + "*" + unit.raw

		if qty.valid && unit.valid {
			v.dec = qty.dec.Mul(unit.dec)
			v.valid = true
			v.raw = v.dec.String()
		}

		return v
	}

	return sideValue{}
}

func unitPriceValue(kind document.Kind, f document.Fields) sideValue {
	field := document.UnitPriceField(kind)
	if field == "" {
		return sideValue{}
	}

	return numericValue(field, f)
}

// CollectItemPairDeviations compares the fields of items that were paired
// across documents. kinds and fields are parallel slices.
func CollectItemPairDeviations(kinds []document.Kind, fields []document.Fields, sims Similarities) []Deviation {
	devs := []Deviation{}

	if len(kinds) != len(fields) {
		slog.Error("item pair kinds and fields differ in length", "kinds", len(kinds), "fields", len(fields))
		return devs
	}

	for _, c := range comparisons {
		if dev, ok := c.check(kinds, fields); ok {
			devs = append(devs, dev)
		}
	}

	if dev, ok := quantityDeviation(kinds, fields); ok {
		devs = append(devs, dev)
	}

	if dev, ok := descriptionDeviation(kinds, fields, sims.Description); ok {
		devs = append(devs, dev)
	}

	if dev, ok := articleNumberDeviation(kinds, fields, sims.Description); ok {
		devs = append(devs, dev)
	}

	if dev, ok := itemsDifferDeviation(sims); ok {
		devs = append(devs, dev)
	}

	return devs
}

func (c comparison) check(kinds []document.Kind, fields []document.Fields) (Deviation, bool) {
	values := make([]sideValue, len(kinds))
	for i, kind := range kinds {
		values[i] = c.value(kind, fields[i])
	}

	var present []sideValue

	for _, v := range values {
		if v.present {
			present = append(present, v)
		}
	}

	if len(present) < 2 {
		return Deviation{}, false
	}

	highest := SeverityNone

	var msg string

	for i := range present {
		for j := 0; j < i; j++ {
			a, b := present[j], present[i]

			var d Diff
			if a.valid && b.valid {
				d = CompareDecimal(a.dec, b.dec)
			} else {
				d = Diff{Outcome: OutcomeInvalid}
			}

			sev := c.ladder(d)
			if sev <= highest {
				continue
			}

			highest = sev

			if d.Outcome == OutcomeInvalid {
				slog.Warn("item values not comparable", "code", c.code, "value_a", a.raw, "value_b", b.raw)
				msg = fmt.Sprintf("%s (could not compare %q and %q)", c.label, a.raw, b.raw)
			} else {
				msg = fmt.Sprintf("%s (%s vs %s, diff: %s)", c.label, formatAmount(a.dec), formatAmount(b.dec), d.Abs.StringFixed(2))
			}
		}
	}

	if highest == SeverityNone {
		return Deviation{}, false
	}

	dev := newDeviation(c.code, highest, msg)
	for _, v := range values {
		dev.FieldNames = append(dev.FieldNames, v.field)
		dev.FieldValues = append(dev.FieldValues, v.raw)
	}

	return dev, true
}

// quantityDeviation compares every side against the purchase order's
// ordered quantity. A shortfall is a partial delivery and suppresses the
// excess check.
func quantityDeviation(kinds []document.Kind, fields []document.Fields) (Deviation, bool) {
	po := -1

	for i, k := range kinds {
		if k == document.KindPurchaseOrder {
			po = i
			break
		}
	}

	if po < 0 {
		return Deviation{}, false
	}

	ordered := numericValue(document.FieldPOQuantity, fields[po])
	if !ordered.present {
		return Deviation{}, false
	}

	var (
		partial  *sideValue
		excess   = SeverityNone
		excessAt sideValue
		invalid  *sideValue
	)

	for i, k := range kinds {
		if i == po || k == document.KindPurchaseOrder {
			continue
		}

		got := numericValue(document.QuantityField(k), fields[i])
		if !got.present {
			continue
		}

		if !got.valid || !ordered.valid {
			invalid = &got
			continue
		}

		switch got.dec.Cmp(ordered.dec) {
		case -1:
			if partial == nil {
				partial = &got
			}
		case 1:
			sev := QuantityExcessSeverity(CompareDecimal(got.dec, ordered.dec))
			if sev > excess {
				excess = sev
				excessAt = got
			}
		}
	}

	switch {
	case partial != nil:
		dev := newDeviation(CodePartialDelivery, SeverityInfo,
			fmt.Sprintf("Partial delivery: %s of %s ordered", partial.dec.String(), ordered.dec.String()))
		dev.FieldNames = []string{partial.field, ordered.field}
		dev.FieldValues = []string{partial.raw, ordered.raw}

		return dev, true
	case excess > SeverityNone:
		dev := newDeviation(CodeQuantitiesDiffer, excess,
			fmt.Sprintf("Quantities differ (%s vs %s ordered)", excessAt.dec.String(), ordered.dec.String()))
		dev.FieldNames = []string{excessAt.field, ordered.field}
		dev.FieldValues = []string{excessAt.raw, ordered.raw}

		return dev, true
	case invalid != nil:
		slog.Warn("quantities not comparable", "value", invalid.raw, "ordered", ordered.raw)

		dev := newDeviation(CodeQuantitiesDiffer, SeverityLow,
			fmt.Sprintf("Quantities differ (could not compare %q and %q)", invalid.raw, ordered.raw))
		dev.FieldNames = []string{invalid.field, ordered.field}
		dev.FieldValues = []string{invalid.raw, ordered.raw}

		return dev, true
	}

	return Deviation{}, false
}

var descriptionFields = map[document.Kind][]string{
	document.KindInvoice:         {"text", "description"},
	document.KindPurchaseOrder:   {"description", "text"},
	document.KindDeliveryReceipt: {"inventoryDescription", "description", "text"},
}

var articleFields = map[document.Kind][]string{
	document.KindInvoice:         {document.FieldInvoiceArticle, document.FieldInventory, document.FieldArticleNumber},
	document.KindPurchaseOrder:   {document.FieldInventory, document.FieldArticleNumber},
	document.KindDeliveryReceipt: {"inventoryNumber", document.FieldInventory, document.FieldArticleNumber},
}

// normalizeDescription lower-cases s and drops every whitespace rune.
func normalizeDescription(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

func descriptionDeviation(kinds []document.Kind, fields []document.Fields, sim *float64) (Deviation, bool) {
	if len(kinds) < 2 {
		return Deviation{}, false
	}

	raw := make([]string, len(kinds))
	normalized := make([]string, len(kinds))
	empty := 0

	for i, k := range kinds {
		raw[i], _ = fields[i].First(descriptionFields[k]...)
		normalized[i] = normalizeDescription(raw[i])

		if normalized[i] == "" {
			empty++
		}
	}

	build := func(sev Severity, msg string) (Deviation, bool) {
		dev := newDeviation(CodeDescriptionsDiffer, sev, msg)
		dev.FieldNames = []string{"description"}
		dev.FieldValues = raw

		return dev, true
	}

	switch {
	case empty == len(kinds):
		return Deviation{}, false
	case empty > 0:
		return build(SeverityHigh, "Descriptions differ (description missing on one side)")
	}

	allEqual := true

	for _, n := range normalized[1:] {
		if n != normalized[0] {
			allEqual = false
			break
		}
	}

	if allEqual {
		return Deviation{}, false
	}

	if sim == nil {
		return build(SeverityHigh, "Descriptions differ (similarity unavailable)")
	}

	sev := DescriptionSeverity(*sim)
	if sev == SeverityNone {
		return Deviation{}, false
	}

	return build(sev, fmt.Sprintf("Descriptions differ (similarity %.2f)", *sim))
}

func articleNumberDeviation(kinds []document.Kind, fields []document.Fields, descSim *float64) (Deviation, bool) {
	var (
		rawValues []string
		values    []string
	)

	for i, k := range kinds {
		raw, ok := fields[i].First(articleFields[k]...)
		if !ok {
			continue
		}

		n := document.NormalizeArticleNumber(raw)
		if n == "" {
			continue
		}

		rawValues = append(rawValues, raw)
		values = append(values, n)
	}

	if len(values) < 2 {
		return Deviation{}, false
	}

	differ := false

	for _, v := range values[1:] {
		if v != values[0] {
			differ = true
			break
		}
	}

	if !differ {
		return Deviation{}, false
	}

	sev := SeverityMedium
	if descSim != nil && *descSim >= 0.90 {
		sev = SeverityLow
	}

	dev := newDeviation(CodeArticleNumbersDiffer, sev,
		fmt.Sprintf("Article numbers differ (%s)", strings.Join(rawValues, " vs ")))
	dev.FieldNames = []string{"articleNumber"}
	dev.FieldValues = rawValues

	return dev, true
}

func itemsDifferDeviation(sims Similarities) (Deviation, bool) {
	id, desc := 1.0, 1.0

	if sims.ItemID != nil {
		id = *sims.ItemID
	}

	if sims.Description != nil {
		desc = *sims.Description
	}

	if id < 0.5 && desc < 0.5 {
		confidence := 1 - (id+desc)/2

		sev := SeverityLow

		switch {
		case confidence >= 0.8:
			sev = SeverityHigh
		case confidence >= 0.5:
			sev = SeverityMedium
		}

		dev := newDeviation(CodeItemsDiffer, sev,
			fmt.Sprintf("Items appear to be different (id similarity %.2f, description similarity %.2f)", id, desc))
		dev.Confidence = confidence

		return dev, true
	}

	if (id < 0.3 && desc < 0.7) || (desc < 0.3 && id < 0.7) {
		dev := newDeviation(CodeItemsDiffer, SeverityMedium,
			fmt.Sprintf("Items may be different (id similarity %.2f, description similarity %.2f)", id, desc))
		dev.Confidence = 0.6

		return dev, true
	}

	return Deviation{}, false
}

// UnmatchedItem reports an item with no counterpart, graded by its own
// line value. A negligible value yields no deviation.
func UnmatchedItem(item document.Item) (Deviation, bool) {
	sev := UnmatchedValueSeverity(item.LineAmount)
	if sev == SeverityNone {
		return Deviation{}, false
	}

	value := ""
	if item.LineAmount.Valid {
		value = item.LineAmount.Decimal.String()
	}

	msg := fmt.Sprintf("Unmatched %s item %d", item.Kind, item.Index)
	if item.Description != "" {
		msg += fmt.Sprintf(" (%s)", item.Description)
	}

	dev := newDeviation(CodeUnmatchedItem, sev, msg)
	dev.FieldNames = []string{"lineAmount"}
	dev.FieldValues = []string{value}

	return dev, true
}
