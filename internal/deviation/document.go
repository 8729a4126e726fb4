package deviation

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/MrJamesThe3rd/docmatch/internal/document"
)

const totalAmountField = "incVatAmount"

// CollectDocumentDeviations compares the headers of two paired documents.
// Missing documents yield no deviations.
func CollectDocumentDeviations(a, b *document.Record) []Deviation {
	if a == nil || b == nil {
		return []Deviation{}
	}

	devs := []Deviation{}

	for _, rec := range []*document.Record{a, b} {
		if !rec.Kind.Valid() {
			devs = append(devs, newDeviation(CodeInvalidDocKind, SeverityHigh,
				fmt.Sprintf("invalid document kind %q for document %s", rec.Kind, rec.ID)))
		}
	}

	if dev, ok := currencyDeviation(a, b); ok {
		devs = append(devs, dev)
	}

	if dev, ok := totalAmountDeviation(a, b); ok {
		devs = append(devs, dev)
	}

	return devs
}

func currencyDeviation(a, b *document.Record) (Deviation, bool) {
	ca := strings.TrimSpace(a.Currency)
	cb := strings.TrimSpace(b.Currency)

	if ca == "" || cb == "" {
		if ca != cb {
			slog.Debug("currency comparison skipped, one side empty",
				"document_a", a.ID, "currency_a", ca, "document_b", b.ID, "currency_b", cb)
		}

		return Deviation{}, false
	}

	if ca == cb {
		return Deviation{}, false
	}

	dev := newDeviation(CodeCurrenciesDiffer, SeverityHigh, fmt.Sprintf("Currencies differ: %s vs %s", ca, cb))
	dev.FieldNames = []string{"currency", "currency"}
	dev.FieldValues = []string{ca, cb}

	return dev, true
}

func totalAmountDeviation(a, b *document.Record) (Deviation, bool) {
	if strings.TrimSpace(a.IncVat) == "" || strings.TrimSpace(b.IncVat) == "" {
		return Deviation{}, false
	}

	d := Compare(a.IncVat, b.IncVat)

	sev := HeaderAmountSeverity(d)
	if sev == SeverityNone {
		return Deviation{}, false
	}

	var msg string

	if d.Outcome == OutcomeInvalid {
		slog.Warn("total amounts not comparable", "document_a", a.ID, "value_a", a.IncVat, "document_b", b.ID, "value_b", b.IncVat)
		msg = fmt.Sprintf("Total amount (%s) could not be compared: %q vs %q", totalAmountField, a.IncVat, b.IncVat)
	} else {
		msg = fmt.Sprintf("Total amount (%s) differs by %s", totalAmountField, d.Abs.StringFixed(2))
	}

	dev := newDeviation(CodeAmountsDiffer, sev, msg)
	dev.FieldNames = []string{totalAmountField, totalAmountField}
	dev.FieldValues = []string{a.IncVat, b.IncVat}

	return dev, true
}
