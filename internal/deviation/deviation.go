package deviation

// Code names a kind of discrepancy.
type Code string

const (
	CodeAmountsDiffer        Code = "AMOUNTS_DIFFER"
	CodePricesPerUnitDiffer  Code = "PRICES_PER_UNIT_DIFFER"
	CodeQuantitiesDiffer     Code = "QUANTITIES_DIFFER"
	CodePartialDelivery      Code = "PARTIAL_DELIVERY"
	CodeDescriptionsDiffer   Code = "DESCRIPTIONS_DIFFER"
	CodeArticleNumbersDiffer Code = "ARTICLE_NUMBERS_DIFFER"
	CodeItemsDiffer          Code = "ITEMS_DIFFER"
	CodeCurrenciesDiffer     Code = "CURRENCIES_DIFFER"
	CodeInvalidDocKind       Code = "INVALID_DOC_KIND"
	CodeUnmatchedItem        Code = "UNMATCHED_ITEM"
)

// Deviation is one factual discrepancy between documents or items.
type Deviation struct {
	Code        Code     `json:"code"`
	Severity    Severity `json:"severity"`
	Message     string   `json:"message"`
	FieldNames  []string `json:"field_names"`
	FieldValues []string `json:"field_values"`
	Confidence  float64  `json:"confidence"`
}

func newDeviation(code Code, sev Severity, msg string) Deviation {
	return Deviation{
		Code:       code,
		Severity:   sev,
		Message:    msg,
		Confidence: 1.0,
	}
}

// Has reports whether any deviation carries the given code.
func Has(devs []Deviation, code Code) bool {
	for _, d := range devs {
		if d.Code == code {
			return true
		}
	}

	return false
}
