package erp

import (
	"strings"

	"github.com/MrJamesThe3rd/docmatch/internal/document"
)

// Profile describes the column layout of an ERP document-line export. Every
// row carries one line item together with the header values of its
// document; rows are grouped on the kind and document number columns.
type Profile struct {
	Name string

	KindCol     string
	DocumentCol string

	SupplierCol string
	SiteCol     string
	RefCol      string
	DateCol     string
	CurrencyCol string
	IncVatCol   string
	ExcVatCol   string

	LineCol        string
	ArticleCol     string
	DescriptionCol string
	QuantityCol    string
	UnitPriceCol   string
	AmountCol      string
	PONumberCol    string
	POLineCol      string

	// Kinds maps the export's document type labels, lowercased, to kinds.
	Kinds map[string]document.Kind
}

func (p Profile) requiredCols() []string {
	return []string{p.KindCol, p.DocumentCol}
}

// optionalCols returns the columns that add to a match score during
// detection.
func (p Profile) optionalCols() []string {
	return []string{
		p.SupplierCol, p.RefCol, p.DateCol, p.IncVatCol, p.ExcVatCol,
		p.ArticleCol, p.DescriptionCol, p.QuantityCol, p.UnitPriceCol,
	}
}

// kind resolves a document type cell through the profile labels, falling
// back to the canonical kind names.
func (p Profile) kind(label string) (document.Kind, error) {
	if k, ok := p.Kinds[strings.ToLower(strings.TrimSpace(label))]; ok {
		return k, nil
	}

	return document.ParseKind(label)
}

// profiles is the list of export formats tried during detection. The
// profile matching the most columns wins.
var profiles = []Profile{
	{
		Name:           "lines-en",
		KindCol:        "Document type",
		DocumentCol:    "Document number",
		SupplierCol:    "Supplier",
		SiteCol:        "Site",
		RefCol:         "Order reference",
		DateCol:        "Document date",
		CurrencyCol:    "Currency",
		IncVatCol:      "Total incl. VAT",
		ExcVatCol:      "Total excl. VAT",
		LineCol:        "Line",
		ArticleCol:     "Article number",
		DescriptionCol: "Description",
		QuantityCol:    "Quantity",
		UnitPriceCol:   "Unit price",
		AmountCol:      "Line amount",
		PONumberCol:    "PO number",
		POLineCol:      "PO line",
		Kinds: map[string]document.Kind{
			"invoice":          document.KindInvoice,
			"supplier invoice": document.KindInvoice,
			"purchase order":   document.KindPurchaseOrder,
			"po":               document.KindPurchaseOrder,
			"delivery receipt": document.KindDeliveryReceipt,
			"goods receipt":    document.KindDeliveryReceipt,
		},
	},
	{
		Name:           "rader-sv",
		KindCol:        "Dokumenttyp",
		DocumentCol:    "Dokumentnummer",
		SupplierCol:    "Leverantör",
		SiteCol:        "Enhet",
		RefCol:         "Orderreferens",
		DateCol:        "Datum",
		CurrencyCol:    "Valuta",
		IncVatCol:      "Belopp inkl. moms",
		ExcVatCol:      "Belopp exkl. moms",
		LineCol:        "Rad",
		ArticleCol:     "Artikelnummer",
		DescriptionCol: "Benämning",
		QuantityCol:    "Antal",
		UnitPriceCol:   "À-pris",
		AmountCol:      "Radbelopp",
		PONumberCol:    "Inköpsordernummer",
		POLineCol:      "Inköpsorderrad",
		Kinds: map[string]document.Kind{
			"faktura":            document.KindInvoice,
			"leverantörsfaktura": document.KindInvoice,
			"inköpsorder":        document.KindPurchaseOrder,
			"beställning":        document.KindPurchaseOrder,
			"följesedel":         document.KindDeliveryReceipt,
			"inleverans":         document.KindDeliveryReceipt,
		},
	},
}
