package document

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var supplierHeaders = []string{
	"supplierId",
	"supplierExternalId",
	"supplierInternalId",
	"supplierIncomingId",
}

// Record is the canonical, immutable view of a document used by the
// pairing, item matching and deviation engines.
type Record struct {
	ID          string
	Kind        Kind
	Site        string
	SupplierIDs []string
	// OrderRef is the invoice order reference or the purchase order number.
	// Delivery receipts carry their references per line.
	OrderRef string
	// IncVat and ExcVat keep the raw header text so the deviation engine can
	// tell a missing amount from an unparseable one.
	IncVat    string
	ExcVat    string
	Currency  string
	CreatedAt *time.Time
	Items     []Item
	Headers   Fields
}

// Item is the canonical view of one line item.
type Item struct {
	Index               int
	Kind                Kind
	LineNumber          string
	Description         string
	ArticleNumber       string
	RawArticleNumber    string
	UnitPrice           decimal.NullDecimal
	Quantity            decimal.NullDecimal
	LineAmount          decimal.NullDecimal
	PurchaseOrderNumber string
	PurchaseOrderLine   string
	Fields              Fields
	Matched             bool
}

// ExcVatAmount returns the parsed excl. VAT total, or zero when it is missing
// or malformed.
func (r *Record) ExcVatAmount() decimal.Decimal {
	return parseAmountOrZero(r.ExcVat)
}

// IncVatAmount returns the parsed incl. VAT total, or zero when it is missing
// or malformed.
func (r *Record) IncVatAmount() decimal.Decimal {
	return parseAmountOrZero(r.IncVat)
}

// ArticleNumbers returns the set of normalized, non-empty article numbers.
func (r *Record) ArticleNumbers() map[string]struct{} {
	set := make(map[string]struct{}, len(r.Items))

	for _, item := range r.Items {
		if item.ArticleNumber != "" {
			set[item.ArticleNumber] = struct{}{}
		}
	}

	return set
}

// References returns the order numbers this document can be joined on.
func (r *Record) References() []string {
	var refs []string

	seen := make(map[string]struct{})
	add := func(ref string) {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			return
		}

		if _, ok := seen[ref]; ok {
			return
		}

		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}

	add(r.OrderRef)

	if r.Kind == KindDeliveryReceipt {
		for _, item := range r.Items {
			add(item.PurchaseOrderNumber)
		}
	}

	return refs
}

// HasSupplier reports whether the two records share a supplier id.
func (r *Record) HasSupplier(other *Record) bool {
	for _, a := range r.SupplierIDs {
		for _, b := range other.SupplierIDs {
			if a == b {
				return true
			}
		}
	}

	return false
}

// Project converts a wire payload into a Record.
func Project(p *Payload) (*Record, error) {
	if strings.TrimSpace(p.ID) == "" {
		return nil, ErrMissingID
	}

	kind, err := ParseKind(p.Kind)
	if err != nil {
		return nil, err
	}

	proj := projections[kind]

	rec := &Record{
		ID:          p.ID,
		Kind:        kind,
		Site:        p.Site,
		SupplierIDs: supplierIDs(p),
		Currency:    strings.TrimSpace(firstOrEmpty(p, "currency")),
		IncVat:      firstOrEmpty(p, "incVatAmount"),
		ExcVat:      firstOrEmpty(p, "excVatAmount"),
		Headers:     p.Headers,
	}

	if proj.orderRef != "" {
		rec.OrderRef = strings.TrimSpace(firstOrEmpty(p, proj.orderRef))
	}

	rec.CreatedAt = createdAt(p, proj.dateHeader)

	rec.Items = make([]Item, 0, len(p.Items))
	for i, ip := range p.Items {
		rec.Items = append(rec.Items, proj.item(i, ip.Fields))
	}

	return rec, nil
}

// ProjectAll projects every payload, failing on the first invalid one.
func ProjectAll(payloads []Payload) ([]*Record, error) {
	recs := make([]*Record, 0, len(payloads))

	for i := range payloads {
		rec, err := Project(&payloads[i])
		if err != nil {
			return nil, fmt.Errorf("document %d (%s): %w", i, payloads[i].ID, err)
		}

		recs = append(recs, rec)
	}

	return recs, nil
}

func firstOrEmpty(p *Payload, names ...string) string {
	v, _ := p.lookup(names...)
	return v
}

func supplierIDs(p *Payload) []string {
	var ids []string

	seen := make(map[string]struct{})

	for _, name := range supplierHeaders {
		v, ok := p.lookup(name)
		if !ok {
			continue
		}

		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}

		if _, dup := seen[v]; dup {
			continue
		}

		seen[v] = struct{}{}
		ids = append(ids, v)
	}

	return ids
}

func createdAt(p *Payload, header string) *time.Time {
	raw := strings.TrimSpace(p.CreatedAt)
	if raw == "" && header != "" {
		raw = strings.TrimSpace(firstOrEmpty(p, header))
	}

	if raw == "" {
		return nil
	}

	t, err := ParseDate(raw)
	if err != nil {
		slog.Warn("unparseable document date", "document_id", p.ID, "value", raw)
		return nil
	}

	return &t
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
	"02-01-2006",
	"02/01/2006",
	"2006/01/02",
	"20060102",
}

// ParseDate accepts the date formats seen in upstream documents.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ParseAmount parses a decimal amount, accepting a comma as decimal
// separator when no dot is present.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}

	s = strings.ReplaceAll(s, " ", "")

	return decimal.NewFromString(s)
}

func parseAmountOrZero(s string) decimal.Decimal {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero
	}

	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero
	}

	return d
}

func nullAmount(fields Fields, names ...string) decimal.NullDecimal {
	v, ok := fields.First(names...)
	if !ok {
		return decimal.NullDecimal{}
	}

	d, err := ParseAmount(v)
	if err != nil {
		return decimal.NullDecimal{}
	}

	return decimal.NewNullDecimal(d)
}

// NormalizeArticleNumber strips spaces, dashes and leading zeros. An
// all-zero number normalizes to the empty string and is ignored.
func NormalizeArticleNumber(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '\t':
			return -1
		}

		return r
	}, strings.TrimSpace(s))

	return strings.TrimLeft(s, "0")
}

// NormalizeDescription lowercases and collapses line breaks.
func NormalizeDescription(s string) string {
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
	return strings.ToLower(strings.TrimSpace(s))
}
