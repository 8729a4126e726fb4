package erp

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/MrJamesThe3rd/docmatch/internal/document"
	enc "github.com/MrJamesThe3rd/docmatch/internal/encoding"
)

var ErrUnknownFormat = errors.New("no matching ERP export format found")

// Parser reads ERP document-line CSV exports and groups the lines into
// documents. The layout is detected by matching column headers against the
// known profiles.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(r io.Reader) ([]document.Payload, error) {
	utf8r, charset, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	profile, cols, headerIdx := detectProfile(rows)
	if profile == nil {
		return nil, ErrUnknownFormat
	}

	slog.Debug("detected export format", "profile", profile.Name, "charset", charset)

	return parseRows(profile, cols, rows[headerIdx+1:], headerIdx)
}

type colIndex map[string]int

// get returns the trimmed cell for a profile column, or "" when the export
// lacks the column.
func (c colIndex) get(row []string, name string) string {
	if name == "" {
		return ""
	}

	idx, ok := c[name]
	if !ok || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}

// detectProfile returns the profile whose required columns all appear in a
// row and which matches the most optional columns, with the header row index.
func detectProfile(rows [][]string) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			if name := strings.TrimSpace(cell); name != "" {
				cols[name] = i
			}
		}

		var best *Profile

		bestScore := -1

		for i := range profiles {
			score, ok := matchProfile(&profiles[i], cols)
			if ok && score > bestScore {
				best, bestScore = &profiles[i], score
			}
		}

		if best != nil {
			return best, cols, rowIdx
		}
	}

	return nil, nil, 0
}

func matchProfile(p *Profile, cols colIndex) (int, bool) {
	for _, name := range p.requiredCols() {
		if _, ok := cols[name]; !ok {
			return 0, false
		}
	}

	score := 0

	for _, name := range p.optionalCols() {
		if _, ok := cols[name]; ok {
			score++
		}
	}

	return score, true
}

// mapping routes an export column to a payload field.
type mapping struct {
	col   string
	field string
}

type docKey struct {
	kind document.Kind
	id   string
}

// parseRows groups data rows into payloads in order of first appearance.
// headerRowNum is the 0-based index of the header in the file.
func parseRows(p *Profile, cols colIndex, rows [][]string, headerRowNum int) ([]document.Payload, error) {
	var order []docKey

	docs := make(map[docKey]*document.Payload)

	for i, row := range rows {
		rowNum := headerRowNum + i + 2

		id := cols.get(row, p.DocumentCol)
		label := cols.get(row, p.KindCol)

		if id == "" && label == "" {
			continue
		}

		if id == "" {
			return nil, fmt.Errorf("row %d: missing document number", rowNum)
		}

		kind, err := p.kind(label)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		key := docKey{kind: kind, id: id}

		doc, ok := docs[key]
		if !ok {
			doc = &document.Payload{ID: id, Kind: string(kind)}
			docs[key] = doc
			order = append(order, key)
		}

		if err := mergeHeaders(doc, p, cols, row, kind); err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		item, err := lineItem(p, cols, row, kind)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		if item != nil {
			doc.Items = append(doc.Items, *item)
		}
	}

	out := make([]document.Payload, 0, len(order))
	for _, key := range order {
		out = append(out, *docs[key])
	}

	return out, nil
}

// Header field names per kind.
func refHeader(k document.Kind) string {
	switch k {
	case document.KindInvoice:
		return "orderReference"
	case document.KindPurchaseOrder:
		return "orderNumber"
	}

	return ""
}

func dateHeader(k document.Kind) string {
	if k == document.KindDeliveryReceipt {
		return "date"
	}

	return "creationTime"
}

// mergeHeaders fills header values the document does not have yet. The
// first row carrying a value wins.
func mergeHeaders(doc *document.Payload, p *Profile, cols colIndex, row []string, kind document.Kind) error {
	if doc.Site == "" {
		doc.Site = cols.get(row, p.SiteCol)
	}

	set := func(name, value string) {
		if name == "" || value == "" {
			return
		}

		if _, ok := doc.Headers.Get(name); ok {
			return
		}

		doc.Headers = append(doc.Headers, document.Field{Name: name, Value: value})
	}

	set("supplierId", cols.get(row, p.SupplierCol))
	set(refHeader(kind), cols.get(row, p.RefCol))
	set("currency", cols.get(row, p.CurrencyCol))

	if raw := cols.get(row, p.DateCol); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			return err
		}

		set(dateHeader(kind), d)
	}

	for _, m := range []mapping{
		{p.IncVatCol, "incVatAmount"},
		{p.ExcVatCol, "excVatAmount"},
	} {
		raw := cols.get(row, m.col)
		if raw == "" {
			continue
		}

		amount, err := parseAmount(raw)
		if err != nil {
			return fmt.Errorf("invalid amount %q in %s", raw, m.col)
		}

		set(m.field, amount.String())
	}

	return nil
}

// itemFields maps the profile's line columns to the item field names the
// projection reads for kind.
func itemFields(p *Profile, kind document.Kind) []mapping {
	fields := []mapping{
		{p.LineCol, document.FieldLineNumber},
		{p.PONumberCol, document.FieldPurchaseOrderNumber},
	}

	switch kind {
	case document.KindInvoice:
		fields = append(fields,
			mapping{p.ArticleCol, document.FieldInvoiceArticle},
			mapping{p.DescriptionCol, "text"},
			mapping{p.POLineCol, document.FieldOrderLineReference},
		)
	case document.KindPurchaseOrder:
		fields = append(fields,
			mapping{p.ArticleCol, document.FieldInventory},
			mapping{p.DescriptionCol, "description"},
		)
	case document.KindDeliveryReceipt:
		fields = append(fields,
			mapping{p.ArticleCol, "inventoryNumber"},
			mapping{p.DescriptionCol, "inventoryDescription"},
			mapping{p.POLineCol, document.FieldPurchaseOrderLine},
		)
	}

	return fields
}

func amountFields(p *Profile, kind document.Kind) []mapping {
	fields := []mapping{
		{p.QuantityCol, document.QuantityField(kind)},
		{p.UnitPriceCol, document.UnitPriceField(kind)},
	}

	switch kind {
	case document.KindInvoice:
		fields = append(fields, mapping{p.AmountCol, document.FieldInvoiceAmount})
	case document.KindDeliveryReceipt:
		fields = append(fields, mapping{p.AmountCol, document.FieldReceiptAmount})
	}

	return fields
}

// lineItem builds the item carried by row, or nil for a header-only row.
func lineItem(p *Profile, cols colIndex, row []string, kind document.Kind) (*document.ItemPayload, error) {
	var fields document.Fields

	for _, f := range itemFields(p, kind) {
		if v := cols.get(row, f.col); v != "" {
			fields = append(fields, document.Field{Name: f.field, Value: v})
		}
	}

	for _, f := range amountFields(p, kind) {
		raw := cols.get(row, f.col)
		if raw == "" {
			continue
		}

		amount, err := parseAmount(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q in %s", raw, f.col)
		}

		fields = append(fields, document.Field{Name: f.field, Value: amount.String()})
	}

	if len(fields) == 0 {
		return nil, nil
	}

	if kind == document.KindDeliveryReceipt {
		if _, ok := fields.Get(document.FieldPurchaseOrderNumber); !ok {
			if ref := cols.get(row, p.RefCol); ref != "" {
				fields = append(fields, document.Field{Name: document.FieldPurchaseOrderNumber, Value: ref})
			}
		}
	}

	return &document.ItemPayload{Fields: fields}, nil
}

func parseDate(s string) (string, error) {
	if t, err := time.Parse("02.01.2006", s); err == nil {
		return t.Format(time.DateOnly), nil
	}

	t, err := document.ParseDate(s)
	if err != nil {
		return "", err
	}

	return t.Format(time.DateOnly), nil
}
