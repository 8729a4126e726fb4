package erp_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/MrJamesThe3rd/docmatch/internal/document"
	"github.com/MrJamesThe3rd/docmatch/internal/importer/erp"
)

func header(t *testing.T, p document.Payload, name string) string {
	t.Helper()

	v, ok := p.Headers.Get(name)
	require.True(t, ok, "missing header %s", name)

	return v
}

func itemField(t *testing.T, item document.ItemPayload, name string) string {
	t.Helper()

	v, ok := item.Fields.Get(name)
	require.True(t, ok, "missing item field %s", name)

	return v
}

func TestParser_English(t *testing.T) {
	csv := `Export;Purchasing lines
Period;2024-03

Document type;Document number;Supplier;Order reference;Document date;Currency;Total incl. VAT;Total excl. VAT;Line;Article number;Description;Quantity;Unit price;Line amount;PO number;PO line
Invoice;INV-1;S1;PO-1;01.03.2024;SEK;1.250,00;1.000,00;1;A-1;Steel bolt;5;10,00;50,00;;1
Invoice;INV-1;;;;;;;2;B-2;Nut;10;"1,50";15,00;;2
Purchase order;PO-1;S1;PO-1;2024-02-20;SEK;;1 000,00;1;A-1;Steel bolt;5;10,00;;;
Goods receipt;DR-1;S1;PO-1;2024-02-28;;;;1;A-1;Steel bolt;5;;;;1
`

	p := erp.NewParser()
	docs, err := p.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, docs, 3)

	inv := docs[0]
	assert.Equal(t, "INV-1", inv.ID)
	assert.Equal(t, "invoice", inv.Kind)
	assert.Equal(t, "S1", header(t, inv, "supplierId"))
	assert.Equal(t, "PO-1", header(t, inv, "orderReference"))
	assert.Equal(t, "2024-03-01", header(t, inv, "creationTime"))
	assert.Equal(t, "1250", header(t, inv, "incVatAmount"))
	assert.Equal(t, "1000", header(t, inv, "excVatAmount"))
	require.Len(t, inv.Items, 2)
	assert.Equal(t, "A-1", itemField(t, inv.Items[0], document.FieldInvoiceArticle))
	assert.Equal(t, "Steel bolt", itemField(t, inv.Items[0], "text"))
	assert.Equal(t, "10", itemField(t, inv.Items[0], document.FieldInvoiceUnitPrice))
	assert.Equal(t, "1.5", itemField(t, inv.Items[1], document.FieldInvoiceUnitPrice))
	assert.Equal(t, "2", itemField(t, inv.Items[1], document.FieldOrderLineReference))

	po := docs[1]
	assert.Equal(t, "purchase-order", po.Kind)
	assert.Equal(t, "PO-1", header(t, po, "orderNumber"))
	assert.Equal(t, "1000", header(t, po, "excVatAmount"))
	require.Len(t, po.Items, 1)
	assert.Equal(t, "5", itemField(t, po.Items[0], document.FieldPOQuantity))

	dr := docs[2]
	assert.Equal(t, "delivery-receipt", dr.Kind)
	assert.Equal(t, "2024-02-28", header(t, dr, "date"))
	require.Len(t, dr.Items, 1)
	assert.Equal(t, "PO-1", itemField(t, dr.Items[0], document.FieldPurchaseOrderNumber))
	assert.Equal(t, "1", itemField(t, dr.Items[0], document.FieldPurchaseOrderLine))

	rec, err := document.Project(&dr)
	require.NoError(t, err)
	assert.Equal(t, []string{"PO-1"}, rec.References())
}

func TestParser_SwedishWindows1252(t *testing.T) {
	utf8CSV := "Dokumenttyp;Dokumentnummer;Leverantör;Orderreferens;Benämning;Antal;À-pris\n" +
		"Faktura;F-100;Åkerö AB;IO-7;Skruv;2;12,50\n"

	latin1, err := charmap.Windows1252.NewEncoder().Bytes([]byte(utf8CSV))
	require.NoError(t, err)

	p := erp.NewParser()
	docs, err := p.Parse(bytes.NewReader(latin1))
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, "Åkerö AB", header(t, docs[0], "supplierId"))
	assert.Equal(t, "IO-7", header(t, docs[0], "orderReference"))
	assert.Equal(t, "Skruv", itemField(t, docs[0].Items[0], "text"))
	assert.Equal(t, "12.5", itemField(t, docs[0].Items[0], document.FieldInvoiceUnitPrice))
}

func TestParser_CanonicalKindLabels(t *testing.T) {
	csv := `Document type;Document number
purchase-order;PO-9
`

	docs, err := erp.NewParser().Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "purchase-order", docs[0].Kind)
	assert.Empty(t, docs[0].Items)
}

func TestParser_Errors(t *testing.T) {
	type testCase struct {
		name    string
		csv     string
		wantErr string
	}

	tests := []testCase{
		{
			name:    "empty file",
			csv:     "",
			wantErr: "no matching ERP export format",
		},
		{
			name:    "unknown kind",
			csv:     "Document type;Document number\nCredit note;CN-1\n",
			wantErr: "row 2",
		},
		{
			name:    "missing document number",
			csv:     "Document type;Document number\nInvoice;\n",
			wantErr: "missing document number",
		},
		{
			name:    "bad amount",
			csv:     "Document type;Document number;Quantity\nInvoice;INV-1;many\n",
			wantErr: "invalid amount",
		},
		{
			name:    "bad date",
			csv:     "Document type;Document number;Document date\nInvoice;INV-1;yesterday\n",
			wantErr: "unrecognized date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := erp.NewParser().Parse(strings.NewReader(tt.csv))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParser_BlankRowsSkipped(t *testing.T) {
	csv := "Document type;Document number;Line\nInvoice;INV-1;1\n;;\nInvoice;INV-1;2\n"

	docs, err := erp.NewParser().Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Len(t, docs[0].Items, 2)
}
