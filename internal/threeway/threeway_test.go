package threeway_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/docmatch/internal/document"
	"github.com/MrJamesThe3rd/docmatch/internal/threeway"
)

func item(kind document.Kind, line, article, desc string) document.Item {
	it := document.Item{Kind: kind, LineNumber: line, ArticleNumber: article, Description: desc}
	if kind == document.KindPurchaseOrder {
		it.PurchaseOrderLine = line
	}

	return it
}

func doc(id string, kind document.Kind, items ...document.Item) *document.Record {
	return &document.Record{ID: id, Kind: kind, Items: items}
}

var (
	po = doc("po-1", document.KindPurchaseOrder,
		item(document.KindPurchaseOrder, "1", "WIDGETA", "widget a red"),
		item(document.KindPurchaseOrder, "2", "WIDGETB", "widget b blue"),
		item(document.KindPurchaseOrder, "3", "WIDGETC", "widget c green"),
	)
	inv1 = doc("inv-1", document.KindInvoice,
		item(document.KindInvoice, "10", "WIDGETA", "widget a red"),
		item(document.KindInvoice, "11", "WIDGETB", "widget b blue"),
	)
	inv2 = doc("inv-2", document.KindInvoice,
		item(document.KindInvoice, "12", "WIDGETC", "widget c green"),
	)
	dr1 = doc("dr-1", document.KindDeliveryReceipt,
		item(document.KindDeliveryReceipt, "20", "WIDGETA", "widget a red"),
		item(document.KindDeliveryReceipt, "21", "WIDGETB", "widget b blue"),
	)
	dr2 = doc("dr-2", document.KindDeliveryReceipt,
		item(document.KindDeliveryReceipt, "22", "WIDGETC", "widget c green"),
	)
)

func TestSimilarity(t *testing.T) {
	withRef := func(kind document.Kind, po, line string) document.Item {
		return document.Item{Kind: kind, PurchaseOrderNumber: po, PurchaseOrderLine: line}
	}

	tests := []struct {
		name string
		a, b document.Item
		want float64
	}{
		{
			name: "same purchase order line reference",
			a:    withRef(document.KindInvoice, "PO1", "2"),
			b:    withRef(document.KindDeliveryReceipt, "PO1", "2"),
			want: 1.0,
		},
		{
			name: "same article number",
			a:    item(document.KindInvoice, "1", "A1", "x"),
			b:    item(document.KindDeliveryReceipt, "9", "A1", "y"),
			want: 0.9,
		},
		{
			name: "same line with similar description",
			a:    item(document.KindInvoice, "1", "", "steel bolt m8"),
			b:    item(document.KindDeliveryReceipt, "1", "", "steel bolt m10"),
			want: 0.7,
		},
		{
			name: "same line only",
			a:    item(document.KindInvoice, "1", "", "bolt"),
			b:    item(document.KindDeliveryReceipt, "1", "", "nut"),
			want: 0.6,
		},
		{
			name: "similar description only",
			a:    item(document.KindInvoice, "1", "", "a b c d"),
			b:    item(document.KindDeliveryReceipt, "2", "", "a b c d e"),
			want: 0.5,
		},
		{
			name: "nothing in common",
			a:    item(document.KindInvoice, "1", "X", "bolt"),
			b:    item(document.KindDeliveryReceipt, "2", "Y", "nut"),
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, threeway.Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestShouldMerge(t *testing.T) {
	d := threeway.ShouldMerge(inv1, dr1, po)
	assert.True(t, d.Merge)
	assert.Equal(t, threeway.ReasonSharedLines, d.Reason)
	assert.Equal(t, []string{"1", "2"}, d.SharedPOLines)
	assert.Equal(t, 2, d.MatchedPairs)

	d = threeway.ShouldMerge(inv1, dr2, po)
	assert.False(t, d.Merge)
	assert.Equal(t, threeway.ReasonNoSharedLines, d.Reason)
	assert.Empty(t, d.SharedPOLines)

	d = threeway.ShouldMerge(doc("inv-x", document.KindInvoice), dr1, po)
	assert.False(t, d.Merge)
	assert.Equal(t, threeway.ReasonMissingItems, d.Reason)
}

func TestGroupBySharedLines(t *testing.T) {
	groups := threeway.GroupBySharedLines(
		[]*document.Record{inv1, inv2},
		[]*document.Record{dr1, dr2},
		po,
	)

	require.Len(t, groups, 2)

	assert.Equal(t, []*document.Record{inv1}, groups[0].Invoices)
	assert.Equal(t, []*document.Record{dr1}, groups[0].Deliveries)
	assert.Equal(t, []string{"1", "2"}, groups[0].POLines)
	assert.Same(t, po, groups[0].PO)

	assert.Equal(t, []*document.Record{inv2}, groups[1].Invoices)
	assert.Equal(t, []*document.Record{dr2}, groups[1].Deliveries)
	assert.Equal(t, []string{"3"}, groups[1].POLines)
}
