package threeway

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/MrJamesThe3rd/docmatch/internal/document"
)

// LineThreshold is the similarity at which an item is taken to cover a
// purchase order line.
const LineThreshold = 0.6

type line struct {
	number      string
	article     string
	description string
	poReference string
}

func lineOf(item document.Item) line {
	return line{
		number:      item.LineNumber,
		article:     item.ArticleNumber,
		description: item.Description,
		poReference: poReference(item),
	}
}

// poReference is the purchase order line an item points at. Purchase order
// items point at themselves.
func poReference(item document.Item) string {
	if item.Kind == document.KindPurchaseOrder {
		return item.LineNumber
	}

	if item.PurchaseOrderNumber != "" && item.PurchaseOrderLine != "" {
		return item.PurchaseOrderNumber + "-" + item.PurchaseOrderLine
	}

	return item.PurchaseOrderLine
}

// Similarity scores two items: 1.0 for the same purchase order line
// reference, 0.9 for the same article number, 0.7 or 0.6 for the same line
// number with or without similar descriptions, 0.5 for similar descriptions
// alone.
func Similarity(a, b document.Item) float64 {
	return similarity(lineOf(a), lineOf(b))
}

func similarity(a, b line) float64 {
	if a.poReference != "" && a.poReference == b.poReference {
		return 1.0
	}

	if a.article != "" && a.article == b.article {
		return 0.9
	}

	if a.number != "" && a.number == b.number {
		if tokenOverlap(a.description, b.description) > 0.5 {
			return 0.7
		}

		return 0.6
	}

	if tokenOverlap(a.description, b.description) > 0.7 {
		return 0.5
	}

	return 0
}

func tokenOverlap(a, b string) float64 {
	ta := tokens(a)
	tb := tokens(b)

	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	shared := 0

	for t := range ta {
		if _, ok := tb[t]; ok {
			shared++
		}
	}

	return float64(shared) / float64(max(len(ta), len(tb)))
}

func tokens(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, t := range strings.Fields(s) {
		out[t] = struct{}{}
	}

	return out
}

// coverage returns the purchase order line numbers covered by doc.
func coverage(doc, po *document.Record) map[string]struct{} {
	poLines := make([]line, 0, len(po.Items))
	for _, item := range po.Items {
		poLines = append(poLines, lineOf(item))
	}

	out := make(map[string]struct{})

	for _, item := range doc.Items {
		l := lineOf(item)

		for _, pl := range poLines {
			if pl.number != "" && similarity(l, pl) >= LineThreshold {
				out[pl.number] = struct{}{}
			}
		}
	}

	return out
}

// Decision explains a ShouldMerge outcome.
type Decision struct {
	Merge         bool     `json:"merge"`
	Reason        string   `json:"reason"`
	SharedPOLines []string `json:"shared_po_lines"`
	MatchedPairs  int      `json:"matched_pair_count"`
	InvoiceItems  int      `json:"invoice_item_count"`
	DeliveryItems int      `json:"delivery_item_count"`
	POItems       int      `json:"po_item_count"`
}

const (
	ReasonMissingItems  = "missing_items"
	ReasonSharedLines   = "shared_line_items"
	ReasonNoSharedLines = "no_shared_line_items"
)

// ShouldMerge reports whether an invoice and a delivery receipt cover at
// least one common line of the purchase order.
func ShouldMerge(invoice, delivery, po *document.Record) Decision {
	d := Decision{
		InvoiceItems:  len(invoice.Items),
		DeliveryItems: len(delivery.Items),
		POItems:       len(po.Items),
	}

	if d.InvoiceItems == 0 || d.DeliveryItems == 0 || d.POItems == 0 {
		slog.Warn("three-way check skipped, missing items",
			"invoice_id", invoice.ID, "delivery_id", delivery.ID, "po_id", po.ID)

		d.Reason = ReasonMissingItems

		return d
	}

	inv := coverage(invoice, po)
	del := coverage(delivery, po)

	for n := range inv {
		if _, ok := del[n]; ok {
			d.SharedPOLines = append(d.SharedPOLines, n)
		}
	}

	slices.Sort(d.SharedPOLines)

	for _, a := range invoice.Items {
		for _, b := range delivery.Items {
			if Similarity(a, b) >= LineThreshold {
				d.MatchedPairs++
			}
		}
	}

	d.Merge = len(d.SharedPOLines) > 0
	d.Reason = ReasonNoSharedLines

	if d.Merge {
		d.Reason = ReasonSharedLines
	}

	slog.Debug("three-way decision",
		"invoice_id", invoice.ID,
		"delivery_id", delivery.ID,
		"po_id", po.ID,
		"merge", d.Merge,
		"shared_lines", len(d.SharedPOLines),
	)

	return d
}

// Group is a set of invoices and deliveries covering the same purchase
// order lines.
type Group struct {
	Invoices   []*document.Record
	Deliveries []*document.Record
	PO         *document.Record
	POLines    []string
}

// GroupBySharedLines clusters invoices and deliveries of one purchase order
// by the lines they have in common.
func GroupBySharedLines(invoices, deliveries []*document.Record, po *document.Record) []Group {
	type group struct {
		invoices   []*document.Record
		deliveries []*document.Record
		lines      map[string]struct{}
	}

	var groups []*group

	delCoverage := make([]map[string]struct{}, len(deliveries))
	for i, del := range deliveries {
		delCoverage[i] = coverage(del, po)
	}

	for _, inv := range invoices {
		invLines := coverage(inv, po)

		for i, del := range deliveries {
			shared := intersect(invLines, delCoverage[i])
			if len(shared) == 0 {
				continue
			}

			var target *group

			for _, g := range groups {
				if len(intersect(g.lines, shared)) > 0 {
					target = g
					break
				}
			}

			if target == nil {
				target = &group{lines: make(map[string]struct{})}
				groups = append(groups, target)
			}

			if !slices.Contains(target.invoices, inv) {
				target.invoices = append(target.invoices, inv)
			}

			if !slices.Contains(target.deliveries, del) {
				target.deliveries = append(target.deliveries, del)
			}

			for n := range shared {
				target.lines[n] = struct{}{}
			}
		}
	}

	out := make([]Group, 0, len(groups))

	for _, g := range groups {
		lines := make([]string, 0, len(g.lines))
		for n := range g.lines {
			lines = append(lines, n)
		}

		slices.Sort(lines)

		out = append(out, Group{Invoices: g.invoices, Deliveries: g.deliveries, PO: po, POLines: lines})
	}

	slog.Debug("grouped three-way matches",
		"po_id", po.ID, "invoices", len(invoices), "deliveries", len(deliveries), "groups", len(out))

	return out
}

func intersect(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})

	for k := range a {
		if _, ok := b[k]; ok {
			out[k] = struct{}{}
		}
	}

	return out
}
