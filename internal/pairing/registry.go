package pairing

import (
	"slices"

	"github.com/MrJamesThe3rd/docmatch/internal/document"
)

// registry indexes the documents of one pairing run. It is built fresh for
// every call and never shared between requests.
type registry struct {
	docs map[string]*document.Record

	invoicesByOrderRef    map[string][]string
	deliveriesByPONumber  map[string][]string
	purchaseOrderByNumber map[string]string
	docsBySupplier        map[string][]string

	// links[id][kind] lists the confirmed partners of id of the given kind.
	links map[string]map[document.Kind][]string

	// claimed maps a purchase order to the invoices it is confirmed against.
	claimed map[string][]string
}

func newRegistry() *registry {
	return &registry{
		docs:                  make(map[string]*document.Record),
		invoicesByOrderRef:    make(map[string][]string),
		deliveriesByPONumber:  make(map[string][]string),
		purchaseOrderByNumber: make(map[string]string),
		docsBySupplier:        make(map[string][]string),
		links:                 make(map[string]map[document.Kind][]string),
		claimed:               make(map[string][]string),
	}
}

func (r *registry) record(rec *document.Record) {
	if _, dup := r.docs[rec.ID]; dup {
		return
	}

	r.docs[rec.ID] = rec

	switch rec.Kind {
	case document.KindInvoice:
		if rec.OrderRef != "" {
			r.invoicesByOrderRef[rec.OrderRef] = append(r.invoicesByOrderRef[rec.OrderRef], rec.ID)
		}
	case document.KindPurchaseOrder:
		if rec.OrderRef != "" {
			r.purchaseOrderByNumber[rec.OrderRef] = rec.ID
		}
	case document.KindDeliveryReceipt:
		for _, ref := range rec.References() {
			r.deliveriesByPONumber[ref] = append(r.deliveriesByPONumber[ref], rec.ID)
		}
	}

	for _, supplier := range rec.SupplierIDs {
		r.docsBySupplier[supplier] = append(r.docsBySupplier[supplier], rec.ID)
	}
}

// link records a confirmed pairing. Links to documents outside the run are
// ignored.
func (r *registry) link(a, b string) {
	docA, okA := r.docs[a]
	docB, okB := r.docs[b]

	if !okA || !okB || a == b {
		return
	}

	r.addLink(docA, docB)
	r.addLink(docB, docA)

	switch {
	case docA.Kind == document.KindInvoice && docB.Kind == document.KindPurchaseOrder:
		r.claim(docB.ID, docA.ID)
	case docB.Kind == document.KindInvoice && docA.Kind == document.KindPurchaseOrder:
		r.claim(docA.ID, docB.ID)
	}
}

func (r *registry) claim(po, invoice string) {
	if !slices.Contains(r.claimed[po], invoice) {
		r.claimed[po] = append(r.claimed[po], invoice)
	}
}

// claimedByOther reports whether po is confirmed against an invoice other
// than invoice.
func (r *registry) claimedByOther(po, invoice string) bool {
	for _, id := range r.claimed[po] {
		if id != invoice {
			return true
		}
	}

	return false
}

func (r *registry) addLink(from, to *document.Record) {
	byKind, ok := r.links[from.ID]
	if !ok {
		byKind = make(map[document.Kind][]string)
		r.links[from.ID] = byKind
	}

	for _, id := range byKind[to.Kind] {
		if id == to.ID {
			return
		}
	}

	byKind[to.Kind] = append(byKind[to.Kind], to.ID)
}

// suppliersOf returns the ids of documents that share a supplier with rec.
func (r *registry) suppliersOf(rec *document.Record) map[string]struct{} {
	out := make(map[string]struct{})

	for _, supplier := range rec.SupplierIDs {
		for _, id := range r.docsBySupplier[supplier] {
			if id != rec.ID {
				out[id] = struct{}{}
			}
		}
	}

	return out
}

func (r *registry) ofKind(kind document.Kind) []*document.Record {
	var out []*document.Record

	for _, rec := range r.docs {
		if rec.Kind == kind {
			out = append(out, rec)
		}
	}

	return out
}
