package pairing

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/docmatch/internal/document"
)

const (
	DefaultThreshold           = 0.15
	DefaultAcceptanceThreshold = 0.15

	// ReferenceScore is the confidence reported for deterministic matches.
	ReferenceScore = 0.95
)

var amountTolerance = decimal.RequireFromString("0.5")

//go:generate mockgen -source=predictor.go -destination=scorer_mock.go -package=pairing
type Scorer interface {
	// Score returns the match probability for a feature vector.
	Score(ctx context.Context, features []float64) (float64, error)
}

// Link is a pairing confirmed by an earlier run.
type Link struct {
	A string `json:"a"`
	B string `json:"b"`
}

type Options struct {
	// Threshold is the minimum probability kept by the pure classifier path.
	Threshold         float64
	UseReferenceLogic bool
	IgnoreChronology  bool
	Confirmed         []Link
}

func DefaultOptions() Options {
	return Options{
		Threshold:         DefaultThreshold,
		UseReferenceLogic: true,
	}
}

type Config struct {
	FilterBySupplier bool
	// AcceptanceThreshold is the probability a classifier fallback match
	// must exceed.
	AcceptanceThreshold float64
}

func DefaultConfig() Config {
	return Config{FilterBySupplier: true, AcceptanceThreshold: DefaultAcceptanceThreshold}
}

type Candidate struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Prediction is the outcome of the reference and fallback phases, grouped by
// partner kind.
type Prediction struct {
	Invoices       []string
	Deliveries     []string
	PurchaseOrders []string
	Scores         map[string]float64
}

func (p *Prediction) ids(kind document.Kind) []string {
	switch kind {
	case document.KindInvoice:
		return p.Invoices
	case document.KindDeliveryReceipt:
		return p.Deliveries
	case document.KindPurchaseOrder:
		return p.PurchaseOrders
	}

	return nil
}

func (p *Prediction) set(kind document.Kind, ids []string) {
	switch kind {
	case document.KindInvoice:
		p.Invoices = ids
	case document.KindDeliveryReceipt:
		p.Deliveries = ids
	case document.KindPurchaseOrder:
		p.PurchaseOrders = ids
	}
}

// Predictor pairs a target document with candidate documents of other kinds.
// It holds no per-request state and is safe for concurrent use.
type Predictor struct {
	scorer Scorer
	cfg    Config
}

// NewPredictor returns a predictor. A nil scorer disables every classifier
// path.
func NewPredictor(scorer Scorer, cfg Config) *Predictor {
	return &Predictor{scorer: scorer, cfg: cfg}
}

// PredictPairings returns the candidates paired with target, best first.
func (p *Predictor) PredictPairings(
	ctx context.Context,
	target *document.Record,
	candidates []*document.Record,
	opts Options,
) ([]Candidate, error) {
	if target == nil {
		return nil, fmt.Errorf("pairing: nil target")
	}

	if !target.Kind.Valid() {
		return nil, fmt.Errorf("pairing %s: %w", target.ID, document.ErrUnknownKind)
	}

	pool, inPool := candidatePool(target, candidates)

	var out []Candidate

	if opts.UseReferenceLogic {
		pred := p.predict(ctx, target, pool, opts)

		for _, kind := range []document.Kind{
			document.KindInvoice,
			document.KindDeliveryReceipt,
			document.KindPurchaseOrder,
		} {
			for _, id := range pred.ids(kind) {
				if _, ok := inPool[id]; !ok {
					continue
				}

				score, ok := pred.Scores[id]
				if !ok {
					score = ReferenceScore
				}

				out = append(out, Candidate{ID: id, Score: score})
			}
		}
	}

	if len(out) == 0 {
		out = p.classify(ctx, target, pool, opts)
	}

	slices.SortStableFunc(out, func(a, b Candidate) int {
		return cmp.Compare(b.Score, a.Score)
	})

	return out, nil
}

// PredictBestPairing returns the best candidate, or an empty id and zero
// score when there is none.
func (p *Predictor) PredictBestPairing(
	ctx context.Context,
	target *document.Record,
	candidates []*document.Record,
	opts Options,
) (string, float64, error) {
	out, err := p.PredictPairings(ctx, target, candidates, opts)
	if err != nil {
		return "", 0, err
	}

	if len(out) == 0 {
		return "", 0, nil
	}

	return out[0].ID, out[0].Score, nil
}

// Predict runs the reference phase and the classifier fallback without
// filtering the result against the candidates.
func (p *Predictor) Predict(
	ctx context.Context,
	target *document.Record,
	candidates []*document.Record,
	opts Options,
) (*Prediction, error) {
	if target == nil {
		return nil, fmt.Errorf("pairing: nil target")
	}

	if !target.Kind.Valid() {
		return nil, fmt.Errorf("pairing %s: %w", target.ID, document.ErrUnknownKind)
	}

	pool, _ := candidatePool(target, candidates)

	return p.predict(ctx, target, pool, opts), nil
}

// candidatePool drops nil, duplicate and unknown-kind candidates and the
// target itself.
func candidatePool(target *document.Record, candidates []*document.Record) ([]*document.Record, map[string]struct{}) {
	pool := make([]*document.Record, 0, len(candidates))
	inPool := make(map[string]struct{}, len(candidates))

	for _, c := range candidates {
		if c == nil || c.ID == target.ID {
			continue
		}

		if !c.Kind.Valid() {
			slog.Warn("skipping candidate of unknown kind", "document_id", c.ID, "kind", c.Kind)
			continue
		}

		if _, dup := inPool[c.ID]; dup {
			continue
		}

		inPool[c.ID] = struct{}{}
		pool = append(pool, c)
	}

	return pool, inPool
}

func (p *Predictor) predict(
	ctx context.Context,
	target *document.Record,
	candidates []*document.Record,
	opts Options,
) *Prediction {
	reg := newRegistry()
	reg.record(target)

	for _, c := range candidates {
		reg.record(c)
	}

	for _, l := range opts.Confirmed {
		reg.link(l.A, l.B)
	}

	pred := p.byReference(target, reg, opts)
	p.closure(target, pred, reg)

	p.fallback(ctx, target, candidates, pred, reg, opts)

	return pred
}

func (p *Predictor) byReference(target *document.Record, reg *registry, opts Options) *Prediction {
	pred := &Prediction{Scores: make(map[string]float64)}

	switch target.Kind {
	case document.KindInvoice:
		if ref := target.OrderRef; ref != "" {
			if po, ok := reg.purchaseOrderByNumber[ref]; ok {
				pred.PurchaseOrders = []string{po}
			}

			pred.Deliveries = reg.deliveriesByPONumber[ref]
		}

		if len(pred.PurchaseOrders) == 0 {
			if po, ok := p.disambiguate(target, reg, opts); ok {
				pred.PurchaseOrders = []string{po}
			}
		}

	case document.KindDeliveryReceipt:
		var invoices, pos []string

		for _, ref := range target.References() {
			if po, ok := reg.purchaseOrderByNumber[ref]; ok {
				pos = append(pos, po)
			}

			invoices = append(invoices, reg.invoicesByOrderRef[ref]...)
		}

		pred.Invoices = invoices
		pred.PurchaseOrders = pos

	case document.KindPurchaseOrder:
		if ref := target.OrderRef; ref != "" {
			pred.Deliveries = reg.deliveriesByPONumber[ref]
			pred.Invoices = reg.invoicesByOrderRef[ref]
		}
	}

	pred.Invoices = unique(pred.Invoices)
	pred.Deliveries = unique(pred.Deliveries)
	pred.PurchaseOrders = unique(pred.PurchaseOrders)

	return pred
}

// disambiguate picks a purchase order for an invoice without an order
// reference match, using article overlap and then the excl. VAT total.
func (p *Predictor) disambiguate(invoice *document.Record, reg *registry, opts Options) (string, bool) {
	var pool []*document.Record

	if p.cfg.FilterBySupplier {
		shared := reg.suppliersOf(invoice)

		for id := range shared {
			if rec := reg.docs[id]; rec.Kind == document.KindPurchaseOrder {
				pool = append(pool, rec)
			}
		}
	} else {
		pool = reg.ofKind(document.KindPurchaseOrder)
	}

	slices.SortFunc(pool, func(a, b *document.Record) int { return cmp.Compare(a.ID, b.ID) })

	var candidates []*document.Record

	for _, po := range pool {
		if reg.claimedByOther(po.ID, invoice.ID) {
			continue
		}

		if !opts.IgnoreChronology && !chronological(invoice, po) {
			continue
		}

		candidates = append(candidates, po)
	}

	if len(candidates) == 0 {
		return "", false
	}

	articles := invoice.ArticleNumbers()

	overlap := make(map[string]int, len(candidates))
	maxOverlap := 0

	for _, po := range candidates {
		n := 0

		for art := range po.ArticleNumbers() {
			if _, ok := articles[art]; ok {
				n++
			}
		}

		overlap[po.ID] = n
		maxOverlap = max(maxOverlap, n)
	}

	var best []string

	if maxOverlap > 0 {
		for _, po := range candidates {
			if overlap[po.ID] == maxOverlap {
				best = append(best, po.ID)
			}
		}
	}

	if len(best) == 1 && maxOverlap == len(articles) {
		return best[0], true
	}

	var near []string

	total := invoice.ExcVatAmount()

	for _, po := range candidates {
		if total.Sub(po.ExcVatAmount()).Abs().LessThan(amountTolerance) {
			near = append(near, po.ID)
		}
	}

	if len(near) == 1 && slices.Contains(best, near[0]) {
		return near[0], true
	}

	return "", false
}

// closure extends the prediction with every document reachable through
// confirmed links until a full pass adds nothing, then drops the target's
// own kind.
func (p *Predictor) closure(target *document.Record, pred *Prediction, reg *registry) {
	kinds := []document.Kind{
		document.KindInvoice,
		document.KindDeliveryReceipt,
		document.KindPurchaseOrder,
	}

	for {
		added := false

		for _, kind := range kinds {
			for _, id := range pred.ids(kind) {
				for linkedKind, linked := range reg.links[id] {
					merged := unique(append(slices.Clone(pred.ids(linkedKind)), linked...))
					if len(merged) != len(pred.ids(linkedKind)) {
						pred.set(linkedKind, merged)
						added = true
					}
				}
			}
		}

		if !added {
			break
		}
	}

	pred.set(target.Kind, nil)

	if target.Kind == document.KindInvoice && len(pred.PurchaseOrders) > 1 {
		pred.PurchaseOrders = pred.PurchaseOrders[:1]
	}
}

func (p *Predictor) fallback(
	ctx context.Context,
	target *document.Record,
	candidates []*document.Record,
	pred *Prediction,
	reg *registry,
	opts Options,
) {
	if p.scorer == nil {
		return
	}

	var want document.Kind

	switch target.Kind {
	case document.KindInvoice:
		want = document.KindPurchaseOrder
	case document.KindPurchaseOrder:
		want = document.KindInvoice
	default:
		return
	}

	if len(pred.ids(want)) > 0 {
		return
	}

	bestID := ""
	bestScore := math.Inf(-1)

	for _, c := range candidates {
		if c.Kind != want {
			continue
		}

		if p.cfg.FilterBySupplier && !target.HasSupplier(c) {
			continue
		}

		if !opts.IgnoreChronology && !chronological(target, c) {
			continue
		}

		score, err := p.scorer.Score(ctx, ComputeFeatures(target, c).Vector())
		if err != nil {
			slog.Warn("pairing classifier failed", "document_id", target.ID, "error", err)
			return
		}

		if score > bestScore {
			bestID, bestScore = c.ID, score
		}
	}

	if bestID == "" || bestScore <= p.cfg.AcceptanceThreshold {
		return
	}

	pred.set(want, []string{bestID})
	pred.Scores[bestID] = bestScore

	p.closure(target, pred, reg)
}

// classify ranks every candidate of another kind with the classifier.
func (p *Predictor) classify(
	ctx context.Context,
	target *document.Record,
	candidates []*document.Record,
	opts Options,
) []Candidate {
	if p.scorer == nil {
		return nil
	}

	var out []Candidate

	for _, c := range candidates {
		if c.Kind == target.Kind {
			continue
		}

		if !opts.IgnoreChronology && !chronological(target, c) {
			continue
		}

		score, err := p.scorer.Score(ctx, ComputeFeatures(target, c).Vector())
		if err != nil {
			slog.Warn("pairing classifier failed", "document_id", target.ID, "error", err)
			return nil
		}

		if score >= opts.Threshold {
			out = append(out, Candidate{ID: c.ID, Score: score})
		}
	}

	return out
}

// chronological reports whether an invoice/purchase order pair is in a
// plausible order. Other pairs and undated documents always are.
func chronological(a, b *document.Record) bool {
	if a.CreatedAt == nil || b.CreatedAt == nil {
		return true
	}

	switch {
	case a.Kind == document.KindInvoice && b.Kind == document.KindPurchaseOrder:
		return !a.CreatedAt.Before(*b.CreatedAt)
	case a.Kind == document.KindPurchaseOrder && b.Kind == document.KindInvoice:
		return !a.CreatedAt.After(*b.CreatedAt)
	}

	return true
}

func unique(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}

	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}
