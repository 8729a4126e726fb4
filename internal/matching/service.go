package matching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrJamesThe3rd/docmatch/internal/deviation"
	"github.com/MrJamesThe3rd/docmatch/internal/document"
	"github.com/MrJamesThe3rd/docmatch/internal/itempairing"
	"github.com/MrJamesThe3rd/docmatch/internal/pairing"
	"github.com/MrJamesThe3rd/docmatch/internal/report"
	"github.com/MrJamesThe3rd/docmatch/internal/threeway"
)

var (
	ErrPartnerMissing = errors.New("matched document missing from candidates")
	ErrNoTarget       = errors.New("no document to match")
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=matching
type Repository interface {
	// FindLinks returns the confirmed pairings touching any of ids.
	FindLinks(ctx context.Context, ids []string) ([]pairing.Link, error)
	CreateLinks(ctx context.Context, links []pairing.Link) error
}

type ReportSaver interface {
	Save(ctx context.Context, r *report.Report) error
}

// Engine bundles the matching stages.
type Engine struct {
	Predictor *pairing.Predictor
	Items     *itempairing.Service
	Assembler *report.Assembler
	Options   pairing.Options
}

type Service struct {
	repo    Repository
	reports ReportSaver
	engine  Engine
}

// NewService returns the matching pipeline. reports may be nil, in which
// case reports are not persisted.
func NewService(repo Repository, reports ReportSaver, engine Engine) *Service {
	return &Service{repo: repo, reports: reports, engine: engine}
}

// Match pairs target with the best candidate and reports the deviations
// between the two. Pairing failures produce a no-match report labelled
// pairing-error rather than an error.
func (s *Service) Match(ctx context.Context, target *document.Record, candidates []*document.Record) (*report.Report, error) {
	if target == nil {
		return nil, ErrNoTarget
	}

	rep, partner, err := s.match(ctx, target, candidates)
	if err != nil {
		return nil, err
	}

	rep.SetMetric(report.MetricCandidateDocuments, len(candidates))

	if s.reports != nil {
		if err := s.reports.Save(ctx, rep); err != nil {
			return nil, err
		}
	}

	if partner != nil && rep.Matched() {
		s.Learn(ctx, target.ID, partner.ID)
	}

	slog.Info("document matched",
		"document_id", target.ID,
		"trace_id", TraceID(ctx),
		"report_id", rep.ID,
		"labels", rep.Labels,
		"candidates", len(candidates),
	)

	return rep, nil
}

// Learn remembers a confirmed pairing for later runs. Failures are logged.
func (s *Service) Learn(ctx context.Context, a, b string) {
	if err := s.repo.CreateLinks(ctx, []pairing.Link{{A: a, B: b}}); err != nil {
		slog.Warn("failed to store confirmed pairing", "a", a, "b", b, "error", err)
	}
}

func (s *Service) match(
	ctx context.Context,
	target *document.Record,
	candidates []*document.Record,
) (*report.Report, *document.Record, error) {
	opts := s.engine.Options
	opts.Confirmed = s.confirmedLinks(ctx, target, candidates)

	ranked, err := s.engine.Predictor.PredictPairings(ctx, target, candidates, opts)
	if err != nil {
		slog.Error("pairing failed", "document_id", target.ID, "error", err)
		return s.pairingError(target), nil, nil
	}

	if len(ranked) == 0 {
		return s.engine.Assembler.NoMatch(target, nil), nil, nil
	}

	best := ranked[0]

	partner := find(candidates, best.ID)
	if partner == nil {
		slog.Error("pairing failed",
			"document_id", target.ID,
			"error", fmt.Errorf("%s: %w", best.ID, ErrPartnerMissing))

		return s.pairingError(target), nil, nil
	}

	in := report.MatchInput{
		Target:             target,
		Match:              partner,
		Certainty:          best.Score,
		DocumentDeviations: deviation.CollectDocumentDeviations(target, partner),
	}

	if err := s.compareItems(ctx, &in); err != nil {
		return nil, nil, err
	}

	rep := s.engine.Assembler.Match(in)

	if s.isThreeWay(target, partner, ranked, candidates) {
		rep.AddLabel(report.LabelThreeWayMatch)
	}

	return rep, partner, nil
}

func (s *Service) compareItems(ctx context.Context, in *report.MatchInput) error {
	if len(in.Target.Items) == 0 || len(in.Match.Items) == 0 {
		return nil
	}

	res, err := s.engine.Items.PairItems(ctx, in.Target.Items, in.Match.Items)
	if err != nil {
		if errors.Is(err, itempairing.ErrComparisonUnavailable) {
			slog.Warn("item comparison unavailable", "document_id", in.Target.ID, "error", err)

			in.ItemsUnavailable = true

			return nil
		}

		return fmt.Errorf("pairing items: %w", err)
	}

	for _, p := range res.Pairs {
		in.Pairs = append(in.Pairs, report.PairInput{
			A:     p.A,
			B:     p.B,
			Score: p.Score,
			Deviations: deviation.CollectItemPairDeviations(
				[]document.Kind{p.A.Kind, p.B.Kind},
				[]document.Fields{p.A.Fields, p.B.Fields},
				p.Similarities(),
			),
		})
	}

	in.UnmatchedTarget = unmatched(res.UnmatchedA)
	in.UnmatchedMatch = unmatched(res.UnmatchedB)

	return nil
}

func unmatched(items []document.Item) []report.UnmatchedInput {
	var out []report.UnmatchedInput

	for _, item := range items {
		u := report.UnmatchedInput{Item: item}

		if dev, ok := deviation.UnmatchedItem(item); ok {
			u.Deviations = []deviation.Deviation{dev}
		}

		out = append(out, u)
	}

	return out
}

// isThreeWay reports whether the run links an invoice, a delivery receipt
// and a purchase order that share purchase order lines.
func (s *Service) isThreeWay(
	target, partner *document.Record,
	ranked []pairing.Candidate,
	candidates []*document.Record,
) bool {
	byKind := map[document.Kind]*document.Record{
		target.Kind: target,
	}

	if _, ok := byKind[partner.Kind]; !ok {
		byKind[partner.Kind] = partner
	}

	for _, c := range ranked {
		rec := find(candidates, c.ID)
		if rec == nil {
			continue
		}

		if _, ok := byKind[rec.Kind]; !ok {
			byKind[rec.Kind] = rec
		}
	}

	inv := byKind[document.KindInvoice]
	del := byKind[document.KindDeliveryReceipt]
	po := byKind[document.KindPurchaseOrder]

	if inv == nil || del == nil || po == nil {
		return false
	}

	return threeway.ShouldMerge(inv, del, po).Merge
}

func (s *Service) confirmedLinks(ctx context.Context, target *document.Record, candidates []*document.Record) []pairing.Link {
	ids := make([]string, 0, len(candidates)+1)
	ids = append(ids, target.ID)

	for _, c := range candidates {
		if c != nil {
			ids = append(ids, c.ID)
		}
	}

	links, err := s.repo.FindLinks(ctx, ids)
	if err != nil {
		slog.Warn("failed to load confirmed pairings", "document_id", target.ID, "error", err)
		return nil
	}

	return links
}

func (s *Service) pairingError(target *document.Record) *report.Report {
	rep := s.engine.Assembler.NoMatch(target, nil)
	rep.AddLabel(report.LabelPairingError)

	return rep
}

func find(records []*document.Record, id string) *document.Record {
	for _, r := range records {
		if r != nil && r.ID == id {
			return r
		}
	}

	return nil
}
