package report

import (
	"log/slog"
	"time"

	"github.com/MrJamesThe3rd/docmatch/internal/deviation"
	"github.com/MrJamesThe3rd/docmatch/internal/document"
)

const (
	DefaultMatchedThreshold = 0.5
	DefaultNoMatchThreshold = 0.2

	// NoMatchCertainty is the certainty of a report that found no partner.
	NoMatchCertainty = 0.95

	unchangedCertain   = 0.95
	unchangedUncertain = 0.5
)

type Thresholds struct {
	Matched float64
	NoMatch float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Matched: DefaultMatchedThreshold, NoMatch: DefaultNoMatchThreshold}
}

// Validated returns t with out-of-range values replaced by the defaults.
func (t Thresholds) Validated() Thresholds {
	valid := func(v float64) bool { return v >= 0 && v <= 1 }

	if !valid(t.Matched) || !valid(t.NoMatch) || t.NoMatch > t.Matched {
		slog.Warn("invalid report thresholds, using defaults",
			"matched", t.Matched, "no_match", t.NoMatch)

		return DefaultThresholds()
	}

	return t
}

// Label maps a pairing certainty to its outcome label.
func (t Thresholds) Label(certainty float64) string {
	switch {
	case certainty >= t.Matched:
		return LabelMatched
	case certainty >= t.NoMatch:
		return LabelUncertain
	}

	return LabelNoMatch
}

type PairInput struct {
	A          document.Item
	B          document.Item
	Score      float64
	Deviations []deviation.Deviation
}

type UnmatchedInput struct {
	Item       document.Item
	Deviations []deviation.Deviation
}

type MatchInput struct {
	Target *document.Record
	Match  *document.Record
	// Certainty is the pairing confidence of Match.
	Certainty          float64
	DocumentDeviations []deviation.Deviation
	Pairs              []PairInput
	UnmatchedTarget    []UnmatchedInput
	UnmatchedMatch     []UnmatchedInput
	// ItemsUnavailable marks a run where item comparison could not be done.
	ItemsUnavailable bool
}

type Assembler struct {
	th  Thresholds
	now func() time.Time
}

func NewAssembler(th Thresholds) *Assembler {
	return &Assembler{th: th.Validated(), now: time.Now}
}

// Match assembles the report of a paired target.
func (a *Assembler) Match(in MatchInput) *Report {
	certainty := clamp(in.Certainty)
	outcome := a.th.Label(certainty)

	r := a.base(reportID(in.Target.ID, in.Match.ID), in.Target, in.Match)
	r.Labels = []string{outcome}

	switch {
	case in.ItemsUnavailable:
		r.AddLabel(LabelItemsUnavailable)
	case len(in.Pairs) > 0:
		r.AddLabel(LabelMatchedItems)
	default:
		r.AddLabel(LabelNoItems)
	}

	r.Deviations = nonNil(in.DocumentDeviations)

	severities := []deviation.Severity{deviation.Aggregate(in.DocumentDeviations)}

	for _, p := range in.Pairs {
		sev := deviation.Aggregate(p.Deviations)
		severities = append(severities, sev)

		unchanged := unchangedUncertain
		if sev <= deviation.SeverityInfo {
			unchanged = unchangedCertain
		}

		r.ItemPairs = append(r.ItemPairs, ItemPair{
			ItemIndices:            [2]*int{new(p.A.Index), new(p.B.Index)},
			MatchType:              MatchTypeMatched,
			MatchScore:             new(p.Score),
			DeviationSeverity:      sev,
			ItemUnchangedCertainty: unchanged,
			Deviations:             nonNil(p.Deviations),
		})

		if deviation.Has(p.Deviations, deviation.CodePartialDelivery) {
			r.AddLabel(LabelPartialDelivery)
		}
	}

	for _, u := range in.UnmatchedTarget {
		severities = append(severities, deviation.Aggregate(u.Deviations))
		r.ItemPairs = append(r.ItemPairs, unmatched([2]*int{new(u.Item.Index), nil}, u.Deviations))
	}

	for _, u := range in.UnmatchedMatch {
		severities = append(severities, deviation.Aggregate(u.Deviations))
		r.ItemPairs = append(r.ItemPairs, unmatched([2]*int{nil, new(u.Item.Index)}, u.Deviations))
	}

	matched := outcome == LabelMatched

	r.Metrics = []Metric{
		{Name: MetricCertainty, Value: certainty},
		{Name: MetricDeviationSeverity, Value: deviation.Max(severities...)},
		{Name: FutureMatchMetric(in.Target.Kind), Value: futureMatchCertainty(in.Target, matched)},
		{Name: FutureMatchMetric(in.Match.Kind), Value: futureMatchCertainty(in.Match, matched)},
		{Name: MetricMatchedItemPairs, Value: len(in.Pairs)},
		{Name: TotalItemsMetric(in.Target.Kind), Value: len(in.Target.Items)},
		{Name: TotalItemsMetric(in.Match.Kind), Value: len(in.Match.Items)},
	}

	return r
}

// NoMatch assembles the report of a target without partner. other is the
// rejected candidate, if any.
func (a *Assembler) NoMatch(target, other *document.Record) *Report {
	otherID := ""
	if other != nil {
		otherID = other.ID
	}

	r := a.base(reportID(target.ID, otherID)+"-nomatch", target, other)
	r.Labels = []string{LabelNoMatch}
	r.Deviations = []deviation.Deviation{}

	r.Metrics = []Metric{
		{Name: MetricCertainty, Value: NoMatchCertainty},
		{Name: MetricDeviationSeverity, Value: deviation.SeverityNone},
		{Name: FutureMatchMetric(target.Kind), Value: futureMatchCertainty(target, false)},
		{Name: MetricMatchedItemPairs, Value: 0},
		{Name: TotalItemsMetric(target.Kind), Value: len(target.Items)},
	}

	if other != nil {
		r.Metrics = append(r.Metrics,
			Metric{Name: FutureMatchMetric(other.Kind), Value: futureMatchCertainty(other, false)},
			Metric{Name: TotalItemsMetric(other.Kind), Value: len(other.Items)},
		)
	}

	return r
}

func (a *Assembler) base(id string, target, other *document.Record) *Report {
	r := &Report{
		ID:        id,
		Version:   Version,
		Kind:      Kind,
		Site:      site(target, other),
		Stage:     Stage,
		Documents: []DocumentRef{{Kind: target.Kind, ID: target.ID}},
		ItemPairs: []ItemPair{},
		CreatedAt: a.now().UTC(),
	}

	if other != nil {
		r.Documents = append(r.Documents, DocumentRef{Kind: other.Kind, ID: other.ID})
	}

	return r
}

func unmatched(indices [2]*int, devs []deviation.Deviation) ItemPair {
	return ItemPair{
		ItemIndices:       indices,
		MatchType:         MatchTypeUnmatched,
		DeviationSeverity: deviation.Aggregate(devs),
		Deviations:        nonNil(devs),
	}
}

// futureMatchCertainty estimates how likely doc is to be matched by a
// document that has not arrived yet.
func futureMatchCertainty(doc *document.Record, matched bool) float64 {
	switch doc.Kind {
	case document.KindInvoice:
		if matched {
			return 0.1
		}

		if doc.OrderRef != "" {
			return 0.85
		}

		return 0.5
	case document.KindPurchaseOrder:
		if matched {
			return 0.3
		}

		return 0.7
	case document.KindDeliveryReceipt:
		if matched {
			return 0.1
		}

		return 0.6
	}

	return 0
}

func site(docs ...*document.Record) string {
	for _, d := range docs {
		if d != nil && d.Site != "" {
			return d.Site
		}
	}

	return UnknownSite
}

func clamp(v float64) float64 {
	return min(max(v, 0), 1)
}

func nonNil(devs []deviation.Deviation) []deviation.Deviation {
	if devs == nil {
		return []deviation.Deviation{}
	}

	return devs
}
