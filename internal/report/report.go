package report

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/MrJamesThe3rd/docmatch/internal/deviation"
	"github.com/MrJamesThe3rd/docmatch/internal/document"
)

var ErrNotFound = errors.New("report not found")

const (
	Version     = "v4.1-dev-split"
	Kind        = "match-report"
	Stage       = "output"
	UnknownSite = "unknown-site"
)

const (
	LabelMatched          = "matched"
	LabelUncertain        = "uncertain"
	LabelNoMatch          = "no-match"
	LabelMatchedItems     = "matched-items"
	LabelNoItems          = "potential-match-no-items"
	LabelPartialDelivery  = "partial-delivery"
	LabelItemsUnavailable = "items-unavailable"
	LabelPairingError     = "pairing-error"
	LabelThreeWayMatch    = "three-way-match"
)

const (
	MetricCertainty          = "certainty"
	MetricDeviationSeverity  = "deviation-severity"
	MetricMatchedItemPairs   = "matched-item-pairs"
	MetricCandidateDocuments = "candidate-documents"
)

const (
	MatchTypeMatched   = "matched"
	MatchTypeUnmatched = "unmatched"
)

type DocumentRef struct {
	Kind document.Kind `json:"kind"`
	ID   string        `json:"id"`
}

type Metric struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// ItemPair is one line of the item alignment. A nil index marks the side
// that has no counterpart.
type ItemPair struct {
	ItemIndices            [2]*int               `json:"item_indices"`
	MatchType              string                `json:"match_type"`
	MatchScore             *float64              `json:"match_score"`
	DeviationSeverity      deviation.Severity    `json:"deviation_severity"`
	ItemUnchangedCertainty float64               `json:"item_unchanged_certainty"`
	Deviations             []deviation.Deviation `json:"deviations"`
}

type Report struct {
	ID         string                `json:"id"`
	Version    string                `json:"version"`
	Kind       string                `json:"kind"`
	Site       string                `json:"site"`
	Stage      string                `json:"stage"`
	Documents  []DocumentRef         `json:"documents"`
	Labels     []string              `json:"labels"`
	Metrics    []Metric              `json:"metrics"`
	Deviations []deviation.Deviation `json:"deviations"`
	ItemPairs  []ItemPair            `json:"itempairs"`
	CreatedAt  time.Time             `json:"created_at"`
}

// HasLabel reports whether the report carries label.
func (r *Report) HasLabel(label string) bool {
	return slices.Contains(r.Labels, label)
}

// AddLabel appends label unless it is already present.
func (r *Report) AddLabel(label string) {
	if !r.HasLabel(label) {
		r.Labels = append(r.Labels, label)
	}
}

// Metric returns the value of the named metric.
func (r *Report) Metric(name string) (any, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m.Value, true
		}
	}

	return nil, false
}

// SetMetric replaces the named metric or appends it.
func (r *Report) SetMetric(name string, value any) {
	for i := range r.Metrics {
		if r.Metrics[i].Name == name {
			r.Metrics[i].Value = value
			return
		}
	}

	r.Metrics = append(r.Metrics, Metric{Name: name, Value: value})
}

// DocumentIDs returns the ids of the documents the report covers.
func (r *Report) DocumentIDs() []string {
	ids := make([]string, 0, len(r.Documents))
	for _, d := range r.Documents {
		ids = append(ids, d.ID)
	}

	return ids
}

// Matched reports whether the report confirms a pairing.
func (r *Report) Matched() bool {
	return r.HasLabel(LabelMatched) && len(r.Documents) == 2
}

func reportID(ids ...string) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)

	h := sha1.Sum([]byte(strings.Join(sorted, "\x00")))

	return "rep-" + hex.EncodeToString(h[:])[:8]
}

func TotalItemsMetric(kind document.Kind) string {
	return string(kind) + "-total-items"
}

func FutureMatchMetric(kind document.Kind) string {
	return string(kind) + "-has-future-match-certainty"
}
