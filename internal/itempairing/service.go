package itempairing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/MrJamesThe3rd/docmatch/internal/deviation"
	"github.com/MrJamesThe3rd/docmatch/internal/document"
)

// ErrComparisonUnavailable means item similarity could not be computed at
// all. It is distinct from "no items matched".
var ErrComparisonUnavailable = errors.New("item comparison unavailable")

// Signal weights for the combined score.
const (
	weightItemID      = 10.0
	weightUnitPrice   = 10.0
	weightDescription = 1.0
)

//go:generate mockgen -source=service.go -destination=embedder_mock.go -package=itempairing
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Service struct {
	embedder Embedder
}

func NewService(embedder Embedder) *Service {
	return &Service{embedder: embedder}
}

// Pair is an accepted item alignment.
type Pair struct {
	A, B        document.Item
	Score       float64
	ItemID      *float64
	Description *float64
	UnitPrice   *float64
}

func (p Pair) Similarities() deviation.Similarities {
	return deviation.Similarities{
		ItemID:      p.ItemID,
		Description: p.Description,
	}
}

type Result struct {
	Pairs      []Pair
	UnmatchedA []document.Item
	UnmatchedB []document.Item
}

// PairItems aligns items of b with items of a one-to-one. Each item of b, in
// order, claims the best acceptable unclaimed item of a. Claims are never
// revisited.
func (s *Service) PairItems(ctx context.Context, a, b []document.Item) (*Result, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("%w: no embedding function configured", ErrComparisonUnavailable)
	}

	left := append([]document.Item(nil), a...)
	right := append([]document.Item(nil), b...)

	run := &run{ctx: ctx, embedder: s.embedder, memo: make(map[string][]float32)}

	var pairs []Pair

	for j := range right {
		best := -1

		var bestPair Pair

		for i := range left {
			if left[i].Matched {
				continue
			}

			p, err := run.score(left[i], right[j])
			if err != nil {
				return nil, err
			}

			if !acceptable(p) {
				continue
			}

			if best < 0 || p.Score > bestPair.Score {
				best = i
				bestPair = p
			}
		}

		if best < 0 {
			continue
		}

		left[best].Matched = true
		right[j].Matched = true
		bestPair.A = left[best]
		bestPair.B = right[j]
		pairs = append(pairs, bestPair)
	}

	res := &Result{Pairs: pairs}

	for _, item := range left {
		if !item.Matched {
			res.UnmatchedA = append(res.UnmatchedA, item)
		}
	}

	for _, item := range right {
		if !item.Matched {
			res.UnmatchedB = append(res.UnmatchedB, item)
		}
	}

	return res, nil
}

// run scopes the embedding memo to one PairItems call.
type run struct {
	ctx      context.Context
	embedder Embedder
	memo     map[string][]float32
}

func (r *run) embed(text string) ([]float32, error) {
	if v, ok := r.memo[text]; ok {
		return v, nil
	}

	v, err := r.embedder.Embed(r.ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding %q: %w", ErrComparisonUnavailable, text, err)
	}

	r.memo[text] = v

	return v, nil
}

// textSimilarity is 1.0 for equal strings (including both empty), 0.0 when
// only one is empty, and the embedding dot product otherwise.
func (r *run) textSimilarity(x, y string) (float64, error) {
	switch {
	case x == y:
		return 1.0, nil
	case x == "" || y == "":
		return 0.0, nil
	}

	vx, err := r.embed(x)
	if err != nil {
		return 0, err
	}

	vy, err := r.embed(y)
	if err != nil {
		return 0, err
	}

	sim := dot(vx, vy)
	if math.IsNaN(sim) {
		slog.Warn("embedding similarity is NaN", "a", x, "b", y)
		return 0.0, nil
	}

	return sim, nil
}

func (r *run) score(a, b document.Item) (Pair, error) {
	idSim, err := r.textSimilarity(a.ArticleNumber, b.ArticleNumber)
	if err != nil {
		return Pair{}, err
	}

	descSim, err := r.textSimilarity(a.Description, b.Description)
	if err != nil {
		return Pair{}, err
	}

	p := Pair{
		ItemID:      &idSim,
		Description: &descSim,
		UnitPrice:   priceSimilarity(a, b),
	}

	total := weightItemID*idSim + weightDescription*descSim
	weights := weightItemID + weightDescription

	if p.UnitPrice != nil {
		total += weightUnitPrice * *p.UnitPrice
		weights += weightUnitPrice
	}

	p.Score = total / weights

	return p, nil
}

func priceSimilarity(a, b document.Item) *float64 {
	if !a.UnitPrice.Valid || !b.UnitPrice.Valid {
		return nil
	}

	p1, _ := a.UnitPrice.Decimal.Float64()
	p2, _ := b.UnitPrice.Decimal.Float64()

	var sim float64

	switch {
	case isClose(p1, p2, 1e-5):
		sim = 1.0
	case p1*p2 < 0:
		sim = 0.0
	default:
		hi := math.Max(math.Abs(p1), math.Abs(p2))
		sim = math.Min(math.Abs(p1), math.Abs(p2)) / hi
	}

	return &sim
}

func acceptable(p Pair) bool {
	id, desc := *p.ItemID, *p.Description
	priceOne := p.UnitPrice != nil && isClose(*p.UnitPrice, 1.0, 1e-9)

	switch {
	case id >= 0.99:
		return true
	case id > 0.8 && priceOne && desc > 0.4:
		return true
	case desc > 0.95 && priceOne && id < 0.5:
		return true
	}

	return false
}

func isClose(a, b, relTol float64) bool {
	return math.Abs(a-b) <= relTol*math.Max(math.Abs(a), math.Abs(b))
}

func dot(a, b []float32) float64 {
	n := min(len(a), len(b))

	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}

	return sum
}
