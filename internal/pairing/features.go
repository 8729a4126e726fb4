package pairing

import (
	"math"

	"github.com/MrJamesThe3rd/docmatch/internal/document"
)

// Features describes a candidate pair for the classifier. For an
// invoice/purchase order pair the values are always computed in invoice,
// purchase order order, whichever side is the target.
type Features struct {
	NumInvoiceArticles    float64
	NumPOArticles         float64
	NumMatchingArticles   float64
	ExcVatDiff            float64
	IncVatDiff            float64
	IncVatDiffFrac        float64
	ExcVatDiffFrac        float64
	DateDiffDays          float64
	NumPreviouslyMatched  float64
	MissingInvoiceArticle float64
	ExtraPOArticles       float64
	ArticlePrecision      float64
	ArticleRecall         float64
	AmountDiffBelowOne    bool
	SameDay               bool
	PreviouslyUnmatched   bool
}

// VectorLen is the length of Features.Vector.
const VectorLen = 16 * 4

// ComputeFeatures builds the comparison features for a pair.
func ComputeFeatures(a, b *document.Record) Features {
	first, second := canonical(a, b)

	arts1 := first.ArticleNumbers()
	arts2 := second.ArticleNumbers()

	matching := 0

	for art := range arts1 {
		if _, ok := arts2[art]; ok {
			matching++
		}
	}

	inc1, _ := first.IncVatAmount().Float64()
	inc2, _ := second.IncVatAmount().Float64()
	exc1, _ := first.ExcVatAmount().Float64()
	exc2, _ := second.ExcVatAmount().Float64()

	f := Features{
		NumInvoiceArticles:  float64(len(arts1)),
		NumPOArticles:       float64(len(arts2)),
		NumMatchingArticles: float64(matching),
		ExcVatDiff:          exc1 - exc2,
		IncVatDiff:          inc1 - inc2,
		IncVatDiffFrac:      fraction(inc1, inc2),
		ExcVatDiffFrac:      fraction(exc1, exc2),
		DateDiffDays:        dateDiffDays(first, second),
	}

	f.MissingInvoiceArticle = f.NumInvoiceArticles - f.NumMatchingArticles
	f.ExtraPOArticles = f.NumPOArticles - f.NumMatchingArticles
	f.ArticlePrecision = f.NumMatchingArticles / orOne(f.NumInvoiceArticles)
	f.ArticleRecall = f.NumMatchingArticles / orOne(f.NumPOArticles)
	f.AmountDiffBelowOne = math.Abs(f.ExcVatDiff) < 1 || math.Abs(f.IncVatDiff) < 1
	f.SameDay = f.DateDiffDays == 0
	f.PreviouslyUnmatched = f.NumPreviouslyMatched == 0

	return f
}

// Vector expands every feature x into max(0,x), min(0,x), x², and
// sign(x)·log(1+|x|).
func (f Features) Vector() []float64 {
	base := []float64{
		f.NumInvoiceArticles,
		f.NumPOArticles,
		f.NumMatchingArticles,
		f.ExcVatDiff,
		f.IncVatDiff,
		f.IncVatDiffFrac,
		f.ExcVatDiffFrac,
		f.DateDiffDays,
		f.NumPreviouslyMatched,
		f.MissingInvoiceArticle,
		f.ExtraPOArticles,
		f.ArticlePrecision,
		f.ArticleRecall,
		boolFloat(f.AmountDiffBelowOne),
		boolFloat(f.SameDay),
		boolFloat(f.PreviouslyUnmatched),
	}

	out := make([]float64, 0, VectorLen)
	for _, x := range base {
		out = append(out,
			math.Max(0, x),
			math.Min(0, x),
			x*x,
			sign(x)*math.Log1p(math.Abs(x)),
		)
	}

	return out
}

// canonical puts the invoice first for invoice/purchase order pairs and
// keeps the given order otherwise.
func canonical(a, b *document.Record) (*document.Record, *document.Record) {
	if a.Kind == document.KindPurchaseOrder && b.Kind == document.KindInvoice {
		return b, a
	}

	return a, b
}

func fraction(x, y float64) float64 {
	return 2 * (x - y) / orOne(x+y)
}

func orOne(x float64) float64 {
	if x == 0 {
		return 1
	}

	return x
}

func dateDiffDays(a, b *document.Record) float64 {
	if a.CreatedAt == nil || b.CreatedAt == nil {
		return 0
	}

	return math.Floor(a.CreatedAt.Sub(*b.CreatedAt).Hours() / 24)
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}

	return 0
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}

	return 0
}
