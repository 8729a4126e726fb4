package matching

import (
	"context"
	"fmt"

	"github.com/MrJamesThe3rd/docmatch/internal/document"
	"github.com/MrJamesThe3rd/docmatch/internal/report"
)

// Request is a match request as received over the wire.
type Request struct {
	Document   document.Payload   `json:"document"`
	Candidates []document.Payload `json:"candidate-documents"`
}

// Truncate keeps at most limit candidates. It returns the original count and
// whether anything was dropped. A non-positive limit keeps everything.
func (r *Request) Truncate(limit int) (int, bool) {
	n := len(r.Candidates)
	if limit <= 0 || n <= limit {
		return n, false
	}

	r.Candidates = r.Candidates[:limit]

	return n, true
}

// MatchRequest projects the wire documents and runs Match. Any document that
// does not project fails the whole request.
func (s *Service) MatchRequest(ctx context.Context, req Request) (*report.Report, error) {
	target, err := document.Project(&req.Document)
	if err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}

	candidates, err := document.ProjectAll(req.Candidates)
	if err != nil {
		return nil, fmt.Errorf("candidate-documents: %w", err)
	}

	return s.Match(ctx, target, candidates)
}

type traceKey struct{}

// WithTraceID attaches a request trace id to ctx for logging.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}
