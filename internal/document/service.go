package document

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=document
type Repository interface {
	SaveDocument(ctx context.Context, p *Payload, rec *Record) error
	GetDocument(ctx context.Context, id string) (*Payload, error)
	ListDocuments(ctx context.Context, filter ListFilter) ([]*Payload, error)
	DeleteDocument(ctx context.Context, id string) error

	// FindCandidates returns stored documents of another kind that share a
	// supplier or an order reference with rec.
	FindCandidates(ctx context.Context, rec *Record, limit int) ([]*Payload, error)

	BeginImport(ctx context.Context, ids []string) (ImportTx, error)
}

type ImportTx interface {
	FindExisting(ctx context.Context, ids []string) ([]string, error)
	SaveDocuments(ctx context.Context, docs []Stored) error
	Commit() error
	Rollback() error
}

// Stored pairs a payload with its projection for persistence.
type Stored struct {
	Payload *Payload
	Record  *Record
}

type ListFilter struct {
	Kind       *Kind
	SupplierID *string
	Limit      int
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Save validates p and stores it, replacing a document with the same id.
func (s *Service) Save(ctx context.Context, p *Payload) (*Record, error) {
	rec, err := Project(p)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SaveDocument(ctx, p, rec); err != nil {
		return nil, fmt.Errorf("saving document %s: %w", p.ID, err)
	}

	return rec, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Payload, error) {
	return s.repo.GetDocument(ctx, id)
}

// Record loads a stored document and projects it.
func (s *Service) Record(ctx context.Context, id string) (*Record, error) {
	p, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	rec, err := Project(p)
	if err != nil {
		return nil, fmt.Errorf("projecting document %s: %w", id, err)
	}

	return rec, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Payload, error) {
	return s.repo.ListDocuments(ctx, filter)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.DeleteDocument(ctx, id)
}

// Candidates returns the stored documents rec could be paired with. Stored
// payloads that no longer project are skipped.
func (s *Service) Candidates(ctx context.Context, rec *Record, limit int) ([]*Record, error) {
	payloads, err := s.repo.FindCandidates(ctx, rec, limit)
	if err != nil {
		return nil, fmt.Errorf("finding candidates for %s: %w", rec.ID, err)
	}

	recs := make([]*Record, 0, len(payloads))

	for _, p := range payloads {
		if p.ID == rec.ID {
			continue
		}

		c, err := Project(p)
		if err != nil {
			slog.Warn("skipping stored document", "document_id", p.ID, "error", err)
			continue
		}

		recs = append(recs, c)
	}

	return recs, nil
}

type ImportResult struct {
	Imported  []string
	Conflicts []string
	Invalid   []InvalidDocument
}

type InvalidDocument struct {
	ID     string
	Reason string
}

// ImportBatch stores a batch of historical documents in one transaction.
// Documents whose id already exists are reported as conflicts and nothing is
// written, unless overwrite is set. Documents that fail projection are
// reported and skipped.
func (s *Service) ImportBatch(ctx context.Context, payloads []Payload, overwrite bool) (*ImportResult, error) {
	result := &ImportResult{}

	var docs []Stored

	seen := make(map[string]struct{}, len(payloads))

	for i := range payloads {
		p := &payloads[i]

		rec, err := Project(p)
		if err != nil {
			result.Invalid = append(result.Invalid, InvalidDocument{ID: p.ID, Reason: err.Error()})
			continue
		}

		if _, dup := seen[rec.ID]; dup {
			result.Invalid = append(result.Invalid, InvalidDocument{ID: p.ID, Reason: "duplicate id in batch"})
			continue
		}

		seen[rec.ID] = struct{}{}

		docs = append(docs, Stored{Payload: p, Record: rec})
	}

	if len(docs) == 0 {
		return result, nil
	}

	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.Record.ID
	}

	itx, err := s.repo.BeginImport(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	existing, err := itx.FindExisting(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find existing: %w", err)
	}

	if len(existing) > 0 && !overwrite {
		slices.Sort(existing)
		result.Conflicts = existing

		return result, nil
	}

	if err := itx.SaveDocuments(ctx, docs); err != nil {
		return nil, fmt.Errorf("save documents: %w", err)
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	result.Imported = ids

	slog.Info("imported documents", "count", len(ids), "overwritten", len(existing))

	return result, nil
}
