package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docmatch/internal/matching"
	"github.com/MrJamesThe3rd/docmatch/internal/report"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=job
type Repository interface {
	CreateJob(ctx context.Context, j *Job) error
	UpdateJob(ctx context.Context, j *Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*Job, error)
}

type Matcher interface {
	MatchRequest(ctx context.Context, req matching.Request) (*report.Report, error)
}

type Service struct {
	repo    Repository
	matcher Matcher
	// processingCap truncates the candidates of each request; zero disables it.
	processingCap int

	wg sync.WaitGroup
}

func NewService(repo Repository, matcher Matcher, processingCap int) *Service {
	return &Service{repo: repo, matcher: matcher, processingCap: processingCap}
}

// Submit stores a pending job and processes its requests in the background,
// one at a time.
func (s *Service) Submit(ctx context.Context, reqs []matching.Request) (*Job, error) {
	j := &Job{
		ID:            uuid.New(),
		Status:        StatusPending,
		CreatedAt:     time.Now().UTC(),
		TotalRequests: len(reqs),
	}

	if err := s.repo.CreateJob(ctx, j); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}

	slog.Info("batch job created", "job_id", j.ID, "requests", len(reqs))

	snapshot := *j

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		s.run(context.WithoutCancel(ctx), j, reqs)
	}()

	return &snapshot, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	return s.repo.GetJob(ctx, id)
}

// Wait blocks until every submitted job has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) run(ctx context.Context, j *Job, reqs []matching.Request) {
	j.Status = StatusProcessing
	if err := s.repo.UpdateJob(ctx, j); err != nil {
		s.fail(ctx, j, fmt.Errorf("marking job processing: %w", err))
		return
	}

	for idx, req := range reqs {
		j.Results = append(j.Results, s.process(ctx, j.ID, idx, req))
		j.CompletedRequests = idx + 1

		if err := s.repo.UpdateJob(ctx, j); err != nil {
			slog.Warn("failed to store job progress", "job_id", j.ID, "error", err)
		}
	}

	now := time.Now().UTC()
	j.Status = StatusCompleted
	j.CompletedAt = &now

	if err := s.repo.UpdateJob(ctx, j); err != nil {
		s.fail(ctx, j, fmt.Errorf("completing job: %w", err))
		return
	}

	slog.Info("batch job completed", "job_id", j.ID, "requests", len(reqs))
}

func (s *Service) process(ctx context.Context, id uuid.UUID, idx int, req matching.Request) Result {
	if n, truncated := req.Truncate(s.processingCap); truncated {
		slog.Warn("candidate count exceeds processing cap",
			"job_id", id,
			"request_index", idx,
			"candidates", n,
			"cap", s.processingCap,
		)
	}

	ctx = matching.WithTraceID(ctx, fmt.Sprintf("batch-%s-%d", id, idx))

	rep, err := s.matcher.MatchRequest(ctx, req)
	if err != nil {
		slog.Error("batch request failed", "job_id", id, "request_index", idx, "error", err)
		return Result{RequestIndex: idx, Error: err.Error()}
	}

	return Result{RequestIndex: idx, Report: rep}
}

func (s *Service) fail(ctx context.Context, j *Job, cause error) {
	slog.Error("batch job failed", "job_id", j.ID, "error", cause)

	now := time.Now().UTC()
	j.Status = StatusFailed
	j.Error = cause.Error()
	j.CompletedAt = &now

	if err := s.repo.UpdateJob(ctx, j); err != nil {
		slog.Error("failed to store job failure", "job_id", j.ID, "error", err)
	}
}
