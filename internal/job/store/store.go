package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docmatch/internal/job"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateJob(ctx context.Context, j *job.Job) error {
	query := `
		INSERT INTO jobs (id, status, total_requests, completed_requests, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := s.db.ExecContext(ctx, query,
		j.ID,
		string(j.Status),
		j.TotalRequests,
		j.CompletedRequests,
		j.CreatedAt,
	); err != nil {
		return fmt.Errorf("creating job: %w", err)
	}

	return nil
}

func (s *Store) UpdateJob(ctx context.Context, j *job.Job) error {
	var results []byte

	if j.Results != nil {
		var err error

		results, err = json.Marshal(j.Results)
		if err != nil {
			return fmt.Errorf("encoding job results: %w", err)
		}
	}

	query := `
		UPDATE jobs
		SET status = $1, completed_requests = $2, results = $3, error = $4, completed_at = $5
		WHERE id = $6
	`

	if _, err := s.db.ExecContext(ctx, query,
		string(j.Status),
		j.CompletedRequests,
		results,
		j.Error,
		j.CompletedAt,
		j.ID,
	); err != nil {
		return fmt.Errorf("updating job: %w", err)
	}

	return nil
}

func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (*job.Job, error) {
	query := `
		SELECT id, status, total_requests, completed_requests, results, error, created_at, completed_at
		FROM jobs
		WHERE id = $1
	`

	var (
		j         job.Job
		statusStr string
		results   []byte
	)

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&j.ID, &statusStr, &j.TotalRequests, &j.CompletedRequests, &results, &j.Error,
		&j.CreatedAt, &j.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, job.ErrNotFound
		}

		return nil, fmt.Errorf("getting job: %w", err)
	}

	j.Status = job.Status(statusStr)

	if len(results) > 0 {
		if err := json.Unmarshal(results, &j.Results); err != nil {
			return nil, fmt.Errorf("decoding job results: %w", err)
		}
	}

	return &j, nil
}
