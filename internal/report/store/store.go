package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MrJamesThe3rd/docmatch/internal/report"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (*report.Report, error) {
	var payload []byte

	if err := s.Scan(&payload); err != nil {
		return nil, err
	}

	var r report.Report
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}

	return &r, nil
}

// SaveReport stores r, replacing an earlier report with the same id.
func (s *Store) SaveReport(ctx context.Context, r *report.Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	query := `
		INSERT INTO reports (id, payload, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, created_at = EXCLUDED.created_at
	`

	if _, err := s.db.ExecContext(ctx, query, r.ID, payload, r.CreatedAt); err != nil {
		return fmt.Errorf("saving report: %w", err)
	}

	return nil
}

func (s *Store) GetReport(ctx context.Context, id string) (*report.Report, error) {
	r, err := scanReport(s.db.QueryRowContext(ctx, `SELECT payload FROM reports WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, report.ErrNotFound
		}

		return nil, fmt.Errorf("getting report: %w", err)
	}

	return r, nil
}

func (s *Store) ListReports(ctx context.Context, filter report.ListFilter) ([]*report.Report, error) {
	query := `SELECT payload FROM reports WHERE TRUE`

	var args []any

	argIdx := 1

	if filter.Label != nil {
		query += fmt.Sprintf(" AND payload->'labels' @> to_jsonb($%d::text)", argIdx)

		args = append(args, *filter.Label)
		argIdx++
	}

	if filter.DocumentID != nil {
		query += fmt.Sprintf(" AND payload->'documents' @> jsonb_build_array(jsonb_build_object('id', $%d::text))", argIdx)

		args = append(args, *filter.DocumentID)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)

		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	defer rows.Close()

	var reports []*report.Report

	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning report: %w", err)
		}

		reports = append(reports, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reports: %w", err)
	}

	return reports, nil
}
