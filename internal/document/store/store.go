package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"slices"

	"github.com/MrJamesThe3rd/docmatch/internal/document"
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

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func scanPayload(s scanner) (*document.Payload, error) {
	var raw []byte

	if err := s.Scan(&raw); err != nil {
		return nil, err
	}

	var p document.Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}

	return &p, nil
}

func (s *Store) SaveDocument(ctx context.Context, p *document.Payload, rec *document.Record) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	if err := saveDocument(ctx, dbTx, document.Stored{Payload: p, Record: rec}); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// saveDocument upserts the document row and rewrites its supplier and
// reference index rows.
func saveDocument(ctx context.Context, ex execer, d document.Stored) error {
	payload, err := json.Marshal(d.Payload)
	if err != nil {
		return fmt.Errorf("encoding document %s: %w", d.Record.ID, err)
	}

	query := `
		INSERT INTO documents (id, kind, site, order_ref, document_date, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			site = EXCLUDED.site,
			order_ref = EXCLUDED.order_ref,
			document_date = EXCLUDED.document_date,
			payload = EXCLUDED.payload,
			updated_at = NOW()
	`

	rec := d.Record

	if _, err := ex.ExecContext(ctx, query,
		rec.ID,
		string(rec.Kind),
		rec.Site,
		rec.OrderRef,
		rec.CreatedAt,
		payload,
	); err != nil {
		return fmt.Errorf("saving document %s: %w", rec.ID, err)
	}

	if _, err := ex.ExecContext(ctx, `DELETE FROM document_suppliers WHERE document_id = $1`, rec.ID); err != nil {
		return fmt.Errorf("clearing suppliers of %s: %w", rec.ID, err)
	}

	for _, supplier := range rec.SupplierIDs {
		if _, err := ex.ExecContext(ctx, `
			INSERT INTO document_suppliers (document_id, supplier_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, rec.ID, supplier); err != nil {
			return fmt.Errorf("saving supplier of %s: %w", rec.ID, err)
		}
	}

	if _, err := ex.ExecContext(ctx, `DELETE FROM document_refs WHERE document_id = $1`, rec.ID); err != nil {
		return fmt.Errorf("clearing references of %s: %w", rec.ID, err)
	}

	for _, ref := range rec.References() {
		if _, err := ex.ExecContext(ctx, `
			INSERT INTO document_refs (document_id, ref)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, rec.ID, ref); err != nil {
			return fmt.Errorf("saving reference of %s: %w", rec.ID, err)
		}
	}

	return nil
}

func (s *Store) GetDocument(ctx context.Context, id string) (*document.Payload, error) {
	p, err := scanPayload(s.db.QueryRowContext(ctx, `SELECT payload FROM documents WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, document.ErrNotFound
		}

		return nil, fmt.Errorf("getting document: %w", err)
	}

	return p, nil
}

func (s *Store) ListDocuments(ctx context.Context, filter document.ListFilter) ([]*document.Payload, error) {
	query := `SELECT d.payload FROM documents d WHERE TRUE`

	var args []any

	argIdx := 1

	if filter.Kind != nil {
		query += fmt.Sprintf(" AND d.kind = $%d", argIdx)

		args = append(args, string(*filter.Kind))
		argIdx++
	}

	if filter.SupplierID != nil {
		query += fmt.Sprintf(" AND d.id IN (SELECT document_id FROM document_suppliers WHERE supplier_id = $%d)", argIdx)

		args = append(args, *filter.SupplierID)
		argIdx++
	}

	query += " ORDER BY d.document_date DESC NULLS LAST, d.id ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)

		args = append(args, filter.Limit)
	}

	return s.queryPayloads(ctx, query, args...)
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}

	if n == 0 {
		return document.ErrNotFound
	}

	return nil
}

func (s *Store) FindCandidates(ctx context.Context, rec *document.Record, limit int) ([]*document.Payload, error) {
	suppliers := rec.SupplierIDs
	if suppliers == nil {
		suppliers = []string{}
	}

	refs := rec.References()
	if refs == nil {
		refs = []string{}
	}

	query := `
		SELECT d.payload
		FROM documents d
		WHERE d.kind <> $1 AND d.id <> $2
		AND (
			d.id IN (SELECT document_id FROM document_suppliers WHERE supplier_id = ANY($3))
			OR d.id IN (SELECT document_id FROM document_refs WHERE ref = ANY($4))
		)
		ORDER BY d.document_date DESC NULLS LAST, d.id ASC`

	args := []any{string(rec.Kind), rec.ID, suppliers, refs}

	if limit > 0 {
		query += " LIMIT $5"

		args = append(args, limit)
	}

	return s.queryPayloads(ctx, query, args...)
}

func (s *Store) queryPayloads(ctx context.Context, query string, args ...any) ([]*document.Payload, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var payloads []*document.Payload

	for rows.Next() {
		p, err := scanPayload(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}

		payloads = append(payloads, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return payloads, nil
}

// importLockKeys maps ids to advisory lock keys, sorted so concurrent
// imports acquire shared keys in the same order.
func importLockKeys(ids []string) []int64 {
	keys := make([]int64, 0, len(ids))

	for _, id := range ids {
		h := fnv.New64a()
		h.Write([]byte(id))

		keys = append(keys, int64(h.Sum64()))
	}

	slices.Sort(keys)

	return slices.Compact(keys)
}

type importTx struct {
	tx *sql.Tx
}

func (s *Store) BeginImport(ctx context.Context, ids []string) (document.ImportTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import tx: %w", err)
	}

	for _, key := range importLockKeys(ids) {
		if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", key); err != nil {
			dbTx.Rollback()
			return nil, fmt.Errorf("acquiring import lock: %w", err)
		}
	}

	return &importTx{tx: dbTx}, nil
}

func (itx *importTx) Commit() error   { return itx.tx.Commit() }
func (itx *importTx) Rollback() error { return itx.tx.Rollback() }

func (itx *importTx) FindExisting(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := itx.tx.QueryContext(ctx, `SELECT id FROM documents WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("finding existing documents: %w", err)
	}
	defer rows.Close()

	var existing []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning document id: %w", err)
		}

		existing = append(existing, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating existing documents: %w", err)
	}

	return existing, nil
}

func (itx *importTx) SaveDocuments(ctx context.Context, docs []document.Stored) error {
	for _, d := range docs {
		if err := saveDocument(ctx, itx.tx, d); err != nil {
			return err
		}
	}

	return nil
}
