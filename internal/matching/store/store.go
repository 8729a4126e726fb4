package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/MrJamesThe3rd/docmatch/internal/pairing"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) FindLinks(ctx context.Context, ids []string) ([]pairing.Link, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))

	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	in := strings.Join(placeholders, ", ")

	query := `
		SELECT doc_a, doc_b
		FROM document_links
		WHERE doc_a IN (` + in + `) OR doc_b IN (` + in + `)
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("finding links: %w", err)
	}
	defer rows.Close()

	var links []pairing.Link

	for rows.Next() {
		var l pairing.Link
		if err := rows.Scan(&l.A, &l.B); err != nil {
			return nil, fmt.Errorf("scanning link: %w", err)
		}

		links = append(links, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating links: %w", err)
	}

	return links, nil
}

// CreateLinks stores links. Each pair is stored once regardless of order.
func (s *Store) CreateLinks(ctx context.Context, links []pairing.Link) error {
	query := `
		INSERT INTO document_links (doc_a, doc_b, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (doc_a, doc_b) DO NOTHING
	`

	for _, l := range links {
		a, b := l.A, l.B
		if b < a {
			a, b = b, a
		}

		if _, err := s.db.ExecContext(ctx, query, a, b); err != nil {
			return fmt.Errorf("creating link: %w", err)
		}
	}

	return nil
}
