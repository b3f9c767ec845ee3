package vectorindex

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"

	_ "github.com/lib/pq"
	"kbchat/internal/port"
)

// PostgresIndex implements VectorIndex on Postgres with the pgvector
// extension. Schema is provisioned lazily on first use under a
// single-flight guard; a failed provisioning attempt is retried on the
// next call.
type PostgresIndex struct {
	db        *sql.DB
	dimension int

	mu    sync.Mutex
	ready bool
}

// NewPostgresIndex opens a pgvector-backed index. The database is not
// touched until the first operation.
func NewPostgresIndex(dsn string, dimension int) (*PostgresIndex, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return &PostgresIndex{db: db, dimension: dimension}, nil
}

func (p *PostgresIndex) ensureReady(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready {
		return nil
	}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS kb_sections (
  id TEXT PRIMARY KEY,
  document_id TEXT NOT NULL,
  section_title TEXT NOT NULL,
  content TEXT NOT NULL,
  language TEXT NOT NULL,
  embedding vector(%d) NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, p.dimension),
		`CREATE INDEX IF NOT EXISTS kb_sections_document_id_idx ON kb_sections (document_id)`,
	}
	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("provision kb_sections: %w", err)
		}
	}

	p.ready = true
	return nil
}

// Upsert writes all entries in one transaction: either the whole batch
// applies or none of it does. The return is named so the deferred
// commit can surface its error.
func (p *PostgresIndex) Upsert(ctx context.Context, entries []port.IndexEntry) (err error) {
	if len(entries) == 0 {
		return nil
	}
	if err := p.ensureReady(ctx); err != nil {
		return err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO kb_sections (id, document_id, section_title, content, language, embedding, updated_at)
VALUES ($1,$2,$3,$4,$5,$6::vector,NOW())
ON CONFLICT (id) DO UPDATE SET
  document_id = EXCLUDED.document_id,
  section_title = EXCLUDED.section_title,
  content = EXCLUDED.content,
  language = EXCLUDED.language,
  embedding = EXCLUDED.embedding,
  updated_at = NOW();
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		var lit string
		lit, err = encodeVectorLiteral(e.Vector)
		if err != nil {
			err = fmt.Errorf("entry %s: %w", e.ID, err)
			return err
		}
		if _, err = stmt.ExecContext(ctx, e.ID, e.Metadata.DocumentID, e.Metadata.SectionTitle, e.Metadata.Content, e.Metadata.Language, lit); err != nil {
			err = fmt.Errorf("upsert %s: %w", e.ID, err)
			return err
		}
	}
	return nil
}

// DeleteByFilter removes all rows matching the filter and returns the
// affected row count.
func (p *PostgresIndex) DeleteByFilter(ctx context.Context, f port.Filter) (int, error) {
	if err := p.ensureReady(ctx); err != nil {
		return 0, err
	}

	where, args := filterClause(f, 0)
	res, err := p.db.ExecContext(ctx, "DELETE FROM kb_sections"+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete by filter: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Query returns the topK nearest rows by cosine distance, filtered by
// metadata when a filter is given. Score is 1 - cosine distance.
func (p *PostgresIndex) Query(ctx context.Context, vector []float32, topK int, f *port.Filter) ([]port.Match, error) {
	if err := p.ensureReady(ctx); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 5
	}

	lit, err := encodeVectorLiteral(vector)
	if err != nil {
		return nil, err
	}

	var filter port.Filter
	if f != nil {
		filter = *f
	}
	where, args := filterClause(filter, 2)
	args = append([]any{lit, topK}, args...)

	rows, err := p.db.QueryContext(ctx, `
SELECT id, document_id, section_title, content, language, 1 - (embedding <=> $1::vector) AS score
FROM kb_sections`+where+`
ORDER BY embedding <=> $1::vector
LIMIT $2
`, args...)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	defer rows.Close()

	var matches []port.Match
	for rows.Next() {
		var m port.Match
		if err := rows.Scan(&m.ID, &m.Metadata.DocumentID, &m.Metadata.SectionTitle, &m.Metadata.Content, &m.Metadata.Language, &m.Score); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (p *PostgresIndex) Close() error {
	return p.db.Close()
}

// filterClause builds a WHERE clause for the set filter fields, with
// placeholders starting after offset.
func filterClause(f port.Filter, offset int) (string, []any) {
	var conds []string
	var args []any
	add := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, offset+len(args)))
	}
	add("document_id", f.DocumentID)
	add("section_title", f.SectionTitle)
	add("language", f.Language)
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// encodeVectorLiteral renders a vector as a pgvector text literal.
func encodeVectorLiteral(vec []float32) (string, error) {
	if len(vec) == 0 {
		return "", fmt.Errorf("vector must not be empty")
	}
	var builder strings.Builder
	builder.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			builder.WriteByte(',')
		}
		builder.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	builder.WriteByte(']')
	return builder.String(), nil
}
