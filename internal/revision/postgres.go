package revision

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/gogotex/pagebuilder/internal/content"
	"github.com/jackc/pgx/v5/pgxpool"
)

const revisionTable = "pagebuilder_revision"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore keeps revisions in the pagebuilder_revision table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) Append(ctx context.Context, r *Revision) error {
	query, args, err := psql.Insert(revisionTable).
		Columns("id", "content_id", "type", "status", "title", "identifier", "elements", "settings", "editor_id", "created_at").
		Values(r.ID, r.ContentID, r.Type, string(r.Status), r.Title, r.Identifier, r.Elements, r.Settings, r.EditorID, r.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}
	return nil
}

func (p *PostgresStore) ListByContent(ctx context.Context, contentID int64, limit int) ([]*Revision, error) {
	q := psql.Select("id::text", "content_id", "type", "status", "title", "identifier", "elements", "settings", "editor_id", "created_at").
		From(revisionTable).
		Where(sq.Eq{"content_id": contentID}).
		OrderBy("created_at DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()
	out := []*Revision{}
	for rows.Next() {
		var (
			r      Revision
			status string
		)
		if err := rows.Scan(&r.ID, &r.ContentID, &r.Type, &status, &r.Title, &r.Identifier, &r.Elements, &r.Settings, &r.EditorID, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Status = content.Status(status)
		out = append(out, &r)
	}
	return out, rows.Err()
}
