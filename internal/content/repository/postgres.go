package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/gogotex/pagebuilder/internal/content"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const contentTable = "pagebuilder_content"

var contentColumns = []string{
	"id", "type", "status", "title", "identifier", "store_ids",
	"author_id", "last_editor_id", "elements", "settings", "created_at", "updated_at",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore persists contents in the pagebuilder_content table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func scanContent(row pgx.Row) (*content.Content, error) {
	var (
		c      content.Content
		status string
		stores []int32
	)
	err := row.Scan(&c.ID, &c.Type, &status, &c.Title, &c.Identifier, &stores,
		&c.AuthorID, &c.LastEditorID, &c.Elements, &c.Settings, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Status = content.Status(status)
	c.StoreIDs = make([]int, len(stores))
	for i, s := range stores {
		c.StoreIDs[i] = int(s)
	}
	return &c, nil
}

func storeArray(ids []int) []int32 {
	out := make([]int32, len(ids))
	for i, id := range ids {
		out[i] = int32(id)
	}
	return out
}

// mapPgError converts pgx errors to content errors.
func mapPgError(err error, c *content.Content) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return content.NotFoundf("content %d", c.ID)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return content.Invalidf("duplicate identifier %q", c.Identifier)
		case "23514": // check_violation
			return content.Invalidf("%s", pgErr.Message)
		}
	}
	return fmt.Errorf("content %d: %w", c.ID, err)
}

func (p *PostgresStore) Load(ctx context.Context, id int64) (*content.Content, error) {
	query, args, err := psql.Select(contentColumns...).From(contentTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	c, err := scanContent(p.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapPgError(err, &content.Content{ID: id})
	}
	return c, nil
}

func (p *PostgresStore) Save(ctx context.Context, c *content.Content) error {
	now := time.Now().UTC()
	if c.ID == 0 {
		query, args, err := psql.Insert(contentTable).
			Columns(contentColumns[1:]...).
			Values(c.Type, string(c.Status), c.Title, c.Identifier, storeArray(c.StoreIDs),
				c.AuthorID, c.LastEditorID, c.Elements, c.Settings, now, now).
			Suffix("RETURNING id, created_at, updated_at").
			ToSql()
		if err != nil {
			return err
		}
		if err := p.pool.QueryRow(ctx, query, args...).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return mapPgError(err, c)
		}
		return nil
	}
	query, args, err := psql.Update(contentTable).
		Set("type", c.Type).
		Set("status", string(c.Status)).
		Set("title", c.Title).
		Set("identifier", c.Identifier).
		Set("store_ids", storeArray(c.StoreIDs)).
		Set("author_id", c.AuthorID).
		Set("last_editor_id", c.LastEditorID).
		Set("elements", c.Elements).
		Set("settings", c.Settings).
		Set("updated_at", now).
		Where(sq.Eq{"id": c.ID}).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return err
	}
	return mapPgError(p.pool.QueryRow(ctx, query, args...).Scan(&c.CreatedAt, &c.UpdatedAt), c)
}

func (p *PostgresStore) Delete(ctx context.Context, c *content.Content) error {
	query, args, err := psql.Delete(contentTable).Where(sq.Eq{"id": c.ID}).ToSql()
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return mapPgError(err, c)
	}
	if tag.RowsAffected() == 0 {
		return content.NotFoundf("content %d", c.ID)
	}
	return nil
}

func (p *PostgresStore) List(ctx context.Context, sc content.SearchCriteria) ([]*content.Content, int, error) {
	count, items, err := buildListQuery(sc)
	if err != nil {
		return nil, 0, err
	}
	query, args, err := count.ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := p.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count contents: %w", err)
	}

	query, args, err = items.ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list contents: %w", err)
	}
	defer rows.Close()
	out := []*content.Content{}
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// buildListQuery returns the count and page queries for sc.
func buildListQuery(sc content.SearchCriteria) (sq.SelectBuilder, sq.SelectBuilder, error) {
	where := sq.And{}
	for _, f := range sc.Filters {
		cond, err := sqlCondition(f)
		if err != nil {
			return sq.SelectBuilder{}, sq.SelectBuilder{}, err
		}
		where = append(where, cond)
	}
	count := psql.Select("COUNT(*)").From(contentTable)
	items := psql.Select(contentColumns...).From(contentTable)
	if len(where) > 0 {
		count = count.Where(where)
		items = items.Where(where)
	}
	if len(sc.SortOrders) == 0 {
		items = items.OrderBy("id ASC")
	}
	for _, o := range sc.SortOrders {
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		items = items.OrderBy(column[o.Field] + " " + dir)
	}
	if sc.PageSize > 0 {
		items = items.Limit(uint64(sc.PageSize)).Offset(uint64(sc.Offset()))
	}
	return count, items, nil
}

func sqlCondition(f content.Filter) (sq.Sqlizer, error) {
	col, ok := column[f.Field]
	if !ok {
		return nil, content.Invalidf("unknown filter field %q", f.Field)
	}
	if f.Field == "store_id" {
		switch f.Condition {
		case content.CondEq:
			return sq.Expr("? = ANY(store_ids)", storeValue(f.Value)), nil
		case content.CondNeq:
			return sq.Expr("NOT (? = ANY(store_ids))", storeValue(f.Value)), nil
		case content.CondIn:
			vals := stringValues(f.Value)
			ids := make([]int32, 0, len(vals))
			for _, v := range vals {
				ids = append(ids, storeValue(v))
			}
			return sq.Expr("store_ids && ?", ids), nil
		}
		return nil, content.Invalidf("condition %q not supported for store_id", f.Condition)
	}
	switch f.Condition {
	case content.CondEq:
		return sq.Eq{col: f.Value}, nil
	case content.CondNeq:
		return sq.NotEq{col: f.Value}, nil
	case content.CondLike:
		return sq.ILike{col: fmt.Sprint(f.Value)}, nil
	case content.CondIn:
		return sq.Eq{col: stringValues(f.Value)}, nil
	case content.CondGteq:
		return sq.GtOrEq{col: f.Value}, nil
	case content.CondLteq:
		return sq.LtOrEq{col: f.Value}, nil
	}
	return nil, content.Invalidf("unknown filter condition %q", f.Condition)
}

func storeValue(v any) int32 {
	n, _ := strconv.Atoi(fmt.Sprint(v))
	return int32(n)
}
