package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"
)

// Builder returns a squirrel statement builder using $N placeholders.
func Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// Get runs a single-row query and scans it into T using db struct tags.
// A missing row surfaces as pgx.ErrNoRows (unmapped; pass it to MapError).
func Get[T any](ctx context.Context, q Querier, query sq.Sqlizer) (T, error) {
	var dst T

	sql, args, err := query.ToSql()
	if err != nil {
		return dst, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, q, &dst, sql, args...); err != nil {
		return dst, err
	}

	return dst, nil
}

// Select runs a multi-row query and scans every row into T.
// An empty result is a non-nil empty slice.
func Select[T any](ctx context.Context, q Querier, query sq.Sqlizer) ([]T, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	dst := []T{}
	if err := pgxscan.Select(ctx, q, &dst, sql, args...); err != nil {
		return nil, err
	}

	return dst, nil
}

// Exec runs a statement that returns no rows.
func Exec(ctx context.Context, q Querier, stmt sq.Sqlizer) (pgconn.CommandTag, error) {
	sql, args, err := stmt.ToSql()
	if err != nil {
		return pgconn.CommandTag{}, fmt.Errorf("build statement: %w", err)
	}

	return q.Exec(ctx, sql, args...)
}
