// Package postgres provides the PostgreSQL-backed job description store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/ai-interview-screener/internal/domain"
)

// NewPool creates a pgx connection pool from the provided DSN. Startup is the
// one place infrastructure connects are retried; turn-path calls never are.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.ConnConfig.Tracer = otelpgx.NewTracer()

	var pool *pgxpool.Pool
	connect := func() error {
		p, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	if err := backoff.Retry(connect, bo); err != nil {
		return nil, fmt.Errorf("op=jd.connect: %w", err)
	}
	return pool, nil
}

// PgxPool is a minimal subset of pgxpool used by the repo for easy testing.
type PgxPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repo serves job description text by identifier from the
// job_descriptions table.
type Repo struct{ Pool PgxPool }

// NewRepo constructs a Repo with the given pool.
func NewRepo(p PgxPool) *Repo { return &Repo{Pool: p} }

// GetContent loads the JD text for an id.
func (r *Repo) GetContent(ctx domain.Context, id string) (string, error) {
	tracer := otel.Tracer("repo.jd")
	ctx, span := tracer.Start(ctx, "jd.GetContent")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.sql.table", "job_descriptions"),
	)
	q := `SELECT content FROM job_descriptions WHERE id=$1`
	var content string
	if err := r.Pool.QueryRow(ctx, q, id).Scan(&content); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("op=jd.get: %w: %s", domain.ErrNotFound, id)
		}
		return "", fmt.Errorf("op=jd.get: %w", err)
	}
	return content, nil
}

// ListIDs returns the selectable JD ids in stable order.
func (r *Repo) ListIDs(ctx domain.Context) ([]string, error) {
	tracer := otel.Tracer("repo.jd")
	ctx, span := tracer.Start(ctx, "jd.ListIDs")
	defer span.End()
	rows, err := r.Pool.Query(ctx, `SELECT id FROM job_descriptions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("op=jd.list: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("op=jd.list: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=jd.list: %w", err)
	}
	return ids, nil
}
