package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Querier is the subset of pgxpool.Pool the store needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres stores values in the kv_store table created by the migrations package.
type Postgres struct {
	db     Querier
	tracer trace.Tracer
}

// NewPostgres wraps a pool or connection.
func NewPostgres(db Querier) *Postgres {
	if db == nil {
		panic("kvstore: pgx pool cannot be nil")
	}
	return &Postgres{db: db, tracer: otel.Tracer("clinic.internal.kvstore.postgres")}
}

func (p *Postgres) Get(ctx context.Context, key string) (string, error) {
	ctx, span := p.tracer.Start(ctx, "kvstore.postgres.get", trace.WithAttributes(attribute.String("kv.key", key)))
	defer span.End()

	var value string
	err := p.db.QueryRow(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("kvstore: postgres get %q: %w", key, err)
	}
	return value, nil
}

func (p *Postgres) Set(ctx context.Context, key, value string) error {
	ctx, span := p.tracer.Start(ctx, "kvstore.postgres.set", trace.WithAttributes(attribute.String("kv.key", key)))
	defer span.End()

	_, err := p.db.Exec(ctx, `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("kvstore: postgres set %q: %w", key, err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	ctx, span := p.tracer.Start(ctx, "kvstore.postgres.delete", trace.WithAttributes(attribute.String("kv.key", key)))
	defer span.End()

	if _, err := p.db.Exec(ctx, `DELETE FROM kv_store WHERE key = $1`, key); err != nil {
		span.RecordError(err)
		return fmt.Errorf("kvstore: postgres delete %q: %w", key, err)
	}
	return nil
}
