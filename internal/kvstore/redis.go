package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Redis stores values as plain string keys under an optional prefix.
type Redis struct {
	client *redis.Client
	prefix string
	tracer trace.Tracer
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, prefix string) *Redis {
	if client == nil {
		panic("kvstore: redis client cannot be nil")
	}
	return &Redis{
		client: client,
		prefix: prefix,
		tracer: otel.Tracer("clinic.internal.kvstore.redis"),
	}
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	ctx, span := r.tracer.Start(ctx, "kvstore.redis.get", trace.WithAttributes(attribute.String("kv.key", key)))
	defer span.End()

	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("kvstore: redis get %q: %w", key, err)
	}
	return v, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	ctx, span := r.tracer.Start(ctx, "kvstore.redis.set", trace.WithAttributes(attribute.String("kv.key", key)))
	defer span.End()

	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("kvstore: redis set %q: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	ctx, span := r.tracer.Start(ctx, "kvstore.redis.delete", trace.WithAttributes(attribute.String("kv.key", key)))
	defer span.End()

	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("kvstore: redis delete %q: %w", key, err)
	}
	return nil
}
