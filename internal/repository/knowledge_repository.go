package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// KnowledgeRepository reads the curated problem/solution records.
type KnowledgeRepository interface {
	ListAll(ctx context.Context) ([]domain.KnowledgeEntry, error)
}

type knowledgeRepository struct {
	pool *pgxpool.Pool
}

// NewKnowledgeRepository returns a Postgres-backed implementation.
func NewKnowledgeRepository(pool *pgxpool.Pool) KnowledgeRepository {
	return &knowledgeRepository{pool: pool}
}

func (r *knowledgeRepository) ListAll(ctx context.Context) ([]domain.KnowledgeEntry, error) {
	const query = `SELECT id, title, category, description, solution FROM problems ORDER BY created_at, title`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.KnowledgeEntry{}
	for rows.Next() {
		var entry domain.KnowledgeEntry
		if err := rows.Scan(&entry.ID, &entry.Title, &entry.Category, &entry.Description, &entry.Solution); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

const knowledgeCacheKey = "helpdesk:knowledge:v1"

type cachedKnowledgeRepository struct {
	next   KnowledgeRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedKnowledgeRepository keeps a JSON snapshot of the knowledge base in Redis. Cache
// failures are logged and fall through to next.
func NewCachedKnowledgeRepository(next KnowledgeRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) KnowledgeRepository {
	if client == nil || ttl <= 0 {
		return next
	}
	return &cachedKnowledgeRepository{next: next, client: client, ttl: ttl, logger: logger}
}

func (r *cachedKnowledgeRepository) ListAll(ctx context.Context) ([]domain.KnowledgeEntry, error) {
	raw, err := r.client.Get(ctx, knowledgeCacheKey).Bytes()
	switch {
	case err == nil:
		var entries []domain.KnowledgeEntry
		if jsonErr := json.Unmarshal(raw, &entries); jsonErr == nil {
			return entries, nil
		}
		r.logger.Warn("discarding corrupt knowledge cache entry")
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("knowledge cache read failed", zap.Error(err))
	}

	entries, err := r.next.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(entries); err == nil {
		if err := r.client.Set(ctx, knowledgeCacheKey, payload, r.ttl).Err(); err != nil {
			r.logger.Warn("knowledge cache write failed", zap.Error(err))
		}
	}
	return entries, nil
}
