// Package postgres implements the storage interfaces on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/poiesic/leadhunt/core"
	"github.com/poiesic/leadhunt/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id BIGSERIAL PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT NOT NULL,
	query_icp JSONB NOT NULL DEFAULT '[]',
	queries JSONB NOT NULL DEFAULT '[]',
	discovery_results JSONB NOT NULL DEFAULT '[]',
	possible_competitors JSONB NOT NULL DEFAULT '[]',
	run_status TEXT NOT NULL,
	run_error TEXT NOT NULL DEFAULT '',
	run_started_at TIMESTAMPTZ,
	run_finished_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS projects_user_id ON projects (user_id, id);

CREATE TABLE IF NOT EXISTS hunt_log (
	id UUID PRIMARY KEY,
	user_id TEXT NOT NULL,
	project_id BIGINT NOT NULL,
	outcome TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS hunt_log_user_created ON hunt_log (user_id, created_at);

CREATE TABLE IF NOT EXISTS user_plans (
	user_id TEXT PRIMARY KEY,
	plan TEXT NOT NULL
);
`

// ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Store is a Postgres-backed storage.Store.
type Store struct {
	pool     *pgxpool.Pool
	projects *projectRepository
	usage    *usageRepository
	plans    *planRepository
}

// New connects to dsn and applies the schema.
func New(ctx context.Context, dsn string) (storage.Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{
		pool:     pool,
		projects: &projectRepository{pool: pool},
		usage:    &usageRepository{pool: pool},
		plans:    &planRepository{pool: pool},
	}, nil
}

func (s *Store) Projects() storage.ProjectRepository { return s.projects }
func (s *Store) Usage() storage.UsageRepository      { return s.usage }
func (s *Store) Plans() storage.PlanRepository       { return s.plans }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func fromNullTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

func wrapErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// planRepository implements storage.PlanRepository.
type planRepository struct {
	pool *pgxpool.Pool
}

func (r *planRepository) GetPlan(ctx context.Context, ownerID string) (core.Plan, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT plan FROM user_plans WHERE user_id = $1`, ownerID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.PlanFree, nil
	}
	if err != nil {
		return "", wrapErr("get plan", err)
	}
	return core.ParsePlan(name)
}

func (r *planRepository) SetPlan(ctx context.Context, ownerID string, plan core.Plan) error {
	parsed, err := core.ParsePlan(string(plan))
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
	INSERT INTO user_plans (user_id, plan) VALUES ($1, $2)
	ON CONFLICT (user_id) DO UPDATE SET plan = EXCLUDED.plan
	`, ownerID, string(parsed))
	if err != nil {
		return wrapErr("set plan", err)
	}
	return nil
}

func (r *planRepository) Close() error { return nil }
