// Package sqlite implements the storage interfaces on an embedded SQLite
// database. Timestamps are stored as Unix microseconds so range filters
// compare numerically.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/leadhunt/core"
	"github.com/poiesic/leadhunt/storage"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT NOT NULL,
	query_icp TEXT NOT NULL DEFAULT '[]',
	queries TEXT NOT NULL DEFAULT '[]',
	discovery_results TEXT NOT NULL DEFAULT '[]',
	possible_competitors TEXT NOT NULL DEFAULT '[]',
	run_status TEXT NOT NULL,
	run_error TEXT NOT NULL DEFAULT '',
	run_started_at INTEGER NOT NULL DEFAULT 0,
	run_finished_at INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS projects_user_id ON projects (user_id, id);

CREATE TABLE IF NOT EXISTS hunt_log (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	project_id INTEGER NOT NULL,
	outcome TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS hunt_log_user_created ON hunt_log (user_id, created_at);

CREATE TABLE IF NOT EXISTS user_plans (
	user_id TEXT PRIMARY KEY,
	plan TEXT NOT NULL
);
`

// ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Store is a SQLite-backed storage.Store.
type Store struct {
	db       *sql.DB
	projects *projectRepository
	usage    *usageRepository
	plans    *planRepository
}

// New opens the database at dsn and applies the schema.
func New(dsn string) (storage.Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serializes writers, which keeps read-modify-write
	// transactions free of SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{
		db:       db,
		projects: &projectRepository{db: db},
		usage:    &usageRepository{db: db},
		plans:    &planRepository{db: db},
	}, nil
}

func (s *Store) Projects() storage.ProjectRepository { return s.projects }
func (s *Store) Usage() storage.UsageRepository      { return s.usage }
func (s *Store) Plans() storage.PlanRepository       { return s.plans }

func (s *Store) Close() error {
	return s.db.Close()
}

func toMicros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func fromMicros(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.UnixMicro(v).UTC()
}

// wrapErr maps driver errors onto storage errors.
func wrapErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%s: %w", op, storage.ErrStorageClosed)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// planRepository implements storage.PlanRepository.
type planRepository struct {
	db *sql.DB
}

func (r *planRepository) GetPlan(ctx context.Context, ownerID string) (core.Plan, error) {
	var name string
	err := r.db.QueryRowContext(ctx, `SELECT plan FROM user_plans WHERE user_id = ?`, ownerID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
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
	_, err = r.db.ExecContext(ctx, `
	INSERT INTO user_plans (user_id, plan) VALUES (?, ?)
	ON CONFLICT (user_id) DO UPDATE SET plan = excluded.plan
	`, ownerID, string(parsed))
	if err != nil {
		return wrapErr("set plan", err)
	}
	return nil
}

func (r *planRepository) Close() error { return nil }
