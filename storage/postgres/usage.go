package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/poiesic/leadhunt/core"
)

// usageRepository implements storage.UsageRepository over the hunt_log table.
type usageRepository struct {
	pool *pgxpool.Pool
}

func (r *usageRepository) AppendUsage(ctx context.Context, event *core.UsageEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
	INSERT INTO hunt_log (id, user_id, project_id, outcome, created_at) VALUES ($1, $2, $3, $4, $5)
	`, event.ID, event.OwnerID, int64(event.ProjectID), string(event.Outcome), event.CreatedAt.UTC())
	if err != nil {
		return wrapErr("append usage", err)
	}
	return nil
}

func (r *usageRepository) CountUsage(ctx context.Context, ownerID string, outcome core.UsageOutcome, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
	SELECT COUNT(*) FROM hunt_log WHERE user_id = $1 AND outcome = $2 AND created_at >= $3
	`, ownerID, string(outcome), since.UTC()).Scan(&n)
	if err != nil {
		return 0, wrapErr("count usage", err)
	}
	return n, nil
}

func (r *usageRepository) ListUsage(ctx context.Context, ownerID string, since time.Time) ([]*core.UsageEvent, error) {
	rows, err := r.pool.Query(ctx, `
	SELECT id::text, user_id, project_id, outcome, created_at FROM hunt_log
	WHERE user_id = $1 AND created_at >= $2 ORDER BY created_at ASC
	`, ownerID, since.UTC())
	if err != nil {
		return nil, wrapErr("list usage", err)
	}
	defer rows.Close()

	var events []*core.UsageEvent
	for rows.Next() {
		var (
			e         core.UsageEvent
			projectID int64
			outcome   string
		)
		if err := rows.Scan(&e.ID, &e.OwnerID, &projectID, &outcome, &e.CreatedAt); err != nil {
			return nil, wrapErr("scan usage", err)
		}
		e.ProjectID = core.ID(projectID)
		e.Outcome = core.UsageOutcome(outcome)
		e.CreatedAt = e.CreatedAt.UTC()
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list usage", err)
	}
	return events, nil
}

func (r *usageRepository) Close() error { return nil }
