package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/leadhunt/core"
)

// usageRepository implements storage.UsageRepository over the hunt_log table.
type usageRepository struct {
	db *sql.DB
}

func (r *usageRepository) AppendUsage(ctx context.Context, event *core.UsageEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO hunt_log (id, user_id, project_id, outcome, created_at) VALUES (?, ?, ?, ?, ?)
	`, event.ID, event.OwnerID, int64(event.ProjectID), string(event.Outcome), toMicros(event.CreatedAt))
	if err != nil {
		return wrapErr("append usage", err)
	}
	return nil
}

func (r *usageRepository) CountUsage(ctx context.Context, ownerID string, outcome core.UsageOutcome, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
	SELECT COUNT(*) FROM hunt_log WHERE user_id = ? AND outcome = ? AND created_at >= ?
	`, ownerID, string(outcome), toMicros(since)).Scan(&n)
	if err != nil {
		return 0, wrapErr("count usage", err)
	}
	return n, nil
}

func (r *usageRepository) ListUsage(ctx context.Context, ownerID string, since time.Time) ([]*core.UsageEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, user_id, project_id, outcome, created_at FROM hunt_log
	WHERE user_id = ? AND created_at >= ? ORDER BY created_at ASC
	`, ownerID, toMicros(since))
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
			created   int64
		)
		if err := rows.Scan(&e.ID, &e.OwnerID, &projectID, &outcome, &created); err != nil {
			return nil, wrapErr("scan usage", err)
		}
		e.ProjectID = core.ID(projectID)
		e.Outcome = core.UsageOutcome(outcome)
		e.CreatedAt = fromMicros(created)
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list usage", err)
	}
	return events, nil
}

func (r *usageRepository) Close() error { return nil }
