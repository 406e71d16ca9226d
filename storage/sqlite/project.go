package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/poiesic/leadhunt/core"
	"github.com/poiesic/leadhunt/storage"
)

const projectColumns = `id, user_id, name, description, query_icp, queries, discovery_results,
	possible_competitors, run_status, run_error, run_started_at, run_finished_at, created_at, updated_at`

// projectRepository implements storage.ProjectRepository. Every statement on
// an existing project filters on id and user_id.
type projectRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*core.Project, error) {
	var (
		p                                   core.Project
		id                                  int64
		profiles, queries, results, comps   []byte
		status                              string
		started, finished, created, updated int64
	)
	err := row.Scan(&id, &p.OwnerID, &p.Name, &p.Description, &profiles, &queries, &results,
		&comps, &status, &p.RunError, &started, &finished, &created, &updated)
	if err != nil {
		return nil, err
	}
	p.ID = core.ID(id)
	p.RunStatus = core.RunStatus(status)
	p.RunStartedAt = fromMicros(started)
	p.RunFinishedAt = fromMicros(finished)
	p.CreatedAt = fromMicros(created)
	p.UpdatedAt = fromMicros(updated)

	if p.TargetProfiles, err = storage.UnmarshalList[string](profiles); err != nil {
		return nil, err
	}
	if p.Queries, err = storage.UnmarshalList[string](queries); err != nil {
		return nil, err
	}
	if p.DiscoveryResults, err = storage.UnmarshalList[core.RankedResult](results); err != nil {
		return nil, err
	}
	if p.PossibleCompetitors, err = storage.UnmarshalList[core.Competitor](comps); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepository) CreateProject(ctx context.Context, project *core.Project) (*core.Project, error) {
	if err := core.ValidateProject(project); err != nil {
		return nil, err
	}
	profiles, err := storage.MarshalList(project.TargetProfiles)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
	INSERT INTO projects (user_id, name, description, query_icp, run_status, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`, project.OwnerID, project.Name, project.Description, string(profiles),
		string(core.RunStatusPending), toMicros(now), toMicros(now))
	if err != nil {
		return nil, wrapErr("create project", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, wrapErr("create project", err)
	}
	return r.GetProject(ctx, core.ID(id), project.OwnerID)
}

func (r *projectRepository) GetProject(ctx context.Context, id core.ID, ownerID string) (*core.Project, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ? AND user_id = ?`, int64(id), ownerID)
	p, err := scanProject(row)
	if err != nil {
		return nil, wrapErr("get project", err)
	}
	return p, nil
}

func (r *projectRepository) ListProjects(ctx context.Context, ownerID string) ([]*core.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE user_id = ? ORDER BY id DESC`, ownerID)
	if err != nil {
		return nil, wrapErr("list projects", err)
	}
	defer rows.Close()

	var projects []*core.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, wrapErr("scan project", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list projects", err)
	}
	return projects, nil
}

func (r *projectRepository) UpdateProjectDetails(ctx context.Context, id core.ID, ownerID, name, description string, targetProfiles []string) (*core.Project, error) {
	candidate := &core.Project{OwnerID: ownerID, Name: name, Description: description}
	if err := core.ValidateProject(candidate); err != nil {
		return nil, err
	}
	profiles, err := storage.MarshalList(core.CleanStrings(targetProfiles))
	if err != nil {
		return nil, err
	}
	err = r.exec(ctx, "update project", `
	UPDATE projects SET name = ?, description = ?, query_icp = ?, updated_at = ?
	WHERE id = ? AND user_id = ?
	`, name, description, string(profiles), toMicros(time.Now()), int64(id), ownerID)
	if err != nil {
		return nil, err
	}
	return r.GetProject(ctx, id, ownerID)
}

func (r *projectRepository) ClaimRun(ctx context.Context, id core.ID, ownerID string, now time.Time, staleAfter time.Duration) (*core.Project, error) {
	res, err := r.db.ExecContext(ctx, `
	UPDATE projects SET run_status = ?, run_started_at = ?, run_finished_at = 0, run_error = '', updated_at = ?
	WHERE id = ? AND user_id = ? AND (run_status <> ? OR run_started_at < ?)
	`, string(core.RunStatusRunning), toMicros(now), toMicros(time.Now()),
		int64(id), ownerID, string(core.RunStatusRunning), toMicros(now.Add(-staleAfter)))
	if err != nil {
		return nil, wrapErr("claim run", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, wrapErr("claim run", err)
	}
	if n == 0 {
		// Either the project is missing or a fresh run holds it.
		if _, err := r.GetProject(ctx, id, ownerID); err != nil {
			return nil, err
		}
		return nil, core.ErrRunInProgress
	}
	return r.GetProject(ctx, id, ownerID)
}

func (r *projectRepository) SaveRunResult(ctx context.Context, id core.ID, ownerID string, result storage.RunResult) error {
	queries, err := storage.MarshalList(result.Queries)
	if err != nil {
		return err
	}
	opps, err := storage.MarshalList(result.Opportunities)
	if err != nil {
		return err
	}
	comps, err := storage.MarshalList(result.Competitors)
	if err != nil {
		return err
	}
	return r.exec(ctx, "save run result", `
	UPDATE projects SET queries = ?, discovery_results = ?, possible_competitors = ?,
		run_status = ?, run_error = '', run_finished_at = ?, updated_at = ?
	WHERE id = ? AND user_id = ?
	`, string(queries), string(opps), string(comps), string(core.RunStatusDone),
		toMicros(result.FinishedAt), toMicros(time.Now()), int64(id), ownerID)
}

func (r *projectRepository) SaveRunFailure(ctx context.Context, id core.ID, ownerID string, message string, finishedAt time.Time) error {
	return r.exec(ctx, "save run failure", `
	UPDATE projects SET run_status = ?, run_error = ?, run_finished_at = ?, updated_at = ?
	WHERE id = ? AND user_id = ?
	`, string(core.RunStatusFailed), message, toMicros(finishedAt), toMicros(time.Now()), int64(id), ownerID)
}

func (r *projectRepository) RemoveOpportunity(ctx context.Context, id core.ID, ownerID string, resultID core.ResultID) error {
	return r.editList(ctx, "discovery_results", id, ownerID, func(data []byte) ([]byte, error) {
		list, err := storage.UnmarshalList[core.RankedResult](data)
		if err != nil {
			return nil, err
		}
		list, ok := storage.RemoveOpportunity(list, resultID)
		if !ok {
			return nil, storage.ErrNotFound
		}
		return storage.MarshalList(list)
	})
}

func (r *projectRepository) RemoveCompetitor(ctx context.Context, id core.ID, ownerID string, resultID core.ResultID) error {
	return r.editList(ctx, "possible_competitors", id, ownerID, func(data []byte) ([]byte, error) {
		list, err := storage.UnmarshalList[core.Competitor](data)
		if err != nil {
			return nil, err
		}
		list, ok := storage.RemoveCompetitor(list, resultID)
		if !ok {
			return nil, storage.ErrNotFound
		}
		return storage.MarshalList(list)
	})
}

// editList rewrites one JSON list column inside a transaction. column is
// always a constant from this file.
func (r *projectRepository) editList(ctx context.Context, column string, id core.ID, ownerID string, fn func([]byte) ([]byte, error)) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("begin", err)
	}
	defer tx.Rollback()

	var data []byte
	err = tx.QueryRowContext(ctx,
		`SELECT `+column+` FROM projects WHERE id = ? AND user_id = ?`, int64(id), ownerID).Scan(&data)
	if err != nil {
		return wrapErr("read "+column, err)
	}
	updated, err := fn(data)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE projects SET `+column+` = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		string(updated), toMicros(time.Now()), int64(id), ownerID)
	if err != nil {
		return wrapErr("write "+column, err)
	}
	if err := tx.Commit(); err != nil {
		return wrapErr("commit", err)
	}
	return nil
}

// exec runs a conditional update and reports ErrNotFound when no row matched.
func (r *projectRepository) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr(op, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *projectRepository) Close() error { return nil }

