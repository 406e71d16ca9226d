package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/poiesic/leadhunt/core"
	"github.com/poiesic/leadhunt/storage"
)

const projectColumns = `id, user_id, name, description, query_icp, queries, discovery_results,
	possible_competitors, run_status, run_error, run_started_at, run_finished_at, created_at, updated_at`

// projectRepository implements storage.ProjectRepository. Every statement on
// an existing project filters on id and user_id.
type projectRepository struct {
	pool *pgxpool.Pool
}

func scanProject(row pgx.Row) (*core.Project, error) {
	var (
		p                                 core.Project
		id                                int64
		profiles, queries, results, comps []byte
		status                            string
		started, finished                 *time.Time
	)
	err := row.Scan(&id, &p.OwnerID, &p.Name, &p.Description, &profiles, &queries, &results,
		&comps, &status, &p.RunError, &started, &finished, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.ID = core.ID(id)
	p.RunStatus = core.RunStatus(status)
	p.RunStartedAt = fromNullTime(started)
	p.RunFinishedAt = fromNullTime(finished)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()

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

	row := r.pool.QueryRow(ctx, `
	INSERT INTO projects (user_id, name, description, query_icp, run_status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $6)
	RETURNING `+projectColumns,
		project.OwnerID, project.Name, project.Description, string(profiles),
		string(core.RunStatusPending), now)
	p, err := scanProject(row)
	if err != nil {
		return nil, wrapErr("create project", err)
	}
	return p, nil
}

func (r *projectRepository) GetProject(ctx context.Context, id core.ID, ownerID string) (*core.Project, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1 AND user_id = $2`, int64(id), ownerID)
	p, err := scanProject(row)
	if err != nil {
		return nil, wrapErr("get project", err)
	}
	return p, nil
}

func (r *projectRepository) ListProjects(ctx context.Context, ownerID string) ([]*core.Project, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE user_id = $1 ORDER BY id DESC`, ownerID)
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
	row := r.pool.QueryRow(ctx, `
	UPDATE projects SET name = $3, description = $4, query_icp = $5, updated_at = $6
	WHERE id = $1 AND user_id = $2
	RETURNING `+projectColumns,
		int64(id), ownerID, name, description, string(profiles), time.Now().UTC())
	p, err := scanProject(row)
	if err != nil {
		return nil, wrapErr("update project", err)
	}
	return p, nil
}

func (r *projectRepository) ClaimRun(ctx context.Context, id core.ID, ownerID string, now time.Time, staleAfter time.Duration) (*core.Project, error) {
	row := r.pool.QueryRow(ctx, `
	UPDATE projects SET run_status = $3, run_started_at = $4, run_finished_at = NULL, run_error = '', updated_at = $5
	WHERE id = $1 AND user_id = $2
		AND (run_status <> $3 OR run_started_at IS NULL OR run_started_at < $6)
	RETURNING `+projectColumns,
		int64(id), ownerID, string(core.RunStatusRunning), now.UTC(), time.Now().UTC(), now.Add(-staleAfter).UTC())
	p, err := scanProject(row)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, wrapErr("claim run", err)
	}
	// Either the project is missing or a fresh run holds it.
	if _, err := r.GetProject(ctx, id, ownerID); err != nil {
		return nil, err
	}
	return nil, core.ErrRunInProgress
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
	UPDATE projects SET queries = $3, discovery_results = $4, possible_competitors = $5,
		run_status = $6, run_error = '', run_finished_at = $7, updated_at = $8
	WHERE id = $1 AND user_id = $2
	`, int64(id), ownerID, string(queries), string(opps), string(comps),
		string(core.RunStatusDone), nullTime(result.FinishedAt), time.Now().UTC())
}

func (r *projectRepository) SaveRunFailure(ctx context.Context, id core.ID, ownerID string, message string, finishedAt time.Time) error {
	return r.exec(ctx, "save run failure", `
	UPDATE projects SET run_status = $3, run_error = $4, run_finished_at = $5, updated_at = $6
	WHERE id = $1 AND user_id = $2
	`, int64(id), ownerID, string(core.RunStatusFailed), message, nullTime(finishedAt), time.Now().UTC())
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

// editList rewrites one JSONB list column under a row lock. column is always
// a constant from this file.
func (r *projectRepository) editList(ctx context.Context, column string, id core.ID, ownerID string, fn func([]byte) ([]byte, error)) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var data []byte
		err := tx.QueryRow(ctx,
			`SELECT `+column+` FROM projects WHERE id = $1 AND user_id = $2 FOR UPDATE`,
			int64(id), ownerID).Scan(&data)
		if err != nil {
			return wrapErr("read "+column, err)
		}
		updated, err := fn(data)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`UPDATE projects SET `+column+` = $3, updated_at = $4 WHERE id = $1 AND user_id = $2`,
			int64(id), ownerID, string(updated), time.Now().UTC())
		if err != nil {
			return wrapErr("write "+column, err)
		}
		return nil
	})
}

// exec runs a conditional update and reports ErrNotFound when no row matched.
func (r *projectRepository) exec(ctx context.Context, op, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return wrapErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *projectRepository) Close() error { return nil }
