package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/poiesic/leadhunt/billing"
	"github.com/poiesic/leadhunt/core"
	"github.com/poiesic/leadhunt/discovery"
	"github.com/poiesic/leadhunt/storage"
)

type projectRequest struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	TargetProfiles []string `json:"targetProfiles"`
}

type discoverRequest struct {
	ProjectID core.ID `json:"projectId"`
	projectRequest
}

type profilesRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type profilesResponse struct {
	Profiles []string `json:"profiles"`
}

type runResponse struct {
	RunID         string              `json:"run_id"`
	Project       *core.Project       `json:"project"`
	Queries       []string            `json:"queries"`
	Candidates    int                 `json:"candidates"`
	Opportunities []core.RankedResult `json:"opportunities"`
	Competitors   []core.Competitor   `json:"competitors"`
	DurationMS    int64               `json:"duration_ms"`
}

type acceptedResponse struct {
	ProjectID core.ID        `json:"project_id"`
	Status    core.RunStatus `json:"status"`
}

type usageResponse struct {
	Entitlement *billing.Entitlement `json:"entitlement"`
	Events      []*core.UsageEvent   `json:"events"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	project, err := s.deps.Projects.CreateProject(r.Context(), &core.Project{
		OwnerID:        ownerFrom(r.Context()),
		Name:           req.Name,
		Description:    req.Description,
		TargetProfiles: core.CleanStrings(req.TargetProfiles),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.deps.Projects.ListProjects(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if projects == nil {
		projects = []*core.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	project, err := s.deps.Projects.GetProject(r.Context(), id, ownerFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req projectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	project, err := s.deps.Projects.UpdateProjectDetails(r.Context(), id, ownerFrom(r.Context()), req.Name, req.Description, req.TargetProfiles)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *Server) handleDiscoverProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.trigger(w, r, discovery.RunRequest{ProjectID: id, OwnerID: ownerFrom(r.Context())})
}

// handleDiscover saves edited project details, then starts a run.
func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	var req discoverRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProjectID == 0 {
		writeKind(w, core.KindInvalidRequest, "projectId is required")
		return
	}
	owner := ownerFrom(r.Context())
	if req.Name != "" || req.Description != "" || req.TargetProfiles != nil {
		current, err := s.deps.Projects.GetProject(r.Context(), req.ProjectID, owner)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		name, description, profiles := current.Name, current.Description, current.TargetProfiles
		if req.Name != "" {
			name = req.Name
		}
		if req.Description != "" {
			description = req.Description
		}
		if req.TargetProfiles != nil {
			profiles = req.TargetProfiles
		}
		if _, err := s.deps.Projects.UpdateProjectDetails(r.Context(), req.ProjectID, owner, name, description, profiles); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	s.trigger(w, r, discovery.RunRequest{ProjectID: req.ProjectID, OwnerID: owner})
}

// trigger runs discovery inline when wait=true and in the background
// otherwise. Background runs are pre-checked so that missing projects,
// exhausted quotas and concurrent runs are reported synchronously.
func (s *Server) trigger(w http.ResponseWriter, r *http.Request, req discovery.RunRequest) {
	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if wait {
		ctx, cancel := context.WithTimeout(r.Context(), s.runBudget)
		defer cancel()
		outcome, err := s.deps.Runner.Run(ctx, req)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, runResponse{
			RunID:         outcome.RunID,
			Project:       outcome.Project,
			Queries:       outcome.Queries,
			Candidates:    outcome.Candidates,
			Opportunities: outcome.Opportunities,
			Competitors:   outcome.Competitors,
			DurationMS:    outcome.Duration.Milliseconds(),
		})
		return
	}

	project, err := s.deps.Projects.GetProject(r.Context(), req.ProjectID, req.OwnerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !storage.ClaimAllowed(project, s.now().Add(-s.staleAfter)) {
		s.writeError(w, r, core.ErrRunInProgress)
		return
	}
	if _, err := s.deps.Quota.Check(r.Context(), req.OwnerID); err != nil {
		s.writeError(w, r, err)
		return
	}

	err = s.runPool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.runBudget)
		defer cancel()
		if _, err := s.deps.Runner.Run(ctx, req); err != nil {
			s.logger.Warn("background run failed", "project_id", req.ProjectID, "err", err)
		}
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, acceptedResponse{ProjectID: req.ProjectID, Status: core.RunStatusRunning})
}

func (s *Server) handleRemoveOpportunity(w http.ResponseWriter, r *http.Request) {
	s.removeEntry(w, r, s.deps.Projects.RemoveOpportunity)
}

func (s *Server) handleRemoveCompetitor(w http.ResponseWriter, r *http.Request) {
	s.removeEntry(w, r, s.deps.Projects.RemoveCompetitor)
}

func (s *Server) removeEntry(w http.ResponseWriter, r *http.Request, remove func(context.Context, core.ID, string, core.ResultID) error) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	resultID, err := core.ParseResultID(r.PathValue("resultId"))
	if err != nil {
		writeKind(w, core.KindInvalidRequest, "invalid result id")
		return
	}
	if err := remove(r.Context(), id, ownerFrom(r.Context()), resultID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	var req profilesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Title == "" || req.Description == "" {
		writeKind(w, core.KindInvalidRequest, "title and description are required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.runBudget)
	defer cancel()
	profiles, err := s.deps.Profiles.GenerateProfiles(ctx, req.Title, req.Description)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profilesResponse{Profiles: profiles})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())
	ent, err := s.deps.Quota.Entitlement(r.Context(), owner)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	events, err := s.deps.Usage.ListUsage(r.Context(), owner, ent.PeriodStart)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if events == nil {
		events = []*core.UsageEvent{}
	}
	writeJSON(w, http.StatusOK, usageResponse{Entitlement: ent, Events: events})
}

func pathID(w http.ResponseWriter, r *http.Request) (core.ID, bool) {
	id, err := core.ParseID(r.PathValue("id"))
	if err != nil || id == 0 {
		writeKind(w, core.KindInvalidRequest, "invalid project id")
		return 0, false
	}
	return id, true
}
