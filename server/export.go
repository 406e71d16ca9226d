package server

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/poiesic/leadhunt/billing"
)

var exportHeader = []string{"ranking", "site", "url", "result_id"}

// handleExport streams a project's opportunities as CSV. Plans without
// export get feature_not_in_plan.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	owner := ownerFrom(r.Context())

	ent, err := s.deps.Quota.Entitlement(r.Context(), owner)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := billing.Require(ent, "export", ent.Limits.Export); err != nil {
		s.writeError(w, r, err)
		return
	}

	project, err := s.deps.Projects.GetProject(r.Context(), id, owner)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "project-"+id.String()+".csv"))
	cw := csv.NewWriter(w)
	_ = cw.Write(exportHeader)
	for _, res := range project.DiscoveryResults {
		_ = cw.Write([]string{strconv.Itoa(res.Ranking), string(res.Site), res.URL, res.ID().String()})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		s.logger.Warn("csv export interrupted", "project_id", id, "err", err)
	}
}
