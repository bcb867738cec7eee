package api

import (
	"net/http"

	"github.com/assettrack/backend/internal/apperr"
	"github.com/assettrack/backend/internal/audit"
	"github.com/assettrack/backend/internal/middleware"
)

func (s *Server) createPlan(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("missing_token"))
		return
	}
	var in audit.PlanInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	plan, err := s.svc.CreatePlan(r.Context(), in, p.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.svc.ListPlans(r.Context(), queryInt(r, "limit", 100), queryInt(r, "offset", 0))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "plan_id")
	if err != nil {
		writeError(w, err)
		return
	}
	plan, err := s.svc.GetPlan(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) updatePlan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "plan_id")
	if err != nil {
		writeError(w, err)
		return
	}
	var upd audit.PlanUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeError(w, err)
		return
	}
	plan, err := s.svc.UpdatePlan(r.Context(), id, upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) getPlanReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "plan_id")
	if err != nil {
		writeError(w, err)
		return
	}
	report, err := s.svc.GetPlanReport(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
