package api

import (
	"net/http"

	"github.com/assettrack/backend/internal/apperr"
	"github.com/assettrack/backend/internal/audit"
	"github.com/assettrack/backend/internal/middleware"
	"github.com/assettrack/backend/internal/models"
	"github.com/assettrack/backend/internal/store"
)

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var in audit.SessionInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	sess, err := s.svc.CreateSession(r.Context(), middleware.TokenFrom(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	f := store.SessionFilter{
		LocationID: queryInt64Ptr(r, "location_id"),
		PlanID:     queryInt64Ptr(r, "plan_id"),
		Limit:      queryInt(r, "limit", 100),
		Offset:     queryInt(r, "offset", 0),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := models.SessionStatus(raw)
		f.Status = &st
	}
	sessions, err := s.svc.ListSessions(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "session_id")
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := s.svc.GetSession(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "session_id")
	if err != nil {
		writeError(w, err)
		return
	}
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("missing_token"))
		return
	}
	sess, err := s.svc.StartSession(r.Context(), middleware.TokenFrom(r.Context()), id, p.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) createScan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "session_id")
	if err != nil {
		writeError(w, err)
		return
	}
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("missing_token"))
		return
	}
	var in audit.ScanInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.svc.CreateScan(r.Context(), middleware.TokenFrom(r.Context()), id, p.ID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

func (s *Server) closeSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "session_id")
	if err != nil {
		writeError(w, err)
		return
	}
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("missing_token"))
		return
	}
	sess, err := s.svc.CloseSession(r.Context(), id, p.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) approveSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "session_id")
	if err != nil {
		writeError(w, err)
		return
	}
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("missing_token"))
		return
	}
	sess, err := s.svc.ApproveSession(r.Context(), id, p.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) cancelSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "session_id")
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := s.svc.CancelSession(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) buildActions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "session_id")
	if err != nil {
		writeError(w, err)
		return
	}
	actions, err := s.svc.BuildActions(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if actions == nil {
		actions = []models.Action{}
	}
	writeJSON(w, http.StatusCreated, actions)
}

func (s *Server) applyActions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "session_id")
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.svc.ApplyActions(r.Context(), middleware.TokenFrom(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) resolveDiscrepancy(w http.ResponseWriter, r *http.Request) {
	discrepancyID, err := pathID(r, "discrepancy_id")
	if err != nil {
		writeError(w, err)
		return
	}
	var in audit.ResolutionInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	d, err := s.svc.ResolveDiscrepancy(r.Context(), discrepancyID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) listExpectedItems(w http.ResponseWriter, r *http.Request) {
	s.listSubresource(w, r, func(id int64) (interface{}, error) {
		return s.svc.ListExpectedItems(r.Context(), id)
	})
}

func (s *Server) listItemResults(w http.ResponseWriter, r *http.Request) {
	s.listSubresource(w, r, func(id int64) (interface{}, error) {
		return s.svc.ListItemResults(r.Context(), id)
	})
}

func (s *Server) listScans(w http.ResponseWriter, r *http.Request) {
	s.listSubresource(w, r, func(id int64) (interface{}, error) {
		return s.svc.ListScans(r.Context(), id)
	})
}

func (s *Server) listDiscrepancies(w http.ResponseWriter, r *http.Request) {
	s.listSubresource(w, r, func(id int64) (interface{}, error) {
		return s.svc.ListDiscrepancies(r.Context(), id)
	})
}

func (s *Server) listActions(w http.ResponseWriter, r *http.Request) {
	s.listSubresource(w, r, func(id int64) (interface{}, error) {
		return s.svc.ListActions(r.Context(), id)
	})
}

// listSubresource factors the shared session-scoped GET shape.
func (s *Server) listSubresource(w http.ResponseWriter, r *http.Request, fetch func(int64) (interface{}, error)) {
	id, err := pathID(r, "session_id")
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := fetch(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
