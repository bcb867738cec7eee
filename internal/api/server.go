// Package api exposes the audit core over REST/JSON.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/assettrack/backend/internal/audit"
	"github.com/assettrack/backend/internal/middleware"
	"github.com/assettrack/backend/internal/monitoring"
)

// Server owns the HTTP surface: route table, guards and the service
// behind them.
type Server struct {
	svc     *audit.Service
	auth    middleware.AuthAPI
	guard   *middleware.RoleGuard
	limiter *middleware.RateLimiter
	metrics *monitoring.Metrics
}

func NewServer(svc *audit.Service, auth middleware.AuthAPI, guard *middleware.RoleGuard, limiter *middleware.RateLimiter, metrics *monitoring.Metrics) *Server {
	return &Server{svc: svc, auth: auth, guard: guard, limiter: limiter, metrics: metrics}
}

// Router builds the route table. /healthz and /metrics stay outside
// authentication; everything under /audit requires a valid bearer token
// plus the per-route role.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	if s.metrics != nil {
		r.Use(middleware.Metrics(s.metrics))
	}
	if s.limiter != nil {
		r.Use(s.limiter.Middleware)
	}

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", monitoring.Handler()).Methods(http.MethodGet)

	a := r.PathPrefix("/audit").Subrouter()
	a.Use(middleware.Authenticate(s.auth))

	auditor := func(h http.HandlerFunc) http.Handler { return s.guard.RequireAuditor(h) }
	supervisor := func(h http.HandlerFunc) http.Handler { return s.guard.RequireSupervisor(h) }
	admin := func(h http.HandlerFunc) http.Handler { return s.guard.RequireAdmin(h) }

	// Plans; browsing needs authentication only.
	a.Handle("/plans", auditor(s.createPlan)).Methods(http.MethodPost)
	a.HandleFunc("/plans", s.listPlans).Methods(http.MethodGet)
	a.HandleFunc("/plans/{plan_id}", s.getPlan).Methods(http.MethodGet)
	a.Handle("/plans/{plan_id}", supervisor(s.updatePlan)).Methods(http.MethodPatch)

	// Sessions
	a.Handle("/sessions", auditor(s.createSession)).Methods(http.MethodPost)
	a.HandleFunc("/sessions", s.listSessions).Methods(http.MethodGet)
	a.HandleFunc("/sessions/{session_id}", s.getSession).Methods(http.MethodGet)
	a.Handle("/sessions/{session_id}/start", auditor(s.startSession)).Methods(http.MethodPost)
	a.Handle("/sessions/{session_id}/scans", auditor(s.createScan)).Methods(http.MethodPost)
	a.Handle("/sessions/{session_id}/close", auditor(s.closeSession)).Methods(http.MethodPost)
	a.Handle("/sessions/{session_id}/approve", supervisor(s.approveSession)).Methods(http.MethodPost)
	a.Handle("/sessions/{session_id}/cancel", supervisor(s.cancelSession)).Methods(http.MethodPost)
	a.Handle("/sessions/{session_id}/build-actions", supervisor(s.buildActions)).Methods(http.MethodPost)
	a.Handle("/sessions/{session_id}/apply", admin(s.applyActions)).Methods(http.MethodPost)

	// Session subresources; reads need authentication only.
	a.HandleFunc("/sessions/{session_id}/expected", s.listExpectedItems).Methods(http.MethodGet)
	a.HandleFunc("/sessions/{session_id}/results", s.listItemResults).Methods(http.MethodGet)
	a.HandleFunc("/sessions/{session_id}/scans", s.listScans).Methods(http.MethodGet)
	a.HandleFunc("/sessions/{session_id}/discrepancies", s.listDiscrepancies).Methods(http.MethodGet)
	a.HandleFunc("/sessions/{session_id}/actions", s.listActions).Methods(http.MethodGet)

	// Discrepancy resolution and reporting
	a.Handle("/discrepancies/{discrepancy_id}/resolve",
		supervisor(s.resolveDiscrepancy)).Methods(http.MethodPost)
	a.Handle("/reports/plans/{plan_id}", supervisor(s.getPlanReport)).Methods(http.MethodGet)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
