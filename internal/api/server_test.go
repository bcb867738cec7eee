package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assettrack/backend/internal/apperr"
	"github.com/assettrack/backend/internal/audit"
	"github.com/assettrack/backend/internal/clients"
	"github.com/assettrack/backend/internal/config"
	"github.com/assettrack/backend/internal/middleware"
	"github.com/assettrack/backend/internal/models"
	"github.com/assettrack/backend/internal/store"
)

// stubStore overrides just the store methods the routed handlers reach;
// anything else panics loudly via the embedded nil interface.
type stubStore struct {
	store.Store
	plans    []models.Plan
	sessions map[int64]models.Session
}

func (s *stubStore) ListPlans(ctx context.Context, limit, offset int) ([]models.Plan, error) {
	return s.plans, nil
}

func (s *stubStore) GetSession(ctx context.Context, id int64) (*models.Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := sess
	return &out, nil
}

// fakeAuth maps tokens to principals.
type fakeAuth struct {
	principals map[string]*clients.Principal
}

func (f *fakeAuth) Me(ctx context.Context, token string) (*clients.Principal, error) {
	p, ok := f.principals[token]
	if !ok {
		return nil, apperr.Unauthorized("invalid_token")
	}
	return p, nil
}

func newTestRouter(t *testing.T, st store.Store) http.Handler {
	t.Helper()
	svc := audit.NewService(st, nil, nil, nil, nil, nil)
	auth := &fakeAuth{principals: map[string]*clients.Principal{
		"auditor-token":    {ID: 1, Roles: []string{"inventory_auditor"}},
		"supervisor-token": {ID: 2, Roles: []string{"inventory_audit_supervisor"}},
		"admin-token":      {ID: 3, Roles: []string{"system_admin"}},
		"norole-token":     {ID: 4, Roles: []string{"viewer"}},
	}}
	guard := middleware.NewRoleGuard(config.RolesConfig{
		SystemAdmin:     "system_admin",
		AuditAuditor:    "inventory_auditor",
		AuditSupervisor: "inventory_audit_supervisor",
	})
	return NewServer(svc, auth, guard, nil, nil).Router()
}

func doRequest(t *testing.T, h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func detailOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["detail"]
}

func TestHealthzIsOpen(t *testing.T) {
	h := newTestRouter(t, &stubStore{})
	rec := doRequest(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuditRoutesRequireToken(t *testing.T) {
	h := newTestRouter(t, &stubStore{})

	rec := doRequest(t, h, http.MethodGet, "/audit/plans", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing_token", detailOf(t, rec))

	rec = doRequest(t, h, http.MethodGet, "/audit/plans", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_token", detailOf(t, rec))
}

func TestRoleGuards(t *testing.T) {
	h := newTestRouter(t, &stubStore{})

	// Browsing needs authentication only.
	rec := doRequest(t, h, http.MethodGet, "/audit/plans", "norole-token")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Creating plans needs the auditor role.
	rec = doRequest(t, h, http.MethodPost, "/audit/plans", "norole-token")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "auditor_required", detailOf(t, rec))

	// Supervisors do not inherit the auditor role.
	rec = doRequest(t, h, http.MethodPost, "/audit/plans", "supervisor-token")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "auditor_required", detailOf(t, rec))

	// Approval is supervisor-gated.
	rec = doRequest(t, h, http.MethodPost, "/audit/sessions/5/approve", "auditor-token")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "supervisor_required", detailOf(t, rec))

	// Applying is admin-only.
	rec = doRequest(t, h, http.MethodPost, "/audit/sessions/5/apply", "supervisor-token")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "admin_required", detailOf(t, rec))

	// Admin passes every guard; the empty body is rejected past it.
	rec = doRequest(t, h, http.MethodPost, "/audit/plans", "admin-token")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "invalid_json_body", detailOf(t, rec))
}

func TestGetSessionErrorMapping(t *testing.T) {
	h := newTestRouter(t, &stubStore{sessions: map[int64]models.Session{
		5: {ID: 5, LocationID: 1, Status: models.SessionDraft},
	}})

	rec := doRequest(t, h, http.MethodGet, "/audit/sessions/5", "auditor-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	var sess models.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.Equal(t, int64(5), sess.ID)

	rec = doRequest(t, h, http.MethodGet, "/audit/sessions/99", "auditor-token")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "session_not_found", detailOf(t, rec))

	rec = doRequest(t, h, http.MethodGet, "/audit/sessions/zero", "auditor-token")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "invalid_session_id", detailOf(t, rec))
}
