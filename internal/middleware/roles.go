package middleware

import (
	"net/http"

	"github.com/assettrack/backend/internal/apperr"
	"github.com/assettrack/backend/internal/clients"
	"github.com/assettrack/backend/internal/config"
)

// RoleGuard gates routes on the configured role names. The system admin
// role passes every guard.
type RoleGuard struct {
	roles config.RolesConfig
}

func NewRoleGuard(roles config.RolesConfig) *RoleGuard {
	return &RoleGuard{roles: roles}
}

// Allowed reports whether p carries role or the admin override.
func (g *RoleGuard) Allowed(p *clients.Principal, role string) bool {
	return p.HasRole(role) || p.HasRole(g.roles.SystemAdmin)
}

// RequireAuditor admits auditors and admins. Supervisors do not inherit
// the auditor role; only the admin override crosses roles.
func (g *RoleGuard) RequireAuditor(next http.Handler) http.Handler {
	return g.require(g.roles.AuditAuditor, "auditor_required", next)
}

// RequireSupervisor admits supervisors and admins.
func (g *RoleGuard) RequireSupervisor(next http.Handler) http.Handler {
	return g.require(g.roles.AuditSupervisor, "supervisor_required", next)
}

// RequireAdmin admits the system admin role only.
func (g *RoleGuard) RequireAdmin(next http.Handler) http.Handler {
	return g.require(g.roles.SystemAdmin, "admin_required", next)
}

func (g *RoleGuard) require(role, code string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if !ok {
			writeError(w, apperr.Unauthorized("missing_token"))
			return
		}
		if !g.Allowed(p, role) {
			writeError(w, apperr.Forbidden(code))
			return
		}
		next.ServeHTTP(w, r)
	})
}
