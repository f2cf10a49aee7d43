package httpapi

import (
	"net/http"
	"strings"

	"gradverify/internal/domain"
)

// dashboardRoutes is the declarative role table for the page surface. Role
// sets are written out in full; see requireRole for the API side.
type routeRoles struct {
	Prefix string
	Roles  []domain.Role
}

var dashboardRoutes = []routeRoles{
	{Prefix: "/dashboard/student", Roles: []domain.Role{domain.RoleStudent}},
	{Prefix: "/dashboard/faculty", Roles: []domain.Role{domain.RoleFaculty, domain.RoleSuperAdmin}},
	{Prefix: "/dashboard/admin", Roles: []domain.Role{domain.RoleAdmin, domain.RoleSuperAdmin}},
	{Prefix: "/dashboard/super", Roles: []domain.Role{domain.RoleSuperAdmin}},
}

func roleHome(role domain.Role) string {
	switch role {
	case domain.RoleStudent:
		return "/dashboard/student"
	case domain.RoleFaculty:
		return "/dashboard/faculty"
	case domain.RoleAdmin:
		return "/dashboard/admin"
	case domain.RoleSuperAdmin:
		return "/dashboard/super"
	}
	return "/login"
}

// pageGuard handles dashboard navigation: anonymous and stale-cookie
// visitors go to login, visitors with the wrong role go to their own
// dashboard.
func (a *api) pageGuard(w http.ResponseWriter, r *http.Request) {
	if sessionInvalid(r.Context()) {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	sess, ok := CurrentSession(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	for _, route := range dashboardRoutes {
		if !strings.HasPrefix(r.URL.Path, route.Prefix) {
			continue
		}
		if !roleAllowed(sess.Role, route.Roles) {
			http.Redirect(w, r, roleHome(sess.Role), http.StatusFound)
			return
		}
		a.servePage(w, sess, route.Prefix)
		return
	}

	http.Redirect(w, r, roleHome(sess.Role), http.StatusFound)
}

// servePage is the placeholder for the server-rendered dashboard shell; the
// front end consumes the JSON API.
func (a *api) servePage(w http.ResponseWriter, sess domain.Session, prefix string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte("<!doctype html><title>GradVerify</title><div id=\"app\" data-dashboard=\"" + strings.TrimPrefix(prefix, "/dashboard/") + "\"></div>"))
}
