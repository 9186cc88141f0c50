package handlers

import "net/http"

// Router bundles the handlers that make up the API
type Router struct {
	Middleware  *Middleware
	Auth        *AuthHandler
	Family      *FamilyHandler
	Actions     *ActionHandler
	Suggestions *SuggestionHandler
	Reports     *ReportHandler
}

// Handler registers every route and wraps the mux with request logging
func (rt *Router) Handler() http.Handler {
	m := rt.Middleware
	anyone := func(h http.HandlerFunc) http.HandlerFunc { return m.RequireAuth(m.CSRFProtect(h)) }
	manager := func(h http.HandlerFunc) http.HandlerFunc { return m.RequireHeadOrParent(m.CSRFProtect(h)) }
	head := func(h http.HandlerFunc) http.HandlerFunc { return m.RequireHead(m.CSRFProtect(h)) }

	mux := http.NewServeMux()

	// Authentication
	mux.HandleFunc("POST /api/register", m.RateLimit(rt.Auth.Register))
	mux.HandleFunc("POST /api/login", m.RateLimit(rt.Auth.Login))
	mux.HandleFunc("POST /api/logout", rt.Auth.Logout)
	mux.HandleFunc("GET /api/user", anyone(rt.Auth.CurrentUser))
	mux.HandleFunc("PATCH /api/user", anyone(rt.Auth.UpdateProfile))
	mux.HandleFunc("GET /api/auth/providers", rt.Auth.OAuthProviders)
	mux.HandleFunc("GET /api/auth/{provider}/start", rt.Auth.StartOAuth)
	mux.HandleFunc("GET /api/auth/{provider}/callback", rt.Auth.OAuthCallback)

	// Family and invitations
	mux.HandleFunc("GET /api/family", anyone(rt.Family.GetFamily))
	mux.HandleFunc("GET /api/family-members", anyone(rt.Family.ListMembers))
	mux.HandleFunc("GET /api/family/members", anyone(rt.Family.ListMembers))
	mux.HandleFunc("DELETE /api/family-members/{id}", head(rt.Family.RemoveMember))
	mux.HandleFunc("DELETE /api/family/members/{id}", head(rt.Family.RemoveMember))
	mux.HandleFunc("GET /api/invitations", head(rt.Family.ListInvitations))
	mux.HandleFunc("POST /api/invitations", head(rt.Family.CreateInvitation))
	mux.HandleFunc("POST /api/family/invite", manager(rt.Family.CreateInvitation))
	mux.HandleFunc("GET /api/invitations/{token}/accept", rt.Family.AcceptInvitation)
	mux.HandleFunc("GET /api/family/accept-invite", rt.Family.AcceptInvite)

	// Action templates
	mux.HandleFunc("GET /api/action-templates", anyone(rt.Actions.ListTemplates))
	mux.HandleFunc("POST /api/action-templates", manager(rt.Actions.CreateTemplate))
	mux.HandleFunc("PATCH /api/action-templates/{id}", manager(rt.Actions.UpdateTemplate))
	mux.HandleFunc("DELETE /api/action-templates/{id}", manager(rt.Actions.DeleteTemplate))

	// Assigned actions
	mux.HandleFunc("GET /api/assigned-actions", anyone(rt.Actions.ListAssigned))
	mux.HandleFunc("GET /api/assigned-actions/today", anyone(rt.Actions.ListToday))
	mux.HandleFunc("POST /api/assigned-actions", manager(rt.Actions.CreateAssigned))
	mux.HandleFunc("PATCH /api/assigned-actions/{id}", anyone(rt.Actions.UpdateAssigned))
	mux.HandleFunc("PATCH /api/assigned-actions/{id}/complete", anyone(rt.Actions.CompleteAssigned))
	mux.HandleFunc("DELETE /api/assigned-actions/{id}", manager(rt.Actions.DeleteAssigned))

	// Suggestions
	mux.HandleFunc("GET /api/action-suggestions", anyone(rt.Suggestions.List))
	mux.HandleFunc("GET /api/action-suggestions/pending", manager(rt.Suggestions.ListPending))
	mux.HandleFunc("POST /api/action-suggestions", anyone(rt.Suggestions.Create))
	mux.HandleFunc("PATCH /api/action-suggestions/{id}/approve", manager(rt.Suggestions.Approve))
	mux.HandleFunc("PATCH /api/action-suggestions/{id}/decline", manager(rt.Suggestions.Decline))

	// Reports
	mux.HandleFunc("GET /api/reports/points", anyone(rt.Reports.Points))
	mux.HandleFunc("GET /api/reports/actions", anyone(rt.Reports.Actions))
	mux.HandleFunc("GET /api/summary", anyone(rt.Reports.Summary))

	return Logging(mux)
}
