package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"familypoints/internal/models"
	"familypoints/internal/repository"
	"familypoints/internal/repository/memstore"
	"familypoints/internal/security"
	"familypoints/internal/service"
)

type testEnv struct {
	t       *testing.T
	handler http.Handler
}

func newTestEnv(t *testing.T, limiter security.Limiter) *testEnv {
	t.Helper()
	return newStoreTestEnv(t, memstore.New(), limiter)
}

func newStoreTestEnv(t *testing.T, store repository.Store, limiter security.Limiter) *testEnv {
	t.Helper()
	tokens := security.NewTokenManager("test-secret", time.Hour)
	csrf := security.NewCSRFGenerator("test-csrf")
	authService := service.NewAuthService(store, tokens, time.Hour)

	router := &Router{
		Middleware:  NewMiddleware(authService, csrf, limiter),
		Auth:        NewAuthHandler(authService, csrf, nil, ""),
		Family:      NewFamilyHandler(service.NewFamilyService(store, nil, "http://localhost:8080")),
		Actions:     NewActionHandler(service.NewActionService(store)),
		Suggestions: NewSuggestionHandler(service.NewSuggestionService(store)),
		Reports:     NewReportHandler(service.NewReportService(store)),
	}
	return &testEnv{t: t, handler: router.Handler()}
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

// registerHead creates a family and returns its head's login
func (e *testEnv) registerHead(username, familyName string) loginResponse {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/register", "", map[string]any{
		"username":   username,
		"password":   "secret1",
		"name":       "Head " + username,
		"familyName": familyName,
	})
	expectStatus(e.t, rec, http.StatusCreated)
	return decode[loginResponse](e.t, rec)
}

// invite registers a new member of the head's family through an invitation
func (e *testEnv) invite(headToken, username, role string) loginResponse {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/invitations", headToken, map[string]any{
		"email": username + "@example.com",
		"role":  role,
	})
	expectStatus(e.t, rec, http.StatusCreated)
	inv := decode[models.InvitationWithURL](e.t, rec)

	rec = e.do(http.MethodPost, "/api/register", "", map[string]any{
		"username":        username,
		"password":        "secret1",
		"name":            "Member " + username,
		"invitationToken": inv.Token,
	})
	expectStatus(e.t, rec, http.StatusCreated)
	return decode[loginResponse](e.t, rec)
}

type familyFixture struct {
	head, parent, child loginResponse
	template            models.ActionTemplate
}

func (e *testEnv) family(prefix string) familyFixture {
	e.t.Helper()
	f := familyFixture{head: e.registerHead(prefix+"head", prefix+" family")}
	f.parent = e.invite(f.head.Token, prefix+"parent", models.RoleParent)
	f.child = e.invite(f.head.Token, prefix+"child", models.RoleChild)

	rec := e.do(http.MethodPost, "/api/action-templates", f.parent.Token, map[string]any{
		"name":   "Clean room",
		"points": 5,
	})
	expectStatus(e.t, rec, http.StatusCreated)
	f.template = decode[models.ActionTemplate](e.t, rec)
	return f
}

func (e *testEnv) assign(f familyFixture, quantity int, date string, completed bool) models.AssignedAction {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/assigned-actions", f.parent.Token, map[string]any{
		"actionTemplateId": f.template.ID,
		"childId":          f.child.User.ID,
		"quantity":         quantity,
		"date":             date,
	})
	expectStatus(e.t, rec, http.StatusCreated)
	action := decode[models.AssignedAction](e.t, rec)
	if completed {
		rec = e.do(http.MethodPatch, fmt.Sprintf("/api/assigned-actions/%d/complete", action.ID), f.child.Token, nil)
		expectStatus(e.t, rec, http.StatusOK)
		action = decode[models.AssignedAction](e.t, rec)
	}
	return action
}

func TestAuthentication(t *testing.T) {
	env := newTestEnv(t, nil)
	head := env.registerHead("mum", "Smiths")

	if !head.User.IsHead() || head.Token == "" || head.CSRFToken == "" {
		t.Fatalf("register response = %+v", head)
	}

	rec := env.do(http.MethodGet, "/api/user", head.Token, nil)
	expectStatus(t, rec, http.StatusOK)
	if user := decode[models.User](t, rec); user.Username != "mum" {
		t.Errorf("username = %q, want mum", user.Username)
	}

	rec = env.do(http.MethodGet, "/api/user", "", nil)
	expectStatus(t, rec, http.StatusUnauthorized)
	if msg := decode[errorResponse](t, rec).Message; msg != ErrNotAuthenticated {
		t.Errorf("message = %q", msg)
	}

	rec = env.do(http.MethodGet, "/api/user", "forged.token.value", nil)
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = env.do(http.MethodPost, "/api/login", "", map[string]string{"username": "mum", "password": "nope-nope"})
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = env.do(http.MethodPost, "/api/register", "", map[string]string{"username": "mum", "password": "secret1", "name": "Other", "familyName": "Other"})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = env.do(http.MethodPost, "/api/register", "", map[string]string{"username": "x"})
	expectStatus(t, rec, http.StatusBadRequest)
	if errs := decode[errorResponse](t, rec).Errors; len(errs) == 0 {
		t.Error("expected field errors for invalid registration")
	}

	rec = env.do(http.MethodPost, "/api/register", "", "{not json")
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestCookieSessionRequiresCSRFToken(t *testing.T) {
	env := newTestEnv(t, nil)
	env.registerHead("mum", "Smiths")

	rec := env.do(http.MethodPost, "/api/login", "", map[string]string{"username": "mum", "password": "secret1"})
	expectStatus(t, rec, http.StatusOK)
	login := decode[loginResponse](t, rec)

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == security.SessionCookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("login did not set the session cookie")
	}

	post := func(csrfToken string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/action-templates", bytes.NewReader([]byte(`{"name":"Dishes","points":2}`)))
		req.AddCookie(sessionCookie)
		if csrfToken != "" {
			req.Header.Set(security.CSRFHeader, csrfToken)
		}
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		return rec
	}

	expectStatus(t, post(""), http.StatusForbidden)
	expectStatus(t, post("wrong"), http.StatusForbidden)
	expectStatus(t, post(login.CSRFToken), http.StatusCreated)

	req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
	req.AddCookie(sessionCookie)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[userResponse](t, rec).CSRFToken; got != login.CSRFToken {
		t.Errorf("csrfToken = %q, want %q", got, login.CSRFToken)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	req.AddCookie(sessionCookie)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusNoContent)

	req = httptest.NewRequest(http.MethodGet, "/api/user", nil)
	req.AddCookie(sessionCookie)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestRoleGates(t *testing.T) {
	env := newTestEnv(t, nil)
	f := env.family("a")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{"child cannot create templates", http.MethodPost, "/api/action-templates", f.child.Token, map[string]any{"name": "x", "points": 1}, http.StatusForbidden},
		{"child cannot list pending", http.MethodGet, "/api/action-suggestions/pending", f.child.Token, nil, http.StatusForbidden},
		{"parent cannot list invitations", http.MethodGet, "/api/invitations", f.parent.Token, nil, http.StatusForbidden},
		{"parent cannot remove members", http.MethodDelete, fmt.Sprintf("/api/family-members/%d", f.child.User.ID), f.parent.Token, nil, http.StatusForbidden},
		{"parent may invite through alias", http.MethodPost, "/api/family/invite", f.parent.Token, map[string]any{"email": "x@y.com", "role": "child"}, http.StatusCreated},
		{"child sees templates", http.MethodGet, "/api/action-templates", f.child.Token, nil, http.StatusOK},
		{"child sees members", http.MethodGet, "/api/family/members", f.child.Token, nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.path, tt.token, tt.body)
			expectStatus(t, rec, tt.want)
			if tt.want == http.StatusForbidden {
				if msg := decode[errorResponse](t, rec).Message; msg != ErrInsufficientPerms {
					t.Errorf("message = %q, want %q", msg, ErrInsufficientPerms)
				}
			}
		})
	}
}

func TestRemoveMember(t *testing.T) {
	env := newTestEnv(t, nil)
	f := env.family("a")

	rec := env.do(http.MethodDelete, fmt.Sprintf("/api/family-members/%d", f.head.User.ID), f.head.Token, nil)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = env.do(http.MethodDelete, "/api/family-members/9999", f.head.Token, nil)
	expectStatus(t, rec, http.StatusNotFound)

	rec = env.do(http.MethodDelete, fmt.Sprintf("/api/family/members/%d", f.parent.User.ID), f.head.Token, nil)
	expectStatus(t, rec, http.StatusNoContent)

	rec = env.do(http.MethodGet, "/api/family", f.head.Token, nil)
	expectStatus(t, rec, http.StatusOK)
	if members := decode[models.FamilyWithMembers](t, rec).Members; len(members) != 2 {
		t.Errorf("members = %d, want 2", len(members))
	}
}

func TestChildPatchRestriction(t *testing.T) {
	env := newTestEnv(t, nil)
	f := env.family("a")
	action := env.assign(f, 3, "2024-03-05", false)
	path := fmt.Sprintf("/api/assigned-actions/%d", action.ID)

	rec := env.do(http.MethodPatch, path, f.child.Token, map[string]any{"completed": true, "quantity": 10})
	expectStatus(t, rec, http.StatusForbidden)

	rec = env.do(http.MethodPatch, path, f.child.Token, map[string]any{"completed": true})
	expectStatus(t, rec, http.StatusOK)
	updated := decode[models.AssignedAction](t, rec)
	if !updated.Completed || updated.Quantity != 3 {
		t.Errorf("updated = %+v", updated)
	}

	rec = env.do(http.MethodPatch, path, f.parent.Token, map[string]any{"quantity": 4})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[models.AssignedAction](t, rec); got.Quantity != 4 || !got.Completed {
		t.Errorf("parent update = %+v", got)
	}

	rec = env.do(http.MethodPatch, path, f.parent.Token, map[string]any{"quantity": 0})
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestCrossFamilyAccess(t *testing.T) {
	env := newTestEnv(t, nil)
	a := env.family("a")
	b := env.family("b")
	action := env.assign(a, 1, "2024-03-05", false)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"update template", http.MethodPatch, fmt.Sprintf("/api/action-templates/%d", a.template.ID), map[string]any{"points": 100}, http.StatusForbidden},
		{"delete template", http.MethodDelete, fmt.Sprintf("/api/action-templates/%d", a.template.ID), nil, http.StatusForbidden},
		{"complete action", http.MethodPatch, fmt.Sprintf("/api/assigned-actions/%d/complete", action.ID), nil, http.StatusForbidden},
		{"delete action", http.MethodDelete, fmt.Sprintf("/api/assigned-actions/%d", action.ID), nil, http.StatusForbidden},
		{"report", http.MethodGet, fmt.Sprintf("/api/reports/points?childId=%d&startDate=2024-01-01&endDate=2024-12-31", a.child.User.ID), nil, http.StatusForbidden},
		{"missing template", http.MethodDelete, "/api/action-templates/9999", nil, http.StatusNotFound},
		{"foreign template on create", http.MethodPost, "/api/assigned-actions", map[string]any{
			"actionTemplateId": a.template.ID, "childId": b.child.User.ID, "date": "2024-03-05",
		}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.path, b.head.Token, tt.body)
			expectStatus(t, rec, tt.want)
		})
	}

	rec := env.do(http.MethodGet, "/api/assigned-actions", b.head.Token, nil)
	expectStatus(t, rec, http.StatusOK)
	if actions := decode[[]models.AssignedActionDetail](t, rec); len(actions) != 0 {
		t.Errorf("other family sees %d actions", len(actions))
	}
}

func TestSuggestionApproval(t *testing.T) {
	env := newTestEnv(t, nil)
	f := env.family("a")

	rec := env.do(http.MethodPost, "/api/action-suggestions", f.child.Token, map[string]any{
		"actionTemplateId": f.template.ID,
		"quantity":         2,
		"date":             "2024-03-05",
	})
	expectStatus(t, rec, http.StatusCreated)
	suggestion := decode[models.ActionSuggestion](t, rec)
	if suggestion.ChildID != f.child.User.ID || suggestion.Status != models.SuggestionPending {
		t.Fatalf("suggestion = %+v", suggestion)
	}

	rec = env.do(http.MethodGet, "/api/action-suggestions/pending", f.head.Token, nil)
	expectStatus(t, rec, http.StatusOK)
	if pending := decode[[]models.ActionSuggestionDetail](t, rec); len(pending) != 1 || pending[0].ActionTemplate == nil {
		t.Fatalf("pending = %+v", pending)
	}

	approvePath := fmt.Sprintf("/api/action-suggestions/%d/approve", suggestion.ID)
	rec = env.do(http.MethodPatch, approvePath, f.head.Token, nil)
	expectStatus(t, rec, http.StatusOK)
	approved := decode[models.ApprovedSuggestion](t, rec)
	if approved.Status != models.SuggestionApproved || approved.AssignedAction == nil || approved.AssignedAction.Completed {
		t.Errorf("approved = %+v", approved)
	}

	rec = env.do(http.MethodPatch, approvePath, f.parent.Token, nil)
	expectStatus(t, rec, http.StatusBadRequest)
	if msg := decode[errorResponse](t, rec).Message; msg != ErrSuggestionProcessed {
		t.Errorf("message = %q", msg)
	}
	rec = env.do(http.MethodPatch, fmt.Sprintf("/api/action-suggestions/%d/decline", suggestion.ID), f.parent.Token, nil)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = env.do(http.MethodGet, "/api/assigned-actions", f.child.Token, nil)
	expectStatus(t, rec, http.StatusOK)
	if actions := decode[[]models.AssignedActionDetail](t, rec); len(actions) != 1 {
		t.Errorf("actions after approval = %d, want 1", len(actions))
	}

	rec = env.do(http.MethodGet, "/api/action-suggestions?status=bogus", f.head.Token, nil)
	expectStatus(t, rec, http.StatusBadRequest)
	rec = env.do(http.MethodPatch, "/api/action-suggestions/9999/approve", f.head.Token, nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestInvitationAcceptance(t *testing.T) {
	env := newTestEnv(t, nil)
	head := env.registerHead("mum", "Smiths")

	rec := env.do(http.MethodPost, "/api/invitations", head.Token, map[string]any{"email": "a@b.com", "role": "child"})
	expectStatus(t, rec, http.StatusCreated)
	inv := decode[models.InvitationWithURL](t, rec)
	if inv.Accepted || len(inv.Token) == 0 || inv.InviteURL == "" {
		t.Fatalf("invitation = %+v", inv)
	}

	rec = env.do(http.MethodPost, "/api/invitations", head.Token, map[string]any{"email": "a@b.com", "role": "head"})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = env.do(http.MethodGet, "/api/invitations/"+inv.Token+"/accept", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if accepted := decode[models.Invitation](t, rec); !accepted.Accepted {
		t.Error("invitation should be accepted")
	}

	rec = env.do(http.MethodGet, inv.InviteURL, "", nil)
	expectStatus(t, rec, http.StatusBadRequest)
	if msg := decode[errorResponse](t, rec).Message; msg != ErrInvitationAccepted {
		t.Errorf("message = %q", msg)
	}

	rec = env.do(http.MethodGet, "/api/invitations/unknown/accept", "", nil)
	expectStatus(t, rec, http.StatusNotFound)
	rec = env.do(http.MethodGet, "/api/family/accept-invite", "", nil)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = env.do(http.MethodGet, "/api/invitations", head.Token, nil)
	expectStatus(t, rec, http.StatusOK)
	if list := decode[[]models.Invitation](t, rec); len(list) != 1 {
		t.Errorf("invitations = %d, want 1", len(list))
	}
}

func TestReports(t *testing.T) {
	env := newTestEnv(t, nil)
	f := env.family("a")
	env.assign(f, 3, "2024-03-05", true)
	env.assign(f, 2, "2024-03-04", false)
	env.assign(f, 1, "2024-04-01", true)

	query := fmt.Sprintf("?childId=%d&startDate=2024-03-01&endDate=2024-03-05", f.child.User.ID)

	rec := env.do(http.MethodGet, "/api/reports/points"+query, f.parent.Token, nil)
	expectStatus(t, rec, http.StatusOK)
	if points := decode[models.PointsReport](t, rec).Points; points != 15 {
		t.Errorf("points = %v, want 15", points)
	}

	rec = env.do(http.MethodGet, "/api/reports/actions"+query, f.child.Token, nil)
	expectStatus(t, rec, http.StatusOK)
	actions := decode[[]models.AssignedActionDetail](t, rec)
	if len(actions) != 2 {
		t.Fatalf("actions = %d, want 2", len(actions))
	}
	if actions[0].TotalPoints != 15 || actions[1].TotalPoints != 10 || actions[1].Completed {
		t.Errorf("actions = %+v", actions)
	}

	for _, bad := range []string{
		"",
		"?childId=abc&startDate=2024-03-01&endDate=2024-03-05",
		fmt.Sprintf("?childId=%d&startDate=nonsense&endDate=2024-03-05", f.child.User.ID),
	} {
		rec = env.do(http.MethodGet, "/api/reports/points"+bad, f.parent.Token, nil)
		expectStatus(t, rec, http.StatusBadRequest)
		if msg := decode[errorResponse](t, rec).Message; msg != ErrInvalidParameters {
			t.Errorf("message = %q", msg)
		}
	}

	rec = env.do(http.MethodGet, "/api/summary", f.child.Token, nil)
	expectStatus(t, rec, http.StatusOK)
	if summary := decode[models.Summary](t, rec); summary.PendingSuggestions != 0 {
		t.Errorf("child summary = %+v", summary)
	}
	rec = env.do(http.MethodGet, "/api/summary?childId=9999", f.parent.Token, nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestLoginRateLimit(t *testing.T) {
	env := newTestEnv(t, security.NewRateLimiter(2, time.Minute))
	body := map[string]string{"username": "nobody", "password": "secret1"}

	expectStatus(t, env.do(http.MethodPost, "/api/login", "", body), http.StatusUnauthorized)
	expectStatus(t, env.do(http.MethodPost, "/api/login", "", body), http.StatusUnauthorized)
	rec := env.do(http.MethodPost, "/api/login", "", body)
	expectStatus(t, rec, http.StatusTooManyRequests)
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}
