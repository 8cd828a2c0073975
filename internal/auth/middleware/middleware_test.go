package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/eduhub-assess/internal/rbac"
	"github.com/mind-engage/eduhub-assess/internal/users"
)

type fakeAccounts map[string]users.User

func (f fakeAccounts) Authenticate(_ context.Context, username, password string) (users.User, error) {
	u, ok := f[username]
	if !ok || password != "pw" {
		return users.User{}, users.ErrInvalidCredentials
	}
	return u, nil
}

func (f fakeAccounts) Get(_ context.Context, sub string) (users.User, error) {
	for _, u := range f {
		if u.ID == sub {
			return u, nil
		}
	}
	return users.User{}, users.ErrNotFound
}

func TestIssueAndParse(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	tok, err := a.IssueJWT(users.User{ID: "u1", Role: "student", Name: "Alex"})
	require.NoError(t, err)

	c, err := a.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", c.Sub)
	assert.Equal(t, "student", c.Role)

	_, err = NewAuthService("other", time.Hour).Parse(tok)
	assert.Error(t, err)
}

func TestLoginHandler(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	h := LoginHandler(a, fakeAccounts{"alex": {ID: "u1", Username: "alex", Role: "student"}})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"alex","password":"pw"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "access_token")

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"alex","password":"x"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJWTMiddlewareSetsContext(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	tok, err := a.IssueJWT(users.User{ID: "u1", Role: "teacher", Name: "Ms Lee"})
	require.NoError(t, err)

	var sub, role, name string
	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub = SubjectFromContext(r.Context())
		role = rbac.RoleFromContext(r.Context())
		name = NameFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "u1", sub)
	assert.Equal(t, "teacher", role)
	assert.Equal(t, "Ms Lee", name)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/x", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"missing bearer"}`, rec.Body.String())
}

func TestAttachRoleFromDB(t *testing.T) {
	lookup := fakeAccounts{"alex": {ID: "u1", Role: "teacher"}}
	var role string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { role = rbac.RoleFromContext(r.Context()) })

	req := func(sub, claimRole string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		ctx := rbac.WithRole(WithSubject(r.Context(), sub), claimRole)
		return r.WithContext(ctx)
	}

	AttachRoleFromDB(lookup, false)(next).ServeHTTP(httptest.NewRecorder(), req("u1", "student"))
	assert.Equal(t, "teacher", role)

	rec := httptest.NewRecorder()
	AttachRoleFromDB(lookup, false)(next).ServeHTTP(rec, req("ghost", "student"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	role = ""
	AttachRoleFromDB(lookup, true)(next).ServeHTTP(httptest.NewRecorder(), req("ghost", "student"))
	assert.Equal(t, "student", role)
}
