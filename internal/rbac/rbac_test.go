package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPolicy(t *testing.T) {
	c := NewChecker(nil)
	assert.True(t, c.Has(RoleStudent, "result:create"))
	assert.False(t, c.Has(RoleStudent, "result:grade"))
	assert.True(t, c.Has(RoleTeacher, "assessment:delete"))
	assert.True(t, c.Has(RoleTeacher, "result:grade"))
	assert.False(t, c.Has(RoleManager, "result:grade"))
	assert.True(t, c.Has(RoleAdmin, "anything:at-all"))
	assert.False(t, c.Has("guest", "assessment:view"))
	assert.True(t, c.Any(RoleManager, "result:grade", "result:view-all"))
}

func TestScope(t *testing.T) {
	c := NewChecker(nil)
	assert.Equal(t, ScopeOwn, c.Scope(RoleStudent, "result"))
	assert.Equal(t, ScopeAll, c.Scope(RoleTeacher, "submission"))
	assert.Equal(t, ScopeAll, c.Scope(RoleAdmin, "result"))
	assert.Equal(t, ScopeNone, c.Scope("guest", "result"))

	custom := NewChecker(map[string][]string{"grader": {"result:*", "results-archive"}})
	assert.Equal(t, ScopeAll, custom.Scope("grader", "result"))
	assert.False(t, custom.Has("grader", "results-archive:view"))
	assert.False(t, custom.Has("grader", "submission:view-own"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, ScopeNone, ScopeOf(req, "result"))
	req = req.WithContext(WithRole(req.Context(), RoleManager))
	assert.Equal(t, ScopeAll, ScopeOf(req, "result"))
}

func TestRequire(t *testing.T) {
	h := Require("result:grade")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for role, want := range map[string]int{
		RoleTeacher: http.StatusNoContent,
		RoleStudent: http.StatusForbidden,
		"":          http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodPut, "/", nil)
		req = req.WithContext(WithRole(req.Context(), role))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, role)
		if want == http.StatusForbidden {
			assert.JSONEq(t, `{"success":false,"error":"forbidden"}`, rec.Body.String())
		}
	}
}
