package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"dejure-gateway/internal/guard"
	"dejure-gateway/internal/model"
)

func permissionRouter(user *model.UserProfile) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if user != nil {
				req = req.WithContext(guard.WithSession(req.Context(), model.Session{Token: "tok", User: user}))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.With(RequirePermission("module")).Handle("/modules/{module}/*", okHandler())
	return r
}

func staffWith(grants ...model.ModuleGrant) *model.UserProfile {
	return &model.UserProfile{ID: "s1", Role: model.RoleStaff, Permissions: grants}
}

func TestRequirePermissionByMethod(t *testing.T) {
	handler := permissionRouter(staffWith(model.ModuleGrant{
		Module:      model.ModuleRef{Name: "courses", Slug: "courses"},
		IsEnabled:   true,
		Permissions: []string{"read", "write"},
	}))

	cases := []struct {
		method string
		want   int
	}{
		{http.MethodGet, http.StatusOK},
		{http.MethodPost, http.StatusOK},
		{http.MethodPatch, http.StatusOK},
		{http.MethodDelete, http.StatusForbidden},
		{http.MethodOptions, http.StatusForbidden},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(tc.method, "/modules/courses/7", nil))
		assert.Equal(t, tc.want, rec.Code, tc.method)
	}
}

func TestRequirePermissionDisabledModule(t *testing.T) {
	handler := permissionRouter(staffWith(model.ModuleGrant{
		Module:      model.ModuleRef{Name: "courses"},
		Permissions: []string{"*"},
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/modules/courses/", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "courses:view")
}

func TestRequirePermissionWithoutUser(t *testing.T) {
	rec := httptest.NewRecorder()
	permissionRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/modules/courses/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequirePermissionAdminBypass(t *testing.T) {
	rec := httptest.NewRecorder()
	permissionRouter(&model.UserProfile{ID: "a1", Role: model.RoleAdmin}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/modules/anything/1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
