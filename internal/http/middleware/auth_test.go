package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/checkin-engine/internal/platform/ctxutil"
	"github.com/yungbote/checkin-engine/internal/platform/logger"
)

type fakeVerifier struct {
	tokens map[string]*ctxutil.RequestData
	seen   []string
}

func (f *fakeVerifier) SetContextFromToken(ctx context.Context, token string) (context.Context, error) {
	f.seen = append(f.seen, token)
	rd, ok := f.tokens[token]
	if !ok {
		return ctx, errors.New("invalid or expired token")
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}

func newAuthRouter(t *testing.T, v *fakeVerifier) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	am := NewAuthMiddleware(log, v)
	r := gin.New()
	admin := r.Group("/admin", am.RequireAuth(), am.RequireRole("admin"))
	admin.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/any", am.RequireAuth(), func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func TestRequireAuth(t *testing.T) {
	v := &fakeVerifier{tokens: map[string]*ctxutil.RequestData{
		"admin-token": {UserID: uuid.New(), Role: "admin"},
		"coach-token": {UserID: uuid.New(), Role: "coach"},
		"nil-user":    {Role: "admin"},
	}}
	r := newAuthRouter(t, v)

	cases := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing token", "/any", "", http.StatusUnauthorized},
		{"bad token", "/any", "Bearer nope", http.StatusUnauthorized},
		{"bearer ok", "/any", "Bearer coach-token", http.StatusOK},
		{"query token ok", "/any?token=coach-token", "", http.StatusOK},
		{"nil user forbidden", "/any", "Bearer nil-user", http.StatusForbidden},
		{"coach on admin route", "/admin/ping", "Bearer coach-token", http.StatusForbidden},
		{"admin on admin route", "/admin/ping", "Bearer admin-token", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: want=%d got=%d body=%s", tc.name, tc.want, rec.Code, rec.Body.String())
		}
	}
}
