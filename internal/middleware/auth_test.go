package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mmeshcher/tableside/internal/apiclient"
	"github.com/mmeshcher/tableside/internal/repository"
)

func newStore(t *testing.T) *repository.MemoryRepository {
	t.Helper()
	store := repository.NewMemoryRepository()
	if err := store.SaveSession(context.Background(), "s-42", &apiclient.Session{Role: apiclient.RoleAdmin, Token: "tok"}); err != nil {
		t.Fatalf("save session: %v", err)
	}
	return store
}

func TestAuthMiddleware_WithValidCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret", newStore(t))

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		sess, ok := SessionFromContext(r.Context())
		if !ok {
			t.Fatalf("session not in context")
		}
		if sess.Token != "tok" {
			t.Fatalf("token from context = %q, want tok", sess.Token)
		}
		if id, _ := SessionIDFromContext(r.Context()); id != "s-42" {
			t.Fatalf("session id = %q, want s-42", id)
		}
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)

	m.SetAuthCookie(w, "s-42")
	res := w.Result()
	resCookies := res.Cookies()
	if len(resCookies) == 0 {
		t.Fatalf("no cookies set by SetAuthCookie")
	}

	r.AddCookie(resCookies[0])

	handler := m.Middleware(next)
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
}

func TestAuthMiddleware_WithoutCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret", newStore(t))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)

	handler := m.Middleware(next)
	handler.ServeHTTP(w, r)

	res := w.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_RejectsForgedAndUnknown(t *testing.T) {
	m := NewAuthMiddleware("test-secret", newStore(t))
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})

	tests := []struct {
		name  string
		value string
	}{
		{"forged signature", "s-42.deadbeef"},
		{"no signature", "s-42"},
		{"unknown session", m.sign("s-7")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/protected", nil)
			r.AddCookie(&http.Cookie{Name: authCookieName, Value: tt.value})

			m.Middleware(next).ServeHTTP(w, r)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := RequireRole(apiclient.RoleAdmin)(ok)

	r := httptest.NewRequest(http.MethodGet, "/admin", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, &apiclient.Session{Role: apiclient.RoleStaff})))
	if w.Code != http.StatusForbidden {
		t.Fatalf("staff status = %d, want %d", w.Code, http.StatusForbidden)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, &apiclient.Session{Role: apiclient.RoleAdmin})))
	if w.Code != http.StatusNoContent {
		t.Fatalf("admin status = %d, want %d", w.Code, http.StatusNoContent)
	}
}
