// Package middleware содержит HTTP middleware для сервиса tableside.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/mmeshcher/tableside/internal/apiclient"
)

type contextKey string

const (
	sessionKey   contextKey = "session"
	sessionIDKey contextKey = "sessionID"
)

const (
	authCookieName = "tableside_session"
	authCookieTTL  = 12 * time.Hour
)

// SessionStore возвращает сессию персонала по идентификатору из cookie.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (*apiclient.Session, error)
}

// AuthMiddleware выполняет проверку аутентификации персонала по подписанному cookie.
type AuthMiddleware struct {
	secretKey []byte
	store     SessionStore
}

// NewAuthMiddleware создаёт middleware, подписывающий идентификаторы сессий ключом secret
// и загружающий сессии из store.
func NewAuthMiddleware(secret string, store SessionStore) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
		store:     store,
	}
}

// Middleware проверяет cookie авторизации и добавляет сессию бэкенда в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(authCookieName)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		id, ok := a.parseCookie(cookie.Value)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		sess, err := a.store.GetSession(r.Context(), id)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), sessionIDKey, id)
		ctx = context.WithValue(ctx, sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole пропускает только сессии с ролью role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFromContext(r.Context())
			if !ok || sess.Role != role {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SetAuthCookie устанавливает cookie авторизации для указанного идентификатора сессии.
func (a *AuthMiddleware) SetAuthCookie(w http.ResponseWriter, sessionID string) {
	cookie := &http.Cookie{
		Name:     authCookieName,
		Value:    a.sign(sessionID),
		Path:     "/",
		Expires:  time.Now().Add(authCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

// ClearAuthCookie удаляет cookie авторизации.
func (a *AuthMiddleware) ClearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *AuthMiddleware) signature(id string) string {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(id))
	return hex.EncodeToString(mac.Sum(nil))
}

func (a *AuthMiddleware) sign(id string) string {
	return id + "." + a.signature(id)
}

func (a *AuthMiddleware) parseCookie(cookieValue string) (string, bool) {
	id, signature, ok := strings.Cut(cookieValue, ".")
	if !ok || id == "" {
		return "", false
	}

	if !hmac.Equal([]byte(signature), []byte(a.signature(id))) {
		return "", false
	}

	return id, true
}

// SessionFromContext извлекает сессию бэкенда из контекста запроса.
func SessionFromContext(ctx context.Context) (*apiclient.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*apiclient.Session)
	return s, ok && s != nil
}

// SessionIDFromContext извлекает идентификатор сессии из контекста запроса.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok
}
