package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"blessbox/internal/domain"
)

// Session identifies an authenticated organization user.
type Session struct {
	OrganizationID string `json:"org_id"`
	Email          string `json:"email"`
	Role           string `json:"role,omitempty"`
}

type sessionClaims struct {
	OrganizationID string `json:"org_id"`
	Email          string `json:"email"`
	Role           string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type sessionCtxKey struct{}

// SessionManager signs and resolves session cookies. Cookie issuance
// normally happens in the separate auth front end; Issue exists for dev
// mode and tests.
type SessionManager struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
}

func NewSessionManager(secret, cookieName string, ttl time.Duration) *SessionManager {
	return &SessionManager{secret: []byte(secret), cookieName: cookieName, ttl: ttl}
}

// Issue signs a session token for the given identity.
func (m *SessionManager) Issue(orgID, email, role string) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		OrganizationID: orgID,
		Email:          email,
		Role:           role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Resolve parses and verifies a token string into a Session.
func (m *SessionManager) Resolve(token string) (*Session, error) {
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrUnauthorized
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, domain.ErrUnauthorized
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return &Session{OrganizationID: claims.OrganizationID, Email: claims.Email, Role: claims.Role}, nil
}

// Middleware resolves the session cookie, if any, into the request context.
// Missing or invalid cookies leave the request anonymous; handlers that
// require a session call SessionFrom and reject.
func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(m.cookieName); err == nil {
			if sess, err := m.Resolve(cookie.Value); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), sessionCtxKey{}, sess))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// SessionFrom extracts the resolved session, or nil for anonymous requests.
func SessionFrom(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionCtxKey{}).(*Session); ok {
		return s
	}
	return nil
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// cronAuth guards scheduled-job routes with a shared bearer secret.
func cronAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" || bearerToken(r) != secret {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
