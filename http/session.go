package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"

	biblioteca "github.com/K3v1nD14s/Biblioteca"
)

const sessionCookieName = "biblioteca_session"

// Authorizer decides whether a request carries a valid session.
// Protected operations depend on this capability only.
type Authorizer interface {
	IsAuthorized(r *http.Request) bool
}

// sessionClaims is the payload of the signed session cookie: a single
// boolean flag plus standard expiry, no role distinctions.
type sessionClaims struct {
	LoggedIn bool `json:"logged_in"`
	jwt.RegisteredClaims
}

// SessionManager issues and verifies HMAC-signed session cookies.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
}

// NewSessionManager creates a SessionManager signing with secret.
// A non-positive ttl defaults to 24 hours.
func NewSessionManager(secret []byte, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionManager{secret: secret, ttl: ttl}
}

// Issue sets a fresh session cookie on the response.
func (m *SessionManager) Issue(w http.ResponseWriter) error {
	now := time.Now()
	claims := sessionClaims{
		LoggedIn: true,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return fmt.Errorf("sign session token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  now.Add(m.ttl),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (m *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// IsAuthorized reports whether the request carries a valid, unexpired
// session cookie signed with the manager's secret.
func (m *SessionManager) IsAuthorized(r *http.Request) bool {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v: %w", t.Header["alg"], biblioteca.ErrUnauthorized)
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return false
	}

	return claims.LoggedIn
}
