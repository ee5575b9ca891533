// Package identity provides anonymous per-device identity and the
// conversation ID derived from it.
package identity

import (
	"context"
	"encoding/hex"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	AnonCookieName        = "plate_anon_id"
	SessionHeaderName     = "X-Plate-Session-ID"
	DefaultSessionIDValue = "default"

	anonPrefix       = "anon_"
	anonCookieMaxAge = 30 * 24 * time.Hour
)

type contextKey int

const (
	userIDKey contextKey = iota
	sessionIDKey
)

// ':' is excluded so a conversation ID always splits back into its parts.
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// SessionIDFromContext extracts the tab session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return DefaultSessionIDValue
}

// ConversationID joins a user and tab session into the key the conversation
// state machine is tracked under.
func ConversationID(userID, sessionID string) string {
	return userID + ":" + sessionID
}

// ConversationIDFromContext returns the conversation ID of the request.
func ConversationIDFromContext(ctx context.Context) string {
	return ConversationID(UserIDFromContext(ctx), SessionIDFromContext(ctx))
}

// WithIdentity returns a context carrying the given identity. Invalid session
// IDs fall back to DefaultSessionIDValue.
func WithIdentity(ctx context.Context, userID, sessionID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, sessionIDKey, normalizeSession(sessionID))
}

// newAnonID returns "anon_" followed by a random UUID in plain hex.
func newAnonID() string {
	id := uuid.New()
	return anonPrefix + hex.EncodeToString(id[:])
}

func validAnonID(id string) bool {
	raw, ok := strings.CutPrefix(id, anonPrefix)
	if !ok || len(raw) != 32 || strings.ToLower(raw) != raw {
		return false
	}
	_, err := hex.DecodeString(raw)
	return err == nil
}

func normalizeSession(id string) string {
	id = strings.TrimSpace(id)
	if !sessionIDPattern.MatchString(id) {
		return DefaultSessionIDValue
	}
	return id
}

// Middleware resolves the device cookie (issuing one when missing or
// malformed) and the tab session from the X-Plate-Session-ID header or the
// session_id query parameter. The cookie is refreshed on every request.
func Middleware(isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := newAnonID()
			if c, err := r.Cookie(AnonCookieName); err == nil && validAnonID(c.Value) {
				userID = c.Value
			}
			http.SetCookie(w, &http.Cookie{
				Name:     AnonCookieName,
				Value:    userID,
				Path:     "/",
				MaxAge:   int(anonCookieMaxAge.Seconds()),
				Expires:  time.Now().Add(anonCookieMaxAge),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				Secure:   !isDev,
			})

			sessionID := r.Header.Get(SessionHeaderName)
			if sessionID == "" {
				sessionID = r.URL.Query().Get("session_id")
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), userID, sessionID)))
		})
	}
}

// IPFromRequest returns the remote IP without its port.
func IPFromRequest(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
