package restserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/chrissnell/tempcast/internal/log"
	"github.com/chrissnell/tempcast/internal/session"
	"github.com/felixge/httpsnoop"
)

type contextKey int

const sessionKey contextKey = iota

var errNoSession = errors.New("session cookie missing or expired; call GET /api/session first")

// loggingMiddleware records every request in the HTTP log buffer
func (c *Controller) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		log.LogHTTPRequest(r.Method, r.URL.Path, m.Code, m.Duration, int(m.Written), r.RemoteAddr, r.UserAgent())
		c.logger.Debugw("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", m.Code,
			"duration", m.Duration,
		)
	})
}

// sessionMiddleware resolves the caller's session from its cookie, creating
// one when the cookie is missing or refers to an expired session. Only the
// session endpoint uses it, so cookieless traffic elsewhere cannot grow the store.
func (c *Controller) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, created := c.sessions.GetOrCreate(c.sessionID(r))
		if created {
			// No Expires or MaxAge: the cookie lives as long as the browser session.
			http.SetCookie(w, &http.Cookie{
				Name:     c.sessionConfig.CookieName,
				Value:    s.ID,
				Path:     "/",
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, s)))
	})
}

// requireSession rejects requests that do not carry a live session cookie
func (c *Controller) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := c.sessions.Get(c.sessionID(r))
		if !ok {
			c.handlers.writeError(w, r, http.StatusUnauthorized, "no active session", errNoSession)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, s)))
	})
}

func (c *Controller) sessionID(r *http.Request) string {
	if cookie, err := r.Cookie(c.sessionConfig.CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func sessionFromContext(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionKey).(*session.Session)
	return s
}
