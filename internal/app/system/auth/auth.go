package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

// Session cookie value keys. Only the uid is persisted in the cookie;
// roles are loaded fresh from the store on every request so grants and
// revocations take effect immediately.
const (
	isAuthKey = "is_authenticated"
	uidKey    = "uid"
)

// SessionUser is the per-request view of the authenticated identity,
// injected into r.Context() by LoadSessionUser.
type SessionUser struct {
	UID           string
	Email         string
	DisplayName   string
	Roles         []string
	AdminCareers  []string
	PlatformAdmin bool
}

// UserFetcher loads fresh identity/role data for a uid on each request.
// Implementations return nil when the uid has no usable account state.
type UserFetcher interface {
	FetchUser(ctx context.Context, uid string) *SessionUser
}

// SessionManager owns the session cookie lifecycle. The cookie is an
// opaque, signed, time-bounded artifact; it carries only the uid, never
// role claims.
type SessionManager struct {
	store *sessions.CookieStore
	name  string
	ttl   time.Duration

	fetcher UserFetcher
	log     *zap.Logger
}

// NewSessionManager builds a cookie-backed SessionManager.
//
// In production (secure=true) cookies are Secure + SameSite=None so
// they survive cross-site use over HTTPS; in local dev Lax is fine.
func NewSessionManager(sessionKey, name, domain string, ttl time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.Bool("secure", secure),
		zap.String("domain", domain),
		zap.Duration("ttl", ttl))

	return &SessionManager{store: store, name: name, ttl: ttl, log: logger}, nil
}

// SetUserFetcher installs the fetcher LoadSessionUser uses to resolve
// the uid in the cookie into a SessionUser.
func (m *SessionManager) SetUserFetcher(f UserFetcher) {
	m.fetcher = f
}

// TTL returns the configured session lifetime.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// GetSession returns the request's session, or a fresh one along with
// the decode error when the cookie is invalid.
func (m *SessionManager) GetSession(r *http.Request) (*sessions.Session, error) {
	return m.store.Get(r, m.name)
}

// SignIn marks the session authenticated for uid and writes the cookie.
// An undecodable stale cookie is expected (rotated keys, tampering) and
// only warned about; any other store error is logged at error level.
// Either way Get hands back a fresh session, so sign-in proceeds.
func (m *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, uid string) error {
	sess, err := m.GetSession(r)
	if err != nil {
		if scErr, ok := err.(securecookie.Error); ok && scErr.IsDecode() {
			m.log.Warn("session cookie invalid at sign-in, using fresh session",
				zap.Error(err), zap.String("uid", uid))
		} else {
			m.log.Error("session store error at sign-in, using fresh session",
				zap.Error(err), zap.String("uid", uid))
		}
	}
	sess.Values[isAuthKey] = true
	sess.Values[uidKey] = uid
	return sess.Save(r, w)
}

// SignOut clears the session. It also sets an expired empty cookie with
// the same flags, which some clients require before they drop a cookie
// that was originally set with different attributes.
func (m *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := m.GetSession(r)
	delete(sess.Values, isAuthKey)
	delete(sess.Values, uidKey)
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.store.Options.Secure,
		SameSite: m.store.Options.SameSite,
	})
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Current-user context                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user injected by LoadSessionUser and a
// found flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// LoadSessionUser resolves the session cookie into a SessionUser and
// injects it into the request context. Requests without a valid,
// authenticated session pass through with no user set.
func (m *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.GetSession(r)
		if err != nil {
			// An undecodable cookie means signed-out; anything else is a
			// store problem worth surfacing in the logs. Both fall through
			// to the unauthenticated path.
			if scErr, ok := err.(securecookie.Error); ok && scErr.IsDecode() {
				m.log.Debug("undecodable session cookie, treating as signed out",
					zap.Error(err))
			} else {
				m.log.Error("session store error loading session", zap.Error(err))
			}
			next.ServeHTTP(w, r)
			return
		}

		isAuth, _ := sess.Values[isAuthKey].(bool)
		uid, _ := sess.Values[uidKey].(string)
		if !isAuth || uid == "" {
			next.ServeHTTP(w, r)
			return
		}

		if m.fetcher == nil {
			// No fetcher configured (tests): carry just the uid.
			next.ServeHTTP(w, withUser(r, &SessionUser{UID: uid}))
			return
		}

		if u := m.fetcher.FetchUser(r.Context(), uid); u != nil {
			r = withUser(r, u)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn rejects requests without a user in context with a
// JSON 401. Mount after LoadSessionUser.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithTestUser injects a user into the request context, bypassing the
// session middleware. Test use only.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}
