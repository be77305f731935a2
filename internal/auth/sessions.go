package auth

import (
	"database/sql"
	"encoding/gob"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/choplife/choplifeib/internal/config"
)

const (
	SessionKeyUserID  = "user_id"
	SessionKeyLoginAt = "login_at"
	SessionKeyFlash   = "flash"
)

// SessionCookieName is the name of the session cookie.
const SessionCookieName = "choplife_session"

func init() {
	gob.Register(time.Time{})
}

// SessionManager wraps scs.SessionManager with application-specific methods.
// Only the user ID lives in the session; profile and role are reloaded from
// the database on each request.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates a session manager backed by the sessions table
// of the main sqlite database.
func NewSessionManager(sqlDB *sql.DB, cfg config.Auth) (*SessionManager, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, err
	}

	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)

	lifetime := cfg.SessionLifetime
	if lifetime <= 0 {
		lifetime = 7 * 24 * time.Hour
	}
	sm.Lifetime = lifetime
	sm.IdleTimeout = lifetime / 2

	sm.Cookie.Name = SessionCookieName
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	// Lax keeps visitors signed in when they follow a shared listing link.
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"
	sm.Cookie.Persist = true

	return &SessionManager{SessionManager: sm}, nil
}

// CreateSession starts an authenticated session for userID. The token is
// renewed to prevent session fixation.
func (sm *SessionManager) CreateSession(r *http.Request, userID uint) error {
	if err := sm.RenewToken(r.Context()); err != nil {
		return err
	}
	sm.Put(r.Context(), SessionKeyUserID, int(userID))
	sm.Put(r.Context(), SessionKeyLoginAt, time.Now().UTC())
	return nil
}

func (sm *SessionManager) DestroySession(r *http.Request) error {
	return sm.Destroy(r.Context())
}

// GetUserID returns the session's user ID, or 0 when signed out.
func (sm *SessionManager) GetUserID(r *http.Request) uint {
	id := sm.GetInt(r.Context(), SessionKeyUserID)
	if id <= 0 {
		return 0
	}
	return uint(id)
}

func (sm *SessionManager) IsAuthenticated(r *http.Request) bool {
	return sm.GetUserID(r) != 0
}

func (sm *SessionManager) LoginAt(r *http.Request) time.Time {
	t, _ := sm.Get(r.Context(), SessionKeyLoginAt).(time.Time)
	return t
}

// SetFlash stores a one-time message shown on the next page render.
func (sm *SessionManager) SetFlash(r *http.Request, message string) {
	sm.Put(r.Context(), SessionKeyFlash, message)
}

// PopFlash returns and clears the pending flash message.
func (sm *SessionManager) PopFlash(r *http.Request) string {
	return sm.PopString(r.Context(), SessionKeyFlash)
}
