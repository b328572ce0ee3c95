// Package auth gates admin operations behind an email/password login and
// short-lived bearer sessions.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// CookieName carries the session token for browser clients
const CookieName = "comparador_session"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLoginDisabled      = errors.New("admin login is not configured")
)

// Session is an active admin login
type Session struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Sessions checks admin credentials and tracks issued tokens in memory
type Sessions struct {
	email  string
	hash   []byte
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]Session

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewSessions starts a session tracker for one admin identity. An empty
// email or hash disables login. Call Close to stop the expiry janitor.
func NewSessions(email, passwordHash string, ttl time.Duration, logger *zap.Logger) *Sessions {
	return newSessions(email, passwordHash, ttl, logger, time.Now)
}

func newSessions(email, passwordHash string, ttl time.Duration, logger *zap.Logger, now func() time.Time) *Sessions {
	s := &Sessions{
		email:    strings.ToLower(strings.TrimSpace(email)),
		hash:     []byte(passwordHash),
		ttl:      ttl,
		now:      now,
		logger:   logger,
		sessions: make(map[string]Session),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.janitor(sweepInterval(ttl))
	return s
}

func sweepInterval(ttl time.Duration) time.Duration {
	d := ttl / 2
	if d < time.Second {
		d = time.Second
	}
	if d > 5*time.Minute {
		d = 5 * time.Minute
	}
	return d
}

// HashPassword returns a bcrypt hash suitable for the admin config
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Enabled reports whether an admin identity is configured
func (s *Sessions) Enabled() bool {
	return s.email != "" && len(s.hash) > 0
}

// Login checks credentials and issues a new session
func (s *Sessions) Login(email, password string) (Session, error) {
	if !s.Enabled() {
		return Session{}, ErrLoginDisabled
	}

	emailOK := strings.ToLower(strings.TrimSpace(email)) == s.email
	passOK := bcrypt.CompareHashAndPassword(s.hash, []byte(password)) == nil
	if !emailOK || !passOK {
		s.logger.Warn("Admin login rejected", zap.String("email", email))
		return Session{}, ErrInvalidCredentials
	}

	sess := Session{
		Token:     uuid.New().String(),
		Email:     s.email,
		ExpiresAt: s.now().Add(s.ttl),
	}
	s.mu.Lock()
	s.sessions[sess.Token] = sess
	s.mu.Unlock()

	s.logger.Info("Admin logged in", zap.String("email", s.email))
	return sess, nil
}

// Logout forgets a token. Unknown tokens are ignored.
func (s *Sessions) Logout(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// Active reports whether token names an unexpired session
func (s *Sessions) Active(token string) bool {
	if token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return false
	}
	if !s.now().Before(sess.ExpiresAt) {
		delete(s.sessions, token)
		return false
	}
	return true
}

// Len returns the number of tracked sessions, expired or not
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close stops the janitor. It is safe to call more than once.
func (s *Sessions) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done
	})
}

func (s *Sessions) janitor(every time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sessions) sweep() {
	now := s.now()
	s.mu.Lock()
	removed := 0
	for token, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		s.logger.Debug("Expired admin sessions removed", zap.Int("count", removed))
	}
}

// TokenFromRequest reads a bearer token or the session cookie
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// RequireAdmin rejects requests without an active admin session
func (s *Sessions) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.Active(TokenFromRequest(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Se requiere una sesión de administrador"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
