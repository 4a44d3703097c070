package shared

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "sucursales:session:"

// SessionOptions configures the session cookie.
type SessionOptions struct {
	CookieName string
	Secret     string
	TTL        time.Duration
	Secure     bool
}

// SessionManager keeps form sessions in Redis behind a signed cookie.
type SessionManager struct {
	client *redis.Client
	opts   SessionOptions
}

// Session holds per-request session data.
type Session struct {
	ID     string
	values map[string]string
	dirty  bool
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, opts SessionOptions) *SessionManager {
	if opts.CookieName == "" {
		opts.CookieName = "sucursales_session"
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	return &SessionManager{client: client, opts: opts}
}

// Load returns the session referenced by the request cookie. A missing, forged
// or expired cookie starts a new session.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.opts.CookieName)
	if errors.Is(err, http.ErrNoCookie) {
		return sm.newSession(), nil
	}
	if err != nil {
		return nil, err
	}
	id, ok := sm.verify(cookie.Value)
	if !ok {
		return sm.newSession(), nil
	}

	payload, err := sm.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return sm.newSession(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("shared: load session: %w", err)
	}
	values := map[string]string{}
	if err := json.Unmarshal(payload, &values); err != nil {
		return nil, fmt.Errorf("shared: decode session: %w", err)
	}
	return &Session{ID: id, values: values}, nil
}

// Commit persists a modified session and refreshes the cookie.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}
	if sess.dirty {
		data, err := json.Marshal(sess.values)
		if err != nil {
			return err
		}
		if err := sm.client.Set(ctx, sessionKeyPrefix+sess.ID, data, sm.opts.TTL).Err(); err != nil {
			return fmt.Errorf("shared: store session: %w", err)
		}
		sess.dirty = false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sm.opts.CookieName,
		Value:    sm.sign(sess.ID),
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.opts.Secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sm.opts.TTL),
	})
	return nil
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.opts.CookieName
}

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	if s.values[key] == value {
		return
	}
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	return s.values[key]
}

func (sm *SessionManager) newSession() *Session {
	return &Session{ID: uuid.NewString(), values: map[string]string{}, dirty: true}
}

// sign renders the cookie value as "<id>.<mac>".
func (sm *SessionManager) sign(id string) string {
	return id + "." + sm.mac(id)
}

func (sm *SessionManager) verify(value string) (string, bool) {
	id, sig, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(sm.mac(id))) {
		return "", false
	}
	return id, true
}

func (sm *SessionManager) mac(id string) string {
	h := hmac.New(sha256.New, []byte(sm.opts.Secret))
	_, _ = h.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
