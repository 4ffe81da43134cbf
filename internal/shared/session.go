package shared

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "slooze:session:"

// Flash kinds understood by the layout.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// FlashMessage is a one-time notification shown on the next rendered page.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SessionManager issues browser session cookies and keeps their data in Redis.
// The browser session only carries the CSRF token and pending flashes; the
// API token lives in the session client keyed by the browser session ID.
// Cookies carry the ID plus an HMAC of it, so only IDs issued here are accepted.
type SessionManager struct {
	client     *redis.Client
	secret     []byte
	cookieName string
	ttl        time.Duration
	secure     bool
}

// Session holds the per-request view of a browser session.
type Session struct {
	ID         string
	previousID string
	values     map[string]string
	flashes   []FlashMessage
	isNew     bool
	dirty     bool
	destroyed bool
}

type sessionPayload struct {
	Values  map[string]string `json:"values"`
	Flashes []FlashMessage    `json:"flashes"`
}

// NewSessionManager constructs a SessionManager signing cookies with secret.
func NewSessionManager(client *redis.Client, secret, cookieName string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		secret:     []byte(secret),
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
	}
}

// Load returns the session referenced by the request cookie, or a fresh one.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return newSession(NewSessionID()), nil
		}
		return nil, err
	}
	id, ok := sm.verify(cookie.Value)
	if !ok {
		return newSession(NewSessionID()), nil
	}

	payload, err := sm.client.Get(ctx, sm.redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired server side; the ID was issued here, keep it so the browser's client survives.
			return newSession(id), nil
		}
		return nil, err
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}
	sess := newSession(id)
	if stored.Values != nil {
		sess.values = stored.Values
	}
	sess.flashes = stored.Flashes
	sess.isNew = false
	sess.dirty = false
	return sess, nil
}

// Commit persists the session and refreshes the cookie.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.destroyed {
		if err := sm.client.Del(ctx, sm.redisKey(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sm.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   sm.secure,
			SameSite: http.SameSiteLaxMode,
		})
		return nil
	}

	if sess.previousID != "" {
		if err := sm.client.Del(ctx, sm.redisKey(sess.previousID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		sess.previousID = ""
	}

	if sess.dirty || sess.isNew {
		data, err := json.Marshal(sessionPayload{Values: sess.values, Flashes: sess.flashes})
		if err != nil {
			return err
		}
		if err := sm.client.Set(ctx, sm.redisKey(sess.ID), data, sm.ttl).Err(); err != nil {
			return err
		}
		sess.dirty = false
		sess.isNew = false
	} else if err := sm.client.Expire(ctx, sm.redisKey(sess.ID), sm.ttl).Err(); err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    sm.sign(sess.ID),
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sm.ttl),
	})
	return nil
}

// Destroy marks the session for deletion on commit.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess == nil {
		return
	}
	sess.destroyed = true
}

// Renew moves sess to id, a fresh value from NewSessionID. The old ID is
// dropped from Redis on commit and the CSRF token is reissued; pending
// flashes carry over.
func (sm *SessionManager) Renew(sess *Session, id string) {
	if sess == nil || id == "" || id == sess.ID {
		return
	}
	if sess.previousID == "" {
		sess.previousID = sess.ID
	}
	sess.ID = id
	sess.values = make(map[string]string)
	sess.isNew = true
	sess.dirty = true
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	if s.values == nil {
		return ""
	}
	return s.values[key]
}

// AddFlash queues a flash message.
func (s *Session) AddFlash(msg FlashMessage) {
	s.flashes = append(s.flashes, msg)
	s.dirty = true
}

// PopFlash retrieves and clears the oldest flash message.
func (s *Session) PopFlash() *FlashMessage {
	if len(s.flashes) == 0 {
		return nil
	}
	msg := s.flashes[0]
	s.flashes = s.flashes[1:]
	s.dirty = true
	return &msg
}

// NewSessionID returns a random browser session ID.
func NewSessionID() string {
	return uuid.NewString()
}

func newSession(id string) *Session {
	return &Session{
		ID:     id,
		values: make(map[string]string),
		isNew:  true,
		dirty:  true,
	}
}

func (sm *SessionManager) sign(id string) string {
	mac := hmac.New(sha256.New, sm.secret)
	_, _ = mac.Write([]byte(id))
	return id + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (sm *SessionManager) verify(value string) (string, bool) {
	id, _, found := strings.Cut(value, ".")
	if !found {
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	if !hmac.Equal([]byte(value), []byte(sm.sign(id))) {
		return "", false
	}
	return id, true
}

func (sm *SessionManager) redisKey(id string) string {
	return sessionKeyPrefix + id
}
