package session

import (
	"net/http"
	"sync"
	"time"

	"github.com/captive-portal/voucher-server/pkg/crypto"
)

// Browser session keys used by the portal flow.
const (
	KeyNextURL      = "next_url"
	KeyVoucherToken = "voucher_token"
)

const cookieName = "portal_session"

// BrowserStore keeps per-browser session state (the post-login
// destination and the active voucher token) keyed by an opaque cookie.
// State is per-device, not per-voucher: two devices redeeming on the
// same gateway must not share a next-url.
type BrowserStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*browserSession
}

type browserSession struct {
	values   map[string]string
	expireAt time.Time
}

// NewBrowserStore creates a browser session store with the given TTL
func NewBrowserStore(ttl time.Duration) *BrowserStore {
	return &BrowserStore{
		ttl:      ttl,
		sessions: make(map[string]*browserSession),
	}
}

// Load resolves the session for a request, creating one when the
// cookie is absent or stale, and sets the cookie on the response.
func (s *BrowserStore) Load(w http.ResponseWriter, r *http.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(time.Now())

	if cookie, err := r.Cookie(cookieName); err == nil {
		if _, ok := s.sessions[cookie.Value]; ok {
			return cookie.Value, nil
		}
	}

	id, err := crypto.GenerateRandomString(16)
	if err != nil {
		return "", err
	}

	s.sessions[id] = &browserSession{
		values:   make(map[string]string),
		expireAt: time.Now().Add(s.ttl),
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id, nil
}

// Set stores a value in a session
func (s *BrowserStore) Set(id, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return
	}

	sess.values[key] = value
	sess.expireAt = time.Now().Add(s.ttl)
}

// Get reads a value from a session
func (s *BrowserStore) Get(id, key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ""
	}

	return sess.values[key]
}

// Pop reads and clears a value, so a revisit does not see it again
func (s *BrowserStore) Pop(id, key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ""
	}

	value := sess.values[key]
	delete(sess.values, key)

	return value
}

// sweepLocked drops expired sessions. Caller holds the mutex.
func (s *BrowserStore) sweepLocked(now time.Time) {
	for id, sess := range s.sessions {
		if now.After(sess.expireAt) {
			delete(s.sessions, id)
		}
	}
}
