package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// SessionCookie is the name of the session cookie.
const SessionCookie = "bilancio_session"

type session struct {
	userID    int64
	expiresAt time.Time
}

// Sessions is the in-memory session table. Expired entries are swept by a
// janitor goroutine until Close is called.
type Sessions struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]session
	done     chan struct{}
	closed   sync.Once
}

func NewSessions(ttl time.Duration) *Sessions {
	s := &Sessions{
		ttl:      ttl,
		sessions: make(map[string]session),
		done:     make(chan struct{}),
	}
	go s.sweep()
	return s
}

// Start issues a fresh token for the user.
func (s *Sessions) Start(userID int64) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(raw)

	s.mu.Lock()
	s.sessions[token] = session{userID: userID, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	return token, nil
}

// Lookup resolves a token to its user id. Expired tokens are dropped on
// access.
func (s *Sessions) Lookup(token string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return 0, false
	}
	if time.Now().After(sess.expiresAt) {
		delete(s.sessions, token)
		return 0, false
	}
	return sess.userID, true
}

// Destroy forgets the token.
func (s *Sessions) Destroy(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

func (s *Sessions) Close() {
	s.closed.Do(func() { close(s.done) })
}

func (s *Sessions) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for token, sess := range s.sessions {
				if now.After(sess.expiresAt) {
					delete(s.sessions, token)
				}
			}
			s.mu.Unlock()
		}
	}
}
