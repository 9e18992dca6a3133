package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/docfill/internal/placeholder"
	"github.com/google/uuid"
)

// Session holds one uploaded template: its canonical bytes and the
// placeholders found in it. The bytes are never modified after upload.
type Session struct {
	mu sync.Mutex

	ID       string
	Filename string

	ContentHash string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Internal: not serialized.
	raw          []byte
	placeholders []placeholder.Placeholder
}

func newSession(filename string, raw []byte, placeholders []placeholder.Placeholder) *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.NewString(),
		Filename:     filename,
		ContentHash:  ContentHashHex(raw),
		CreatedAt:    now,
		UpdatedAt:    now,
		raw:          raw,
		placeholders: placeholders,
	}
}

// state returns the canonical bytes and a copy of the placeholder list,
// and marks the session as used.
func (s *Session) state() ([]byte, []placeholder.Placeholder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpdatedAt = time.Now()
	ps := make([]placeholder.Placeholder, len(s.placeholders))
	copy(ps, s.placeholders)
	return s.raw, ps
}

func (s *Session) lastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.UpdatedAt
}

// SessionSnapshot is a read-only, JSON-safe copy of session state.
type SessionSnapshot struct {
	ID           string                    `json:"session_id"`
	Filename     string                    `json:"filename"`
	Placeholders []placeholder.Placeholder `json:"placeholders"`
	Count        int                       `json:"count"`
	ContentHash  string                    `json:"content_hash"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the session state.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps := make([]placeholder.Placeholder, len(s.placeholders))
	copy(ps, s.placeholders)
	return SessionSnapshot{
		ID:           s.ID,
		Filename:     s.Filename,
		Placeholders: ps,
		Count:        len(ps),
		ContentHash:  s.ContentHash,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

// SessionStore is a thread-safe in-memory session registry with TTL eviction.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

func (s *SessionStore) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

func (s *SessionStore) Get(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// Delete removes a session and reports whether it existed.
func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Cleanup removes sessions idle for longer than the TTL and returns how
// many were removed.
func (s *SessionStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	n := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastUsed()) > s.ttl {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
