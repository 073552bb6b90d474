package session

import (
	"maps"
	"sync"

	"github.com/systmms/vaultsess/internal/secure"
)

// Store holds the single live token of a session plus opaque metadata.
// The token is kept encrypted in memory between uses.
type Store struct {
	mu       sync.RWMutex
	token    *secure.SecureBuffer
	metadata map[string]string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current token, or false if there is none.
func (s *Store) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == nil {
		return "", false
	}
	token, err := s.token.Reveal()
	if err != nil || token == "" {
		return "", false
	}
	return token, true
}

// Set replaces any previous token. An empty token clears the store.
func (s *Store) Set(token string, metadata map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != nil {
		s.token.Destroy()
		s.token = nil
	}
	s.metadata = nil
	if token == "" {
		return
	}
	s.token = secure.NewSecureString(token)
	s.metadata = maps.Clone(metadata)
}

// Clear drops the token and metadata.
func (s *Store) Clear() {
	s.Set("", nil)
}

// Metadata returns a copy of the metadata recorded with the current token.
func (s *Store) Metadata() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.metadata)
}
