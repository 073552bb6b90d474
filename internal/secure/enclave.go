package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// ErrDestroyed is returned when a destroyed buffer is opened.
var ErrDestroyed = errors.New("secure buffer destroyed")

// SecureBuffer keeps a secret encrypted in memory using a memguard.Enclave.
// The plaintext only exists inside a LockedBuffer while it is open.
//
// memguard.Enclave has no Destroy method; dropping the reference is enough
// since the enclave is encrypted at rest. memguard.Purge() at process exit
// wipes the session key.
type SecureBuffer struct {
	mu        sync.RWMutex
	enclave   *memguard.Enclave
	empty     bool
	destroyed bool
}

// NewSecureBuffer seals a copy of data. memguard wipes the buffer it is given,
// so the caller's slice is left untouched.
func NewSecureBuffer(data []byte) *SecureBuffer {
	if len(data) == 0 {
		// memguard refuses empty enclaves.
		return &SecureBuffer{empty: true}
	}
	sealed := make([]byte, len(data))
	copy(sealed, data)
	return &SecureBuffer{enclave: memguard.NewEnclave(sealed)}
}

// NewSecureString seals a string value.
func NewSecureString(s string) *SecureBuffer {
	return NewSecureBuffer([]byte(s))
}

// Open decrypts the secret into a locked buffer. The caller must Destroy it.
//
//	locked, err := buf.Open()
//	if err != nil {
//	    return err
//	}
//	defer locked.Destroy()
func (s *SecureBuffer) Open() (*memguard.LockedBuffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed {
		return nil, ErrDestroyed
	}
	if s.empty {
		return memguard.NewBuffer(0), nil
	}
	return s.enclave.Open()
}

// Reveal returns a plaintext copy of the secret. The copy lives in ordinary
// Go memory, so keep its lifetime short.
func (s *SecureBuffer) Reveal() (string, error) {
	locked, err := s.Open()
	if err != nil {
		return "", err
	}
	defer locked.Destroy()
	return string(locked.Bytes()), nil
}

// Destroy drops the enclave. It is idempotent; Open fails afterwards.
func (s *SecureBuffer) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enclave = nil
	s.destroyed = true
}

// Destroyed reports whether Destroy has been called.
func (s *SecureBuffer) Destroyed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.destroyed
}
