package session

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotAuthenticated is returned when no token has been obtained yet.
var ErrNotAuthenticated = errors.New("not authenticated")

// AuthError reports a rejected or malformed login exchange.
// Messages is the store's own error list, unmodified.
type AuthError struct {
	Backend  Backend
	Messages []string
}

func (e *AuthError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("%s authentication failed", e.Backend)
	}
	return fmt.Sprintf("%s authentication failed: %s", e.Backend, strings.Join(e.Messages, "; "))
}

// OpKind classifies a failed secret operation.
type OpKind int

const (
	// OpOther is any failure that re-authenticating cannot fix.
	OpOther OpKind = iota
	// OpAuthFailure means the token was missing or rejected by the store.
	OpAuthFailure
)

func (k OpKind) String() string {
	switch k {
	case OpAuthFailure:
		return "auth_failure"
	default:
		return "other"
	}
}

// OpError is a failed read or write.
type OpError struct {
	Op       string // "read" or "write"
	Path     string
	Kind     OpKind
	Status   int // HTTP status, 0 if no response was received
	Messages []string
	Err      error
}

func (e *OpError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Op, e.Path)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	switch {
	case len(e.Messages) > 0:
		b.WriteString(": " + strings.Join(e.Messages, "; "))
	case e.Err != nil:
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// ContractError is a caller mistake detected before any network call:
// an unknown backend or a credential that does not fit the backend.
type ContractError struct {
	Backend Backend
	Reason  string
}

func (e *ContractError) Error() string {
	if e.Backend == "" {
		return "invalid session call: " + e.Reason
	}
	return fmt.Sprintf("invalid session call for backend %q: %s", e.Backend, e.Reason)
}

// IsAuthFailure reports whether err is an operation failure that a fresh login may fix.
func IsAuthFailure(err error) bool {
	var opErr *OpError
	return errors.As(err, &opErr) && opErr.Kind == OpAuthFailure
}

// Messages extracts the store's error list from a session error, if any.
func Messages(err error) []string {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Messages
	}
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Messages
	}
	return nil
}
