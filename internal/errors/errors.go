package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/systmms/vaultsess/pkg/session"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// SessionError turns a session failure into a UserError. The store's message
// list is kept verbatim in Details.
func SessionError(operation string, err error) error {
	if err == nil {
		return nil
	}

	var (
		authErr     *session.AuthError
		opErr       *session.OpError
		contractErr *session.ContractError
	)
	switch {
	case errors.As(err, &contractErr):
		return UserError{
			Message:    fmt.Sprintf("Invalid %s request", operation),
			Details:    contractErr.Reason,
			Suggestion: "Check --backend and that every credential field for it is set. Run 'vaultsess doctor' to see what was found",
			Err:        err,
		}
	case errors.As(err, &authErr):
		return UserError{
			Message:    fmt.Sprintf("Vault rejected the %s login", authErr.Backend),
			Details:    strings.Join(authErr.Messages, "; "),
			Suggestion: authSuggestion(authErr.Backend),
			Err:        err,
		}
	case errors.As(err, &opErr):
		return UserError{
			Message:    fmt.Sprintf("Failed to %s %s", opErr.Op, opErr.Path),
			Details:    opDetails(opErr),
			Suggestion: opSuggestion(opErr),
			Err:        err,
		}
	case errors.Is(err, session.ErrNotAuthenticated):
		return UserError{
			Message:    "Not authenticated",
			Suggestion: "Run 'vaultsess login' or pass credentials for the configured backend",
			Err:        err,
		}
	}
	return err
}

func opDetails(e *session.OpError) string {
	if len(e.Messages) > 0 {
		return strings.Join(e.Messages, "; ")
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("status %d", e.Status)
	}
	return ""
}

func authSuggestion(b session.Backend) string {
	switch b {
	case session.BackendAppRole:
		return "Check the role ID and that the secret ID has not expired or been used up"
	case session.BackendAppID:
		return "Check the app ID and user ID mapping"
	case session.BackendUserPass:
		return "Check the username and password"
	case session.BackendGitHub:
		return "Check the GitHub token and that its organization is configured in Vault"
	default:
		return "Check your credentials and auth method configuration"
	}
}

func opSuggestion(e *session.OpError) string {
	switch {
	case e.Kind == session.OpAuthFailure:
		return "The token was rejected even after logging in again. Check the policies attached to your login"
	case e.Status == 404:
		return "Check the secret path. KV v2 mounts need 'data/' in the path, e.g. secret/data/myapp"
	case IsConnectionError(e.Err):
		return "Check that Vault is running and reachable. Run 'vaultsess doctor' to see the resolved address"
	default:
		return ""
	}
}

// IsConnectionError reports whether err looks like a failure to reach the server.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{"connection refused", "no such host", "timeout", "tls", "connection reset"} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
