package session

import "strings"

// Backend identifies an authentication method of the remote store.
type Backend string

const (
	BackendAppRole  Backend = "approle"
	BackendAppID    Backend = "app_id"
	BackendUserPass Backend = "userpass"
	BackendGitHub   Backend = "github"
	BackendToken    Backend = "token"
)

// Backends returns every supported backend in a stable order.
func Backends() []Backend {
	return []Backend{BackendAppRole, BackendAppID, BackendUserPass, BackendGitHub, BackendToken}
}

// ParseBackend converts a user supplied name into a Backend.
// The dashed form "app-id" used by the store's mount path is accepted as well.
func ParseBackend(name string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(name))); b {
	case BackendAppRole, BackendAppID, BackendUserPass, BackendGitHub, BackendToken:
		return b, nil
	case "app-id":
		return BackendAppID, nil
	default:
		return "", &ContractError{Backend: b, Reason: "unknown authentication backend"}
	}
}

func (b Backend) String() string {
	return string(b)
}
