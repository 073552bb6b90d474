package session

import "fmt"

// Credential is the backend specific input exchanged for a token.
// Values are supplied per call and never retained by a Session.
type Credential interface {
	// Backend reports which backend this credential shape belongs to.
	Backend() Backend
	validate() error
}

// AppRole is the credential for the approle backend.
type AppRole struct {
	RoleID   string
	SecretID string
}

// AppID is the credential for the legacy app_id backend.
type AppID struct {
	AppID  string
	UserID string
}

// UserPass is the credential for the userpass backend.
type UserPass struct {
	Username string
	Password string
}

// GitHub is the credential for the github backend: a personal access token.
type GitHub struct {
	Token string
}

// Token is the credential for the token backend. The value is trusted as is.
type Token struct {
	Token string
}

func (AppRole) Backend() Backend  { return BackendAppRole }
func (AppID) Backend() Backend    { return BackendAppID }
func (UserPass) Backend() Backend { return BackendUserPass }
func (GitHub) Backend() Backend   { return BackendGitHub }
func (Token) Backend() Backend    { return BackendToken }

func (c AppRole) validate() error {
	return requireFields(BackendAppRole, "role_id", c.RoleID, "secret_id", c.SecretID)
}

func (c AppID) validate() error {
	return requireFields(BackendAppID, "app_id", c.AppID, "user_id", c.UserID)
}

func (c UserPass) validate() error {
	return requireFields(BackendUserPass, "username", c.Username, "password", c.Password)
}

func (c GitHub) validate() error {
	return requireFields(BackendGitHub, "token", c.Token)
}

func (c Token) validate() error {
	return requireFields(BackendToken, "token", c.Token)
}

// requireFields takes name/value pairs and reports the first empty one.
func requireFields(b Backend, pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return &ContractError{Backend: b, Reason: fmt.Sprintf("credential field %q is empty", pairs[i])}
		}
	}
	return nil
}

// String methods keep secrets out of %v and %+v formatting.

func (c AppRole) String() string  { return fmt.Sprintf("approle(role_id=%s)", c.RoleID) }
func (c AppID) String() string    { return fmt.Sprintf("app_id(app_id=%s)", c.AppID) }
func (c UserPass) String() string { return fmt.Sprintf("userpass(username=%s)", c.Username) }
func (GitHub) String() string     { return "github([REDACTED])" }
func (Token) String() string      { return "token([REDACTED])" }

func (c AppRole) GoString() string  { return c.String() }
func (c AppID) GoString() string    { return c.String() }
func (c UserPass) GoString() string { return c.String() }
func (c GitHub) GoString() string   { return c.String() }
func (c Token) GoString() string    { return c.String() }
