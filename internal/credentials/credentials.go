// Package credentials assembles session credentials for the CLI from flags,
// environment variables and the OS keyring, in that order.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/systmms/vaultsess/internal/config"
	"github.com/systmms/vaultsess/pkg/session"
)

// KeyringService is the service name entries are stored under.
const KeyringService = "vaultsess"

// Field describes one credential field of a backend.
type Field struct {
	Name   string // flag and keyring name, e.g. "secret-id"
	Env    string // environment variable
	Secret bool
}

// Fields lists the credential fields of each backend.
var Fields = map[session.Backend][]Field{
	session.BackendAppRole: {
		{Name: "role-id", Env: "VAULT_ROLE_ID"},
		{Name: "secret-id", Env: "VAULT_SECRET_ID", Secret: true},
	},
	session.BackendAppID: {
		{Name: "app-id", Env: "VAULT_APP_ID"},
		{Name: "user-id", Env: "VAULT_USER_ID"},
	},
	session.BackendUserPass: {
		{Name: "username", Env: "VAULT_USERNAME"},
		{Name: "password", Env: "VAULT_PASSWORD", Secret: true},
	},
	session.BackendGitHub: {
		{Name: "github-token", Env: "VAULT_GITHUB_TOKEN", Secret: true},
	},
	session.BackendToken: {
		{Name: "token", Env: "VAULT_TOKEN", Secret: true},
	},
}

// Keyring is the subset of go-keyring used here.
type Keyring interface {
	Get(service, user string) (string, error)
	Set(service, user, password string) error
	Delete(service, user string) error
}

// OSKeyring delegates to the platform keyring.
type OSKeyring struct{}

func (OSKeyring) Get(service, user string) (string, error) { return keyring.Get(service, user) }
func (OSKeyring) Set(service, user, pw string) error       { return keyring.Set(service, user, pw) }
func (OSKeyring) Delete(service, user string) error        { return keyring.Delete(service, user) }

// Source is where field values are looked up.
type Source int

const (
	SourceNone Source = iota
	SourceFlag
	SourceEnv
	SourceConfig
	SourceKeyring
)

func (s Source) String() string {
	switch s {
	case SourceFlag:
		return "flag"
	case SourceEnv:
		return "environment"
	case SourceConfig:
		return "config file"
	case SourceKeyring:
		return "keyring"
	default:
		return "missing"
	}
}

// Resolver looks up credential fields.
type Resolver struct {
	Flags    map[string]string // values given on the command line
	Settings config.CredentialSettings
	Env      func(string) string
	Keyring  Keyring
}

// KeyringAccount is the keyring user name for a backend field.
func KeyringAccount(b session.Backend, field string) string {
	return string(b) + "/" + field
}

// Lookup finds a field value and reports where it came from.
func (r *Resolver) Lookup(b session.Backend, f Field) (string, Source, error) {
	if v := r.Flags[f.Name]; v != "" {
		return v, SourceFlag, nil
	}
	env := r.Env
	if env == nil {
		env = os.Getenv
	}
	if v := env(f.Env); v != "" {
		return v, SourceEnv, nil
	}
	if !f.Secret {
		if v := r.fromSettings(f.Name); v != "" {
			return v, SourceConfig, nil
		}
	}
	if r.Keyring != nil {
		v, err := r.Keyring.Get(KeyringService, KeyringAccount(b, f.Name))
		switch {
		case err == nil && v != "":
			return v, SourceKeyring, nil
		case err != nil && !errors.Is(err, keyring.ErrNotFound):
			return "", SourceNone, fmt.Errorf("failed to read %s from keyring: %w", f.Name, err)
		}
	}
	return "", SourceNone, nil
}

func (r *Resolver) fromSettings(name string) string {
	switch name {
	case "role-id":
		return r.Settings.RoleID
	case "app-id":
		return r.Settings.AppID
	case "user-id":
		return r.Settings.UserID
	case "username":
		return r.Settings.Username
	}
	return ""
}

// Credential builds the credential for b. Missing fields are reported
// together so the user can fix them in one go.
func (r *Resolver) Credential(b session.Backend) (session.Credential, error) {
	fields, ok := Fields[b]
	if !ok {
		return nil, &session.ContractError{Backend: b, Reason: "unknown authentication backend"}
	}

	values := map[string]string{}
	var missing []string
	for _, f := range fields {
		v, _, err := r.Lookup(b, f)
		if err != nil {
			return nil, err
		}
		if v == "" {
			missing = append(missing, fmt.Sprintf("--%s / %s", f.Name, f.Env))
			continue
		}
		values[f.Name] = v
	}
	if len(missing) > 0 {
		return nil, &MissingError{Backend: b, Fields: missing}
	}

	switch b {
	case session.BackendAppRole:
		return session.AppRole{RoleID: values["role-id"], SecretID: values["secret-id"]}, nil
	case session.BackendAppID:
		return session.AppID{AppID: values["app-id"], UserID: values["user-id"]}, nil
	case session.BackendUserPass:
		return session.UserPass{Username: values["username"], Password: values["password"]}, nil
	case session.BackendGitHub:
		return session.GitHub{Token: values["github-token"]}, nil
	default:
		return session.Token{Token: values["token"]}, nil
	}
}

// MissingError lists credential fields that could not be found anywhere.
type MissingError struct {
	Backend session.Backend
	Fields  []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing %s credentials: %s", e.Backend, strings.Join(e.Fields, ", "))
}

// FindField returns the field definition of b named name.
func FindField(b session.Backend, name string) (Field, bool) {
	for _, f := range Fields[b] {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
