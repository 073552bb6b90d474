package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	dserrors "github.com/systmms/vaultsess/internal/errors"
	"github.com/systmms/vaultsess/internal/logging"
)

const (
	DefaultPath    = "vaultsess.yaml"
	DefaultScheme  = "http"
	DefaultHost    = "localhost"
	DefaultPort    = 8200
	DefaultTimeout = 30 * time.Second
	DefaultBackend = "token"
)

//go:embed schema.json
var schemaJSON string

// Config holds the runtime configuration
type Config struct {
	Path string
	// PathExplicit is set when the user chose the config file; a missing
	// file is then an error instead of an empty configuration.
	PathExplicit bool
	Logger       *logging.Logger
	Backend      string // --backend override
	MetricsFile  string // --metrics-file override
	Definition   *Definition

	// Env looks up environment variables. Defaults to os.Getenv.
	Env func(string) string
}

// Definition is the vaultsess.yaml structure.
type Definition struct {
	Version     int                `yaml:"version"`
	Address     string             `yaml:"address,omitempty"`
	Scheme      string             `yaml:"scheme,omitempty"`
	Host        string             `yaml:"host,omitempty"`
	Port        int                `yaml:"port,omitempty"`
	Namespace   string             `yaml:"namespace,omitempty"`
	Backend     string             `yaml:"backend,omitempty"`
	TimeoutMs   int                `yaml:"timeout_ms,omitempty"`
	CACert      string             `yaml:"ca_cert,omitempty"`
	TLSSkip     bool               `yaml:"tls_skip,omitempty"`
	Credentials CredentialSettings `yaml:"credentials,omitempty"`
	Metrics     MetricsSettings    `yaml:"metrics,omitempty"`
}

// CredentialSettings holds non-secret login identifiers. Secrets come from
// flags, the environment or the OS keyring, never from this file.
type CredentialSettings struct {
	RoleID   string `yaml:"role_id,omitempty"`
	AppID    string `yaml:"app_id,omitempty"`
	UserID   string `yaml:"user_id,omitempty"`
	Username string `yaml:"username,omitempty"`
}

// MetricsSettings configures the Prometheus textfile export.
type MetricsSettings struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// Settings is the effective configuration after applying the file,
// environment variables and defaults.
type Settings struct {
	Prefix          string
	Namespace       string
	Backend         string
	Timeout         time.Duration
	CACert          string
	TLSSkip         bool
	Credentials     CredentialSettings
	MetricsTextfile string
}

// Load reads and validates the configuration file.
func (c *Config) Load() error {
	if c.Path == "" {
		c.Path = DefaultPath
	}

	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) && !c.PathExplicit {
			c.Definition = &Definition{}
			return nil
		}
		if os.IsNotExist(err) {
			return dserrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Check the --config path or omit it to use environment variables only",
			}
		}
		return dserrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	def, err := Parse(data)
	if err != nil {
		return err
	}
	c.Definition = def
	return nil
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Definition, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, dserrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters",
		}
	}
	if raw == nil {
		return &Definition{}, nil
	}
	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, dserrors.ConfigError{
			Message:    "configuration does not match the expected structure",
			Suggestion: err.Error(),
		}
	}
	return &def, nil
}

func validateSchema(raw map[string]interface{}) error {
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration for validation: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaJSON),
		gojsonschema.NewBytesLoader(jsonData),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	first := result.Errors()[0]
	var messages []string
	for _, desc := range result.Errors() {
		messages = append(messages, desc.String())
	}
	return dserrors.ConfigError{
		Field:      first.Field(),
		Value:      first.Value(),
		Message:    first.Description(),
		Suggestion: "Fix the following:\n  - " + strings.Join(messages, "\n  - "),
	}
}

// Resolve computes the effective settings. Environment variables override the
// file; flags override both.
func (c *Config) Resolve() (*Settings, error) {
	def := c.Definition
	if def == nil {
		def = &Definition{}
	}
	env := c.Env
	if env == nil {
		env = os.Getenv
	}

	prefix, err := ResolvePrefix(def, env)
	if err != nil {
		return nil, err
	}

	s := &Settings{
		Prefix:          prefix,
		Namespace:       firstNonEmpty(env("VAULT_NAMESPACE"), def.Namespace),
		Backend:         firstNonEmpty(c.Backend, env("VAULT_AUTH_BACKEND"), def.Backend, DefaultBackend),
		Timeout:         DefaultTimeout,
		CACert:          firstNonEmpty(env("VAULT_CACERT"), def.CACert),
		TLSSkip:         def.TLSSkip,
		Credentials:     def.Credentials,
		MetricsTextfile: firstNonEmpty(c.MetricsFile, def.Metrics.Textfile),
	}
	if def.TimeoutMs > 0 {
		s.Timeout = time.Duration(def.TimeoutMs) * time.Millisecond
	}
	if v := strings.ToLower(env("VAULT_SKIP_VERIFY")); v == "1" || v == "true" {
		s.TLSSkip = true
	}
	return s, nil
}

// ResolvePrefix builds the API prefix "scheme://host:port/v1/". A full
// address (VAULT_ADDR, then the file's address) wins over the individual
// scheme/host/port settings, which win over the defaults.
func ResolvePrefix(def *Definition, env func(string) string) (string, error) {
	if addr := firstNonEmpty(env("VAULT_ADDR"), def.Address); addr != "" {
		u, err := url.Parse(addr)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return "", dserrors.ConfigError{
				Field:      "address",
				Value:      addr,
				Message:    "address must be a full URL",
				Suggestion: "Use the form https://vault.example.com:8200",
			}
		}
		base := strings.TrimSuffix(strings.TrimRight(addr, "/"), "/v1")
		return base + "/v1/", nil
	}

	scheme := firstNonEmpty(env("VAULT_SCHEME"), def.Scheme, DefaultScheme)
	host := firstNonEmpty(env("VAULT_HOST"), def.Host, DefaultHost)

	port := DefaultPort
	if def.Port != 0 {
		port = def.Port
	}
	if p := env("VAULT_PORT"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return "", dserrors.ConfigError{
				Field:      "VAULT_PORT",
				Value:      p,
				Message:    "port must be a number between 1 and 65535",
				Suggestion: "Unset VAULT_PORT or set it to e.g. 8200",
			}
		}
		port = n
	}

	return fmt.Sprintf("%s://%s:%d/v1/", scheme, host, port), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
