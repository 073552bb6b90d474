package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dserrors "github.com/systmms/vaultsess/internal/errors"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestResolvePrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		def  Definition
		env  map[string]string
		want string
	}{
		{
			name: "defaults",
			want: "http://localhost:8200/v1/",
		},
		{
			name: "full address from env wins over everything",
			def:  Definition{Address: "https://file.example.com:8200", Host: "ignored"},
			env:  map[string]string{"VAULT_ADDR": "https://vault.example.com:9200", "VAULT_HOST": "ignored"},
			want: "https://vault.example.com:9200/v1/",
		},
		{
			name: "full address from file",
			def:  Definition{Address: "https://file.example.com:8200/"},
			want: "https://file.example.com:8200/v1/",
		},
		{
			name: "address already carrying v1",
			def:  Definition{Address: "https://file.example.com/v1/"},
			want: "https://file.example.com/v1/",
		},
		{
			name: "individual overrides from file",
			def:  Definition{Scheme: "https", Host: "vault.internal", Port: 443},
			want: "https://vault.internal:443/v1/",
		},
		{
			name: "env overrides file per component",
			def:  Definition{Scheme: "https", Host: "vault.internal", Port: 443},
			env:  map[string]string{"VAULT_HOST": "vault.local", "VAULT_PORT": "8300"},
			want: "https://vault.local:8300/v1/",
		},
		{
			name: "partial override keeps defaults",
			env:  map[string]string{"VAULT_SCHEME": "https"},
			want: "https://localhost:8200/v1/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ResolvePrefix(&tt.def, envMap(tt.env))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolvePrefix_Invalid(t *testing.T) {
	t.Parallel()

	_, err := ResolvePrefix(&Definition{}, envMap(map[string]string{"VAULT_PORT": "eighty"}))
	var cfgErr dserrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "VAULT_PORT", cfgErr.Field)

	_, err = ResolvePrefix(&Definition{}, envMap(map[string]string{"VAULT_ADDR": "vault.example.com"}))
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "address", cfgErr.Field)
}

func TestParse(t *testing.T) {
	t.Parallel()

	def, err := Parse([]byte(`
version: 0
scheme: https
host: vault.internal
port: 8201
namespace: team-a
backend: approle
timeout_ms: 5000
credentials:
  role_id: my-role
metrics:
  textfile: /tmp/vaultsess.prom
`))
	require.NoError(t, err)

	assert.Equal(t, "https", def.Scheme)
	assert.Equal(t, "vault.internal", def.Host)
	assert.Equal(t, 8201, def.Port)
	assert.Equal(t, "team-a", def.Namespace)
	assert.Equal(t, "approle", def.Backend)
	assert.Equal(t, 5000, def.TimeoutMs)
	assert.Equal(t, "my-role", def.Credentials.RoleID)
	assert.Equal(t, "/tmp/vaultsess.prom", def.Metrics.Textfile)
}

func TestParse_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		field string
	}{
		{name: "unknown backend", input: "backend: ldap\n", field: "backend"},
		{name: "port out of range", input: "port: 70000\n", field: "port"},
		{name: "address without scheme", input: "address: vault.example.com\n", field: "address"},
		{name: "secret in credentials", input: "credentials:\n  password: hunter2\n", field: "credentials"},
		{name: "unknown top level key", input: "providers: {}\n", field: "(root)"},
		{name: "unsupported version", input: "version: 2\n", field: "version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(tt.input))
			var cfgErr dserrors.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("address: [unterminated\n"))
	var cfgErr dserrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, "invalid YAML")
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	t.Run("missing default file is fine", func(t *testing.T) {
		cfg := &Config{Path: filepath.Join(dir, "absent.yaml")}
		require.NoError(t, cfg.Load())
		assert.NotNil(t, cfg.Definition)
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		cfg := &Config{Path: filepath.Join(dir, "absent.yaml"), PathExplicit: true}
		var cfgErr dserrors.ConfigError
		require.ErrorAs(t, cfg.Load(), &cfgErr)
		assert.Equal(t, "path", cfgErr.Field)
	})

	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(dir, "vaultsess.yaml")
		require.NoError(t, os.WriteFile(path, []byte("host: vault.file\n"), 0o600))

		cfg := &Config{Path: path, PathExplicit: true}
		require.NoError(t, cfg.Load())
		assert.Equal(t, "vault.file", cfg.Definition.Host)
	})
}

func TestResolve(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Definition: &Definition{
			Namespace:   "file-ns",
			Backend:     "userpass",
			TimeoutMs:   2500,
			Credentials: CredentialSettings{Username: "bob"},
			Metrics:     MetricsSettings{Textfile: "/file.prom"},
		},
		Env: envMap(map[string]string{
			"VAULT_NAMESPACE":   "env-ns",
			"VAULT_SKIP_VERIFY": "true",
		}),
	}

	s, err := cfg.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8200/v1/", s.Prefix)
	assert.Equal(t, "env-ns", s.Namespace)
	assert.Equal(t, "userpass", s.Backend)
	assert.Equal(t, 2500*time.Millisecond, s.Timeout)
	assert.True(t, s.TLSSkip)
	assert.Equal(t, "bob", s.Credentials.Username)
	assert.Equal(t, "/file.prom", s.MetricsTextfile)

	cfg.Backend = "github"
	cfg.MetricsFile = "/flag.prom"
	s, err = cfg.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "github", s.Backend)
	assert.Equal(t, "/flag.prom", s.MetricsTextfile)
}

func TestResolve_Defaults(t *testing.T) {
	t.Parallel()

	s, err := (&Config{Env: envMap(nil)}).Resolve()
	require.NoError(t, err)
	assert.Equal(t, DefaultBackend, s.Backend)
	assert.Equal(t, DefaultTimeout, s.Timeout)
	assert.False(t, s.TLSSkip)
}
