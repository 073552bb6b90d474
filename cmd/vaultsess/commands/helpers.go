package commands

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/systmms/vaultsess/internal/config"
	"github.com/systmms/vaultsess/internal/credentials"
	dserrors "github.com/systmms/vaultsess/internal/errors"
	"github.com/systmms/vaultsess/internal/metrics"
	"github.com/systmms/vaultsess/internal/transport"
	"github.com/systmms/vaultsess/pkg/session"
)

// osKeyring is swapped by tests.
var osKeyring credentials.Keyring = credentials.OSKeyring{}

// credentialFlags holds the per-field login flags shared by the session
// commands.
type credentialFlags map[string]*string

func bindCredentialFlags(cmd *cobra.Command) credentialFlags {
	flags := credentialFlags{}
	for _, b := range session.Backends() {
		for _, f := range credentials.Fields[b] {
			if _, ok := flags[f.Name]; ok {
				continue
			}
			v := new(string)
			usage := "Login " + f.Name + " (or " + f.Env + ")"
			cmd.Flags().StringVar(v, f.Name, "", usage)
			flags[f.Name] = v
		}
	}
	return flags
}

func (c credentialFlags) values() map[string]string {
	out := make(map[string]string, len(c))
	for name, v := range c {
		if *v != "" {
			out[name] = *v
		}
	}
	return out
}

// runtime is everything a session command needs after configuration has
// been resolved.
type runtime struct {
	settings *config.Settings
	backend  session.Backend
	session  *session.Session
	recorder *metrics.Recorder
}

func loadSettings(cfg *config.Config) (*config.Settings, error) {
	if cfg.Definition == nil {
		if err := cfg.Load(); err != nil {
			return nil, err
		}
	}
	return cfg.Resolve()
}

func newRuntime(cfg *config.Config) (*runtime, error) {
	settings, err := loadSettings(cfg)
	if err != nil {
		return nil, err
	}
	backend, err := session.ParseBackend(settings.Backend)
	if err != nil {
		names := make([]string, 0, len(session.Backends()))
		for _, b := range session.Backends() {
			names = append(names, string(b))
		}
		return nil, dserrors.UserError{
			Message:    fmt.Sprintf("Unknown authentication backend %q", settings.Backend),
			Suggestion: "Use one of: " + strings.Join(names, ", "),
			Err:        err,
		}
	}

	httpTransport, err := transport.New(transport.Options{
		Timeout: settings.Timeout,
		CACert:  settings.CACert,
		TLSSkip: settings.TLSSkip,
		Logger:  cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	recorder := metrics.NewRecorder()
	sess := session.New(session.Options{
		Transport: httpTransport,
		Prefix:    settings.Prefix,
		Namespace: settings.Namespace,
		Logger:    cfg.Logger,
		Recorder:  recorder,
	})
	cfg.Logger.Debug("Using %s with backend %s", settings.Prefix, backend)

	return &runtime{settings: settings, backend: backend, session: sess, recorder: recorder}, nil
}

func (rt *runtime) resolver(cfg *config.Config, flags credentialFlags) *credentials.Resolver {
	return &credentials.Resolver{
		Flags:    flags.values(),
		Settings: rt.settings.Credentials,
		Env:      cfg.Env,
		Keyring:  osKeyring,
	}
}

// flushMetrics writes the textfile when one is configured. Failures are
// reported but never fail the command.
func (rt *runtime) flushMetrics(cfg *config.Config) {
	if rt.settings.MetricsTextfile == "" {
		return
	}
	if err := rt.recorder.WriteTextfile(rt.settings.MetricsTextfile); err != nil {
		cfg.Logger.Warn("Failed to write metrics to %s: %v", rt.settings.MetricsTextfile, err)
		return
	}
	cfg.Logger.Debug("Wrote metrics to %s", rt.settings.MetricsTextfile)
}

// sortedKeys returns the keys of m in order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// credentialError explains where missing credential fields can come from.
func credentialError(err error) error {
	var missing *credentials.MissingError
	if errors.As(err, &missing) {
		return dserrors.UserError{
			Message:    fmt.Sprintf("Missing credentials for the %s backend", missing.Backend),
			Details:    strings.Join(missing.Fields, ", "),
			Suggestion: fmt.Sprintf("Pass the flags, export the variables, or store them with 'vaultsess creds set %s FIELD'", missing.Backend),
			Err:        err,
		}
	}
	return dserrors.SessionError("login", err)
}
