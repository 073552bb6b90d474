package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"

	"github.com/systmms/vaultsess/internal/config"
	"github.com/systmms/vaultsess/internal/credentials"
	dserrors "github.com/systmms/vaultsess/internal/errors"
	"github.com/systmms/vaultsess/pkg/session"
)

func NewCredsCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "creds",
		Short: "Manage login credentials in the OS keyring",
		Long: `Store, remove and inspect login credentials kept in the OS keyring.

Values are read from stdin so they never appear in shell history.

Examples:
  printf %s "$SECRET_ID" | vaultsess creds set approle secret-id
  vaultsess creds list approle
  vaultsess creds delete approle secret-id`,
	}

	cmd.AddCommand(
		newCredsSetCommand(cfg),
		newCredsDeleteCommand(cfg),
		newCredsListCommand(cfg),
	)
	return cmd
}

func newCredsSetCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "set BACKEND FIELD",
		Short: "Store a credential field read from stdin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, field, err := parseBackendField(args[0], args[1])
			if err != nil {
				return err
			}

			raw, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read value from stdin: %w", err)
			}
			value := strings.TrimRight(string(raw), "\r\n")
			if value == "" {
				return dserrors.UserError{
					Message:    "No value on stdin",
					Suggestion: fmt.Sprintf("Pipe the value in, e.g. printf %%s \"$VALUE\" | vaultsess creds set %s %s", backend, field.Name),
				}
			}

			if err := osKeyring.Set(credentials.KeyringService, credentials.KeyringAccount(backend, field.Name), value); err != nil {
				return keyringError("store", err)
			}
			cfg.Logger.Info("Stored %s %s in the keyring", backend, field.Name)
			return nil
		},
	}
}

func newCredsDeleteCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "delete BACKEND FIELD",
		Short: "Remove a credential field from the keyring",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, field, err := parseBackendField(args[0], args[1])
			if err != nil {
				return err
			}

			err = osKeyring.Delete(credentials.KeyringService, credentials.KeyringAccount(backend, field.Name))
			if errors.Is(err, keyring.ErrNotFound) {
				cfg.Logger.Warn("No %s %s stored in the keyring", backend, field.Name)
				return nil
			}
			if err != nil {
				return keyringError("delete", err)
			}
			cfg.Logger.Info("Removed %s %s from the keyring", backend, field.Name)
			return nil
		},
	}
}

func newCredsListCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list [BACKEND]",
		Short: "Show where each credential field would be taken from",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backends := session.Backends()
			if len(args) == 1 {
				b, err := session.ParseBackend(args[0])
				if err != nil {
					return dserrors.SessionError("list", err)
				}
				backends = []session.Backend{b}
			}

			settings, err := loadSettings(cfg)
			if err != nil {
				return err
			}
			resolver := &credentials.Resolver{Settings: settings.Credentials, Env: cfg.Env, Keyring: osKeyring}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "BACKEND\tFIELD\tSOURCE")
			for _, b := range backends {
				for _, f := range credentials.Fields[b] {
					_, src, err := resolver.Lookup(b, f)
					if err != nil {
						return keyringError("read", err)
					}
					_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", b, f.Name, src)
				}
			}
			return w.Flush()
		},
	}
}

func parseBackendField(backendName, fieldName string) (session.Backend, credentials.Field, error) {
	backend, err := session.ParseBackend(backendName)
	if err != nil {
		return "", credentials.Field{}, dserrors.SessionError("keyring", err)
	}
	field, ok := credentials.FindField(backend, fieldName)
	if !ok {
		names := make([]string, 0, len(credentials.Fields[backend]))
		for _, f := range credentials.Fields[backend] {
			names = append(names, f.Name)
		}
		return "", credentials.Field{}, dserrors.UserError{
			Message:    fmt.Sprintf("Unknown field %q for the %s backend", fieldName, backend),
			Suggestion: "Use one of: " + strings.Join(names, ", "),
		}
	}
	return backend, field, nil
}

func keyringError(action string, err error) error {
	return dserrors.UserError{
		Message:    fmt.Sprintf("Failed to %s credential in the OS keyring", action),
		Details:    err.Error(),
		Suggestion: "Make sure a keyring service is running (Keychain, Secret Service or Credential Manager)",
		Err:        err,
	}
}
