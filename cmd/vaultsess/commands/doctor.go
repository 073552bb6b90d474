package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/vaultsess/internal/config"
	"github.com/systmms/vaultsess/internal/credentials"
	dserrors "github.com/systmms/vaultsess/internal/errors"
)

func NewDoctorCommand(cfg *config.Config) *cobra.Command {
	var (
		skipLogin bool
		credFlags credentialFlags
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, credentials and connectivity",
		Long: `Verify that vaultsess is configured and can log in.

This command checks:
- Configuration file validity
- The effective address, namespace and backend
- Where each credential field comes from
- That a login with the configured backend succeeds`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Logger.Info("Checking vaultsess configuration...")
			rt, err := newRuntime(cfg)
			if err != nil {
				cfg.Logger.Error("Configuration error: %v", err)
				return err
			}
			defer rt.flushMetrics(cfg)

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "address\t%s\n", rt.settings.Prefix)
			if rt.settings.Namespace != "" {
				_, _ = fmt.Fprintf(w, "namespace\t%s\n", rt.settings.Namespace)
			}
			_, _ = fmt.Fprintf(w, "backend\t%s\n", rt.backend)
			_, _ = fmt.Fprintf(w, "timeout\t%s\n", rt.settings.Timeout)
			if rt.settings.TLSSkip {
				_, _ = fmt.Fprintf(w, "tls\tverification disabled\n")
			}

			resolver := rt.resolver(cfg, credFlags)
			for _, f := range credentials.Fields[rt.backend] {
				_, src, err := resolver.Lookup(rt.backend, f)
				if err != nil {
					_ = w.Flush()
					return keyringError("read", err)
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\n", f.Name, src)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if skipLogin {
				return nil
			}

			cred, err := resolver.Credential(rt.backend)
			if err != nil {
				cfg.Logger.Error("Credentials incomplete")
				return credentialError(err)
			}
			if err := rt.session.Authenticate(cmd.Context(), rt.backend, cred); err != nil {
				cfg.Logger.Error("Login with %s failed", rt.backend)
				if dserrors.IsConnectionError(err) {
					cfg.Logger.Warn("Vault at %s is not reachable", rt.settings.Prefix)
				}
				return dserrors.SessionError("login", err)
			}
			cfg.Logger.Info("Login with %s succeeded", rt.backend)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipLogin, "skip-login", false, "Only check configuration and credential sources")
	credFlags = bindCredentialFlags(cmd)

	return cmd
}
