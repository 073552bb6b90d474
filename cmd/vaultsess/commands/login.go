package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/vaultsess/internal/config"
	dserrors "github.com/systmms/vaultsess/internal/errors"
)

func NewLoginCommand(cfg *config.Config) *cobra.Command {
	var tokenOnly bool
	var credFlags credentialFlags

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and print the issued token",
		Long: `Exchange credentials for a Vault token using the configured backend.

Credentials are taken from flags, then environment variables, then the config
file (non-secret identifiers only), then the OS keyring.

Examples:
  vaultsess login --backend userpass --username alice
  VAULT_ROLE_ID=... VAULT_SECRET_ID=... vaultsess login --backend approle
  export VAULT_TOKEN=$(vaultsess login --backend github --token-only)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.flushMetrics(cfg)

			cred, err := rt.resolver(cfg, credFlags).Credential(rt.backend)
			if err != nil {
				return credentialError(err)
			}
			if err := rt.session.Authenticate(cmd.Context(), rt.backend, cred); err != nil {
				return dserrors.SessionError("login", err)
			}

			token, err := rt.session.Token()
			if err != nil {
				return dserrors.SessionError("login", err)
			}

			out := cmd.OutOrStdout()
			if tokenOnly {
				_, _ = fmt.Fprintln(out, token)
				return nil
			}

			cfg.Logger.Info("Authenticated with %s", rt.backend)
			meta := rt.session.Metadata()
			if meta == nil {
				meta = map[string]string{}
			}
			meta["token"] = token

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "KEY\tVALUE")
			for _, k := range sortedKeys(meta) {
				_, _ = fmt.Fprintf(w, "%s\t%s\n", k, meta[k])
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&tokenOnly, "token-only", false, "Print only the token")
	credFlags = bindCredentialFlags(cmd)

	return cmd
}
