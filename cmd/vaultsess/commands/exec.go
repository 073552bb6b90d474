package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/systmms/vaultsess/internal/config"
	dserrors "github.com/systmms/vaultsess/internal/errors"
	"github.com/systmms/vaultsess/internal/execenv"
)

func NewExecCommand(cfg *config.Config) *cobra.Command {
	var (
		keepExisting bool
		credFlags    credentialFlags
	)

	cmd := &cobra.Command{
		Use:   "exec -- COMMAND [ARGS...]",
		Short: "Run a command with a fresh Vault token in its environment",
		Long: `Log in with the configured backend and run COMMAND with VAULT_TOKEN,
VAULT_ADDR and VAULT_NAMESPACE set. The token is never written to disk.

Examples:
  vaultsess exec --backend approle -- terraform plan
  vaultsess exec -- vault kv get secret/myapp`,
		Args: cobra.MinimumNArgs(1),
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

			env := map[string]string{
				"VAULT_TOKEN": token,
				"VAULT_ADDR":  strings.TrimSuffix(rt.settings.Prefix, "/v1/"),
			}
			if rt.settings.Namespace != "" {
				env["VAULT_NAMESPACE"] = rt.settings.Namespace
			}

			return execenv.New(cfg.Logger).Run(cmd.Context(), execenv.Options{
				Command:      args,
				Environment:  env,
				KeepExisting: keepExisting,
				Stdin:        cmd.InOrStdin(),
				Stdout:       cmd.OutOrStdout(),
				Stderr:       cmd.ErrOrStderr(),
			})
		},
	}

	cmd.Flags().BoolVar(&keepExisting, "keep-existing", false, "Do not override variables already set in the environment")
	credFlags = bindCredentialFlags(cmd)

	return cmd
}
