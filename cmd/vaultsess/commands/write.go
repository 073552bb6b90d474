package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/systmms/vaultsess/internal/config"
	dserrors "github.com/systmms/vaultsess/internal/errors"
)

func NewWriteCommand(cfg *config.Config) *cobra.Command {
	var credFlags credentialFlags

	cmd := &cobra.Command{
		Use:   "write PATH KEY=VALUE...",
		Short: "Write a secret",
		Long: `Write KEY=VALUE pairs to PATH, logging in first when needed.

A value of @FILE is read from FILE; a value of - is read from stdin.

Examples:
  vaultsess write secret/myapp user=admin password=s3cr3t
  vaultsess write secret/myapp tls_key=@server.key
  echo -n s3cr3t | vaultsess write secret/myapp password=-`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			payload, err := parsePairs(args[1:], cmd.InOrStdin())
			if err != nil {
				return err
			}

			rt, err := newRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.flushMetrics(cfg)

			cred, err := rt.resolver(cfg, credFlags).Credential(rt.backend)
			if err != nil {
				return credentialError(err)
			}

			data, err := rt.session.Write(cmd.Context(), path, payload, rt.backend, cred)
			if err != nil {
				return dserrors.SessionError("write", err)
			}

			cfg.Logger.Info("Wrote %d field(s) to %s", len(payload), path)
			out := cmd.OutOrStdout()
			for _, k := range sortedKeys(data) {
				_, _ = fmt.Fprintf(out, "%s=%s\n", k, formatValue(data[k]))
			}
			return nil
		},
	}

	credFlags = bindCredentialFlags(cmd)

	return cmd
}

// parsePairs turns KEY=VALUE arguments into a payload. Stdin can be used for
// at most one value.
func parsePairs(pairs []string, stdin io.Reader) (map[string]any, error) {
	payload := make(map[string]any, len(pairs))
	stdinUsed := false

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, dserrors.UserError{
				Message:    fmt.Sprintf("Invalid argument %q", pair),
				Suggestion: "Use KEY=VALUE, KEY=@FILE or KEY=-",
			}
		}

		switch {
		case value == "-":
			if stdinUsed {
				return nil, dserrors.UserError{
					Message:    "Only one value can be read from stdin",
					Suggestion: "Use KEY=@FILE for the others",
				}
			}
			stdinUsed = true
			b, err := io.ReadAll(stdin)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s from stdin: %w", key, err)
			}
			value = string(b)
		case strings.HasPrefix(value, "@"):
			b, err := os.ReadFile(value[1:])
			if err != nil {
				return nil, dserrors.UserError{
					Message:    fmt.Sprintf("Failed to read value for %s", key),
					Details:    err.Error(),
					Suggestion: "Check the file path after @",
					Err:        err,
				}
			}
			value = string(b)
		}
		payload[key] = value
	}
	return payload, nil
}
