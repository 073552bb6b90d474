package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/vaultsess/internal/config"
	dserrors "github.com/systmms/vaultsess/internal/errors"
)

func NewReadCommand(cfg *config.Config) *cobra.Command {
	var (
		field      string
		jsonOutput bool
		credFlags  credentialFlags
	)

	cmd := &cobra.Command{
		Use:   "read PATH",
		Short: "Read a secret",
		Long: `Read the secret at PATH, logging in first when needed.

PATH is relative to the API root, e.g. secret/myapp or secret/data/myapp for
a KV v2 mount.

Examples:
  vaultsess read secret/myapp
  vaultsess read secret/myapp --field password
  vaultsess read secret/myapp --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			rt, err := newRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.flushMetrics(cfg)

			cred, err := rt.resolver(cfg, credFlags).Credential(rt.backend)
			if err != nil {
				return credentialError(err)
			}

			data, err := rt.session.Read(cmd.Context(), path, rt.backend, cred)
			if err != nil {
				return dserrors.SessionError("read", err)
			}

			out := cmd.OutOrStdout()
			if field != "" {
				value, ok := data[field]
				if !ok {
					return dserrors.UserError{
						Message:    fmt.Sprintf("Field %q not found in %s", field, path),
						Suggestion: fmt.Sprintf("Run 'vaultsess read %s' to list the available fields", path),
					}
				}
				return printValue(out, value)
			}
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(data)
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "KEY\tVALUE")
			for _, k := range sortedKeys(data) {
				_, _ = fmt.Fprintf(w, "%s\t%s\n", k, formatValue(data[k]))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&field, "field", "", "Print only this field's value")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the data object as JSON")
	credFlags = bindCredentialFlags(cmd)

	return cmd
}

// formatValue renders strings as-is and everything else as compact JSON.
func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func printValue(w io.Writer, v any) error {
	_, err := fmt.Fprintln(w, formatValue(v))
	return err
}
