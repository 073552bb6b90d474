package commands

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/systmms/vaultsess/internal/config"
	"github.com/systmms/vaultsess/internal/logging"
	"github.com/systmms/vaultsess/internal/testutil"
)

func TestMain(m *testing.M) {
	// Keep tests away from the developer's real keyring.
	keyring.MockInit()
	os.Exit(m.Run())
}

// newTestConfig points a config at fv with the given environment and no
// config file.
func newTestConfig(fv *testutil.FakeVault, env map[string]string) *config.Config {
	vars := map[string]string{}
	for k, v := range env {
		vars[k] = v
	}
	if fv != nil {
		vars["VAULT_ADDR"] = fv.URL()
	}
	return &config.Config{
		Logger:     logging.NewWithWriter(io.Discard, false, true),
		Definition: &config.Definition{},
		Env:        func(k string) string { return vars[k] },
	}
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()

	// Same as the root command in main.go.
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(bytes.NewBufferString(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustExecute(t *testing.T, cmd *cobra.Command, args ...string) string {
	t.Helper()
	out, err := execute(t, cmd, "", args...)
	require.NoError(t, err)
	return out
}
