package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/systmms/vaultsess/cmd/vaultsess/commands"
	"github.com/systmms/vaultsess/internal/config"
	"github.com/systmms/vaultsess/internal/execenv"
	"github.com/systmms/vaultsess/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		// Child processes started by exec keep their own exit status.
		var exitErr *execenv.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  string
		noColor     bool
		debug       bool
		backend     string
		metricsFile string
	)

	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "vaultsess",
		Short: "Vault session client - log in once, read and write secrets",
		Long: `vaultsess keeps a Vault token for the duration of a command, logging in
with approle, app-id, userpass, github or a literal token and retrying an
operation once when the token is rejected.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Path = configFile
			cfg.PathExplicit = cmd.Flags().Changed("config")
			cfg.Logger = logging.New(debug, noColor)
			cfg.Backend = backend
			cfg.MetricsFile = metricsFile
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Authentication backend (approle, app-id, userpass, github, token)")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile on exit")
	_ = rootCmd.RegisterFlagCompletionFunc("backend", commands.CompleteBackends)

	rootCmd.AddCommand(
		commands.NewLoginCommand(cfg),
		commands.NewReadCommand(cfg),
		commands.NewWriteCommand(cfg),
		commands.NewCredsCommand(cfg),
		commands.NewExecCommand(cfg),
		commands.NewDoctorCommand(cfg),
		commands.NewCompletionCommand(cfg),
	)

	return rootCmd.Execute()
}
