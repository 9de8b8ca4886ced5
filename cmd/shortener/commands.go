package main

import (
	"fmt"
	"io"

	"github.com/IgorGrieder/linkquota/internal/config"
	"github.com/IgorGrieder/linkquota/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// flagValues holds command-line overrides. Empty values keep what the
// environment configured.
type flagValues struct {
	port      string
	baseURL   string
	logOutput string
	user      string
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	var flags flagValues

	rootCmd := &cobra.Command{
		Use:   "shortener",
		Short: "Quota-limited URL shortener with an interactive console",
		Long: `shortener serves short links over HTTP and opens an interactive menu
on the terminal. Every link stops redirecting once its click limit is used
up or its lifetime ends.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd, flags, runOptions{Interactive: true, In: in, Out: out})
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run only the HTTP redirect listener, without the console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd, flags, runOptions{Out: out})
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the application version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", cfg.App.Name, cfg.App.Version)
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.port, "port", "p", "", "HTTP port of the redirect listener (overrides APP_PORT)")
	pf.StringVar(&flags.baseURL, "base-url", "", "public prefix of short links (overrides SHORTENER_BASE_URL)")
	pf.StringVar(&flags.logOutput, "log-output", "", "comma-separated log sinks (overrides LOG_OUTPUT)")
	pf.StringVar(&flags.user, "user", "", "identity to act as in the console, a new one is created when empty")

	rootCmd.AddCommand(serveCmd, versionCmd)
	rootCmd.SetOut(out)
	return rootCmd
}

func execute(cmd *cobra.Command, flags flagValues, opts runOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err := applyFlags(cfg, flags, opts.Interactive); err != nil {
		return err
	}

	if flags.user != "" {
		id, err := uuid.Parse(flags.user)
		if err != nil {
			return fmt.Errorf("--user must be a UUID: %w", err)
		}
		opts.User = id
	}

	if err := logger.Init(logger.Options{
		Env:    cfg.App.Env,
		Level:  cfg.App.LogLevel,
		Output: cfg.App.LogOutput,
	}); err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer logger.Sync()

	return run(cmd.Context(), cfg, opts)
}

// applyFlags folds flag overrides into cfg. The console owns stdout, so an
// interactive run moves logs to stderr unless a sink was chosen explicitly.
func applyFlags(cfg *config.Config, flags flagValues, interactive bool) error {
	if flags.port != "" {
		if flags.baseURL == "" && cfg.Shortener.BaseURL == "http://localhost:"+cfg.Server.Port {
			cfg.Shortener.BaseURL = "http://localhost:" + flags.port
		}
		cfg.Server.Port = flags.port
	}
	if flags.baseURL != "" {
		cfg.Shortener.BaseURL = flags.baseURL
	}

	switch {
	case flags.logOutput != "":
		cfg.App.LogOutput = flags.logOutput
	case interactive && cfg.App.LogOutput == "stdout":
		cfg.App.LogOutput = "stderr"
	}

	return cfg.Validate()
}
