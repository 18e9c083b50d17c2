package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pendergraft/contraconf/internal/config"
	"github.com/pendergraft/contraconf/internal/middleware/logging"
	"github.com/pendergraft/contraconf/internal/observability/metrics"
	"github.com/pendergraft/contraconf/internal/secrets"
)

var (
	settings config.Settings
	logger   = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// Execute runs the CLI
func Execute(version string) error {
	rootCmd := newRootCmd(version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, err := rootCmd.ExecuteContextC(ctx)
	if cmd != nil && cmd != rootCmd {
		metrics.RunFinished(cmd.Name(), err)
		if werr := metrics.WriteTextfile(settings.MetricsFile); werr != nil {
			logger.Warn("writing metrics", "path", settings.MetricsFile, "error", werr)
		}
	}
	return err
}

func newRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "contraconf",
		Short: "Build, deploy and verify configuration for smart contract projects",
		Long: `Contraconf resolves the compiler, network and verification settings of a
smart contract project and checks them before anything is compiled, deployed
or verified.

Secrets (signing keys, explorer API keys) are never written to the project
file; they are read from the environment, a .env file or the local secrets
store, in that order.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
	}

	// Global flags. Each one overrides its CONTRACONF_* variable.
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "project file (default: contraconf.toml, contraconf.yaml)")
	flags.String("network", "", "network to use (default from project file)")
	flags.String("env-file", "", "dotenv file with secrets (default: .env)")
	flags.String("secrets-file", "", "local secrets store (default: ~/.contraconf/secrets.yaml)")
	flags.String("log-level", "", "log level: debug, info, warn, error (default: warn)")
	flags.String("log-format", "", "log format: text or json (default: text)")
	flags.String("metrics-file", "", "write Prometheus metrics to this file on exit")

	rootCmd.AddCommand(createCheckCmd())
	rootCmd.AddCommand(createConfigCmd())
	rootCmd.AddCommand(createExportCmd())
	rootCmd.AddCommand(createRPCCmd())
	rootCmd.AddCommand(createVerifyCmd())
	rootCmd.AddCommand(createSecretsCmd())

	return rootCmd
}

// setup loads tool settings, applies flag overrides and prepares logging
// and metrics for one invocation.
func setup(cmd *cobra.Command) error {
	s, err := config.LoadSettings()
	if err != nil {
		return err
	}

	overrides := map[string]*string{
		"config":       &s.ConfigFile,
		"network":      &s.Network,
		"env-file":     &s.EnvFile,
		"secrets-file": &s.SecretsFile,
		"log-level":    &s.LogLevel,
		"log-format":   &s.LogFormat,
		"metrics-file": &s.MetricsFile,
	}
	for name, dst := range overrides {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}
	settings = s

	logger = setupLogger(cmd.ErrOrStderr(), s.LogLevel, s.LogFormat).
		With("run_id", uuid.NewString(), "command", cmd.Name())
	slog.SetDefault(logger)

	metrics.Init(s.MetricsFile != "")
	return nil
}

func setupLogger(w io.Writer, level, format string) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}

	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// loadProject reads the project file named by --config, or the first one
// found in the working directory.
func loadProject() (*config.Project, error) {
	if settings.ConfigFile != "" {
		p, err := config.LoadProject(settings.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("loading project file: %w", err)
		}
		return p, nil
	}
	return config.FindProject(".")
}

// newLookup returns the secret sources in precedence order: process
// environment, dotenv file, local secrets store.
func newLookup() (config.Lookup, error) {
	dotenv, err := config.Dotenv(settings.EnvFile)
	if err != nil {
		return nil, err
	}
	var store config.Lookup
	if settings.SecretsFile != "" {
		s := secrets.NewStore(settings.SecretsFile)
		// Store.Lookup treats an unreadable file as empty; report it here instead.
		if _, err := s.Names(); err != nil {
			return nil, err
		}
		store = s
	}
	return config.Chain(config.Env(), dotenv, store), nil
}

// resolve produces the configuration for intent on the selected network.
func resolve(intent config.Intent) (config.ResolvedConfig, *config.Project, error) {
	project, err := loadProject()
	if err != nil {
		return config.ResolvedConfig{}, nil, err
	}

	cfg, err := resolveProject(project, intent)
	metrics.Resolution(string(intent), config.ErrorKind(err))
	if err != nil {
		logger.Debug("resolution failed", "intent", intent, "error", err)
		return config.ResolvedConfig{}, project, err
	}
	logger.Debug("configuration resolved", "source", project.Source(), "config", cfg)
	return cfg, project, nil
}

func resolveProject(project *config.Project, intent config.Intent) (config.ResolvedConfig, error) {
	defaults, err := project.Defaults(settings.Network)
	if err != nil {
		return config.ResolvedConfig{}, err
	}
	lookup, err := newLookup()
	if err != nil {
		return config.ResolvedConfig{}, err
	}
	return config.Resolve(defaults, lookup, intent)
}

// httpClient is shared by the RPC and explorer clients of one invocation.
func httpClient() *http.Client {
	return logging.NewClient(logger.With("component", "http"))
}
