package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	goToken "github.com/MrEthical07/goToken"
	"github.com/MrEthical07/goToken/internal/config"
)

// NewRootCmd creates the root command for gotoken.
func NewRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "gotoken",
		Short: "gotoken - issue and inspect JWTs with custom headers",
		Long: `gotoken issues, verifies and inspects JSON Web Tokens using the same
engine applications embed.

Configuration precedence (highest to lowest):
  1. Command-line flags (--jwt-secret-key, --jwt-algorithm, ...)
  2. Environment variables (GOTOKEN_JWT__SECRET_KEY, ...)
  3. Configuration file (--config or GOTOKEN_CONFIG)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: $GOTOKEN_CONFIG)")
	config.RegisterFlags(rootCmd.PersistentFlags())

	env := &environment{configFile: &configFile}
	rootCmd.AddCommand(
		newIssueCmd(env),
		newDecodeCmd(env),
		newHeaderCmd(env),
		newBenchCmd(env),
	)

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// environment carries what every subcommand needs to build an engine.
type environment struct {
	configFile *string
}

func (e *environment) engineConfig(cmd *cobra.Command) (goToken.Config, error) {
	path := *e.configFile
	if path == "" {
		path = os.Getenv("GOTOKEN_CONFIG")
	}
	loader := config.NewLoader(config.WithFile(path), config.WithFlags(cmd.Flags()))
	cfg, err := loader.LoadEngineConfig()
	if err != nil {
		return goToken.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// engine builds an engine from the layered config. Config lint warnings are
// logged to stderr.
func (e *environment) engine(cmd *cobra.Command, configure ...func(*goToken.Builder)) (*goToken.Engine, error) {
	cfg, err := e.engineConfig(cmd)
	if err != nil {
		return nil, err
	}
	return buildEngine(cmd, cfg, configure...)
}

func buildEngine(cmd *cobra.Command, cfg goToken.Config, configure ...func(*goToken.Builder)) (*goToken.Engine, error) {
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	b := goToken.New().WithConfig(cfg).WithLogger(logger)
	for _, fn := range configure {
		fn(b)
	}
	engine, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build engine: %w", err)
	}
	return engine, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
