package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nhle/maillist/internal/logging"
	"github.com/nhle/maillist/internal/model"
)

var (
	cfgFile  string
	logLevel string
	devMode  bool
	openUID  string
	folder   string
)

var rootCmd = &cobra.Command{
	Use:   "maillist",
	Short: "Terminal mail client",
	Long: `maillist shows an IMAP mailbox in the terminal. Message bodies are
fetched as their rows scroll into view, searches run as you type, and new
mail in the inbox raises a notification.

Run without an account configured to open the setup form, or pass --dev
to browse generated messages without a server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/maillist/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error")

	rootCmd.Flags().BoolVar(&devMode, "dev", false, "browse generated messages without a server")
	rootCmd.Flags().StringVar(&openUID, "open", "", "uid of a message to open at startup")
	rootCmd.Flags().StringVar(&folder, "folder", "", "folder to open first (default the inbox)")
}

// Execute runs the root command with a background context.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the given context, so a
// signal can cancel it.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// configPath returns the --config value or the default location.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return model.DefaultConfigPath()
}

// loadEnv reads the configuration and opens the logger. The closer is
// never nil.
func loadEnv() (*model.AppConfig, zerolog.Logger, io.Closer, error) {
	cfg, err := model.LoadConfig(configPath())
	if err != nil {
		return nil, zerolog.Nop(), io.NopCloser(nil), fmt.Errorf("load config: %w", err)
	}

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	logger, closer, err := logging.New(logging.Config{Level: level, File: cfg.Log.File})
	if err != nil {
		return nil, zerolog.Nop(), closer, fmt.Errorf("open log: %w", err)
	}
	return cfg, logger, closer, nil
}
