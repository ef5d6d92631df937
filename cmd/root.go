package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/brigade/internal/config"
	"github.com/abhisek/brigade/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "brigade",
	Short: "Conversational skill assessment for restaurant staff",
	Long: "Brigade generates questions from training material, grades trainees' answers " +
		"conversationally, scores attempts and coaches practice sessions.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "SQLite database file, or Postgres DSN with --driver postgres (overrides BRIGADE_DB_DSN)")
	rootCmd.PersistentFlags().String("driver", "", "Database driver: sqlite or postgres (overrides BRIGADE_DB_DRIVER)")
	rootCmd.PersistentFlags().String("trainee", "", "Trainee id for terminal sessions (defaults to $USER)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(assessCmd)
	rootCmd.AddCommand(practiceCmd)
	rootCmd.AddCommand(unitsCmd)
	rootCmd.AddCommand(questionsCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads .env and BRIGADE_* variables, then applies the
// persistent flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	config.LoadDotEnv()
	cfg, err := config.FromEnv()
	if err != nil {
		return cfg, err
	}
	if d, _ := cmd.Flags().GetString("driver"); d != "" {
		cfg.DBDriver = d
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.DBDSN = p
	}
	return cfg, cfg.Validate()
}

// resolveDSN returns the DSN for cfg. SQLite falls back to the default
// data file; a given file path gets its directory created.
func resolveDSN(cfg config.Config) (string, error) {
	if cfg.DBDriver != store.DriverSQLite {
		return cfg.DBDSN, nil
	}
	if cfg.DBDSN == "" {
		return store.DefaultDBPath()
	}
	return cfg.DBDSN, store.EnsureDir(cfg.DBDSN)
}

// openStore loads configuration and opens the database.
func openStore(cmd *cobra.Command) (*store.Store, config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, cfg, err
	}
	dsn, err := resolveDSN(cfg)
	if err != nil {
		return nil, cfg, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(cfg.DBDriver, dsn)
	if err != nil {
		return nil, cfg, fmt.Errorf("open store: %w", err)
	}
	return st, cfg, nil
}

// traineeID is --trainee, or the OS user for local terminal sessions.
func traineeID(cmd *cobra.Command) string {
	if t, _ := cmd.Flags().GetString("trainee"); t != "" {
		return t
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "trainee"
}

// quietLogger keeps library logs off the terminal UI.
func quietLogger(cfg config.Config) *slog.Logger {
	if cfg.LogLevel > slog.LevelWarn {
		return cfg.Logger()
	}
	cfg.LogLevel = slog.LevelError
	return cfg.Logger()
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
