// Package cli implements the session-insight CLI commands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/session-insight/internal/config"
	"github.com/rcliao/session-insight/internal/store"
)

var (
	dbPath     string
	configPath string
	verbose    bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "session-insight",
	Short: "Behavioral pattern memory for AI coding sessions",
	Long: "Extracts recurring tool-usage patterns from AI coding session transcripts,\n" +
		"deduplicates them, and promotes validated patterns through a session/project/global\n" +
		"memory hierarchy. SQLite-backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $SESSION_INSIGHT_DB or ~/.session-insight/insight.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config path (default: ~/.session-insight/config.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline progress")
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	return config.Load(path)
}

func getDBPath(cfg *config.Config) string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("SESSION_INSIGHT_DB"); env != "" {
		return env
	}
	if cfg.Storage.DBPath != "" {
		return cfg.Storage.DBPath
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".session-insight", "insight.db")
}

func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath(cfg))
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
