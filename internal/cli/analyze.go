package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/session-insight/internal/analyzer"
	"github.com/rcliao/session-insight/internal/session"
)

func init() {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze session transcripts for recurring patterns",
		Run:   runAnalyze,
	}

	cmd.Flags().StringP("sessions", "s", "", "Directory of .jsonl session transcripts (default: sessions.dir from config)")
	cmd.Flags().StringP("project", "p", "", "Project identifier the sessions belong to")
	cmd.MarkFlagRequired("project")

	RootCmd.AddCommand(cmd)
}

func runAnalyze(cmd *cobra.Command, args []string) {
	dir, _ := cmd.Flags().GetString("sessions")
	projectID, _ := cmd.Flags().GetString("project")

	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	if dir == "" {
		dir = cfg.Sessions.Dir
	}
	if dir == "" {
		exitErr("analyze", fmt.Errorf("no sessions directory given (use --sessions or sessions.dir in config)"))
	}

	sessions, err := session.LoadDir(dir)
	if err != nil {
		exitErr("load sessions", err)
	}

	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	report, err := analyzer.New(s, cfg, newLogger()).Run(cmd.Context(), sessions, projectID)
	if err != nil {
		exitErr("analyze", err)
	}

	b, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(b))
}
