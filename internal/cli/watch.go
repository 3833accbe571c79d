package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/session-insight/internal/analyzer"
	"github.com/rcliao/session-insight/internal/session"
)

func init() {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a sessions directory and re-analyze on change",
		RunE:  runWatch,
	}

	cmd.Flags().StringP("sessions", "s", "", "Directory of .jsonl session transcripts (default: sessions.dir from config)")
	cmd.Flags().StringP("project", "p", "", "Project identifier the sessions belong to")
	cmd.Flags().Duration("debounce", 2*time.Second, "Debounce window for batching transcript writes")
	cmd.MarkFlagRequired("project")

	RootCmd.AddCommand(cmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("sessions")
	projectID, _ := cmd.Flags().GetString("project")
	debounce, _ := cmd.Flags().GetDuration("debounce")

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if dir == "" {
		dir = cfg.Sessions.Dir
	}
	if dir == "" {
		return fmt.Errorf("no sessions directory given (use --sessions or sessions.dir in config)")
	}

	s, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	log := newLogger()
	a := analyzer.New(s, cfg, log)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for transcript changes...\n", dir)

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".jsonl" {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !pending {
				timer.Reset(debounce)
				pending = true
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "watch error: %v\n", err)
		case <-timer.C:
			pending = false
			sessions, err := session.LoadDir(dir)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "load sessions: %v\n", err)
				continue
			}
			report, err := a.Run(cmd.Context(), sessions, projectID)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "analyze: %v\n", err)
				continue
			}
			log.Info("re-analyzed after change",
				zap.Int("sessions", report.Sessions),
				zap.Int("observations", report.Observations))
			fmt.Fprintf(cmd.OutOrStdout(), "analyzed %d sessions, %d observations\n",
				report.Sessions, report.Observations)
		}
	}
}
