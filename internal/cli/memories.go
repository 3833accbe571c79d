package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/session-insight/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "memories",
		Short: "List and query the memory hierarchy",
		Run:   runMemories,
	}

	cmd.Flags().String("scope", "", "Filter by scope: session, project, or global")
	cmd.Flags().String("category", "", "Filter by observation category")
	cmd.Flags().Int("min-count", 0, "Minimum recurrence count")
	cmd.Flags().StringP("tags", "t", "", "Filter by tags (comma-separated, any match)")
	cmd.Flags().Bool("eligible", false, "Only memories eligible for promotion")

	RootCmd.AddCommand(cmd)
}

func runMemories(cmd *cobra.Command, args []string) {
	scope, _ := cmd.Flags().GetString("scope")
	category, _ := cmd.Flags().GetString("category")
	minCount, _ := cmd.Flags().GetInt("min-count")
	tagsStr, _ := cmd.Flags().GetString("tags")
	eligible, _ := cmd.Flags().GetBool("eligible")

	var tags []string
	if tagsStr != "" {
		for _, t := range strings.Split(tagsStr, ",") {
			t = strings.TrimSpace(t)
			if t != "" {
				tags = append(tags, t)
			}
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	memories, err := s.LoadMemories(cmd.Context())
	if err != nil {
		exitErr("load memories", err)
	}

	out := model.QueryMemories(memories, model.Filter{
		Scope:                model.Scope(scope),
		MinCount:             minCount,
		Category:             model.Category(category),
		Tags:                 tags,
		EligibleForPromotion: eligible,
		Config:               cfg.Promotion,
	})

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}
