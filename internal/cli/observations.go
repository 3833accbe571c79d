package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/session-insight/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "observations",
		Short: "List extracted observations",
		Run:   runObservations,
	}

	cmd.Flags().String("category", "", "Filter by category")
	cmd.Flags().String("status", "", "Filter by status")
	cmd.Flags().Int("min-count", 0, "Minimum recurrence count")
	cmd.Flags().IntP("limit", "l", 0, "Max results (0 = all)")

	RootCmd.AddCommand(cmd)
}

func runObservations(cmd *cobra.Command, args []string) {
	category, _ := cmd.Flags().GetString("category")
	status, _ := cmd.Flags().GetString("status")
	minCount, _ := cmd.Flags().GetInt("min-count")
	limit, _ := cmd.Flags().GetInt("limit")

	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	observations, err := s.LoadObservations(cmd.Context())
	if err != nil {
		exitErr("load observations", err)
	}

	var out []model.Observation
	for _, o := range observations {
		if category != "" && o.Category != model.Category(category) {
			continue
		}
		if status != "" && o.Status != model.Status(status) {
			continue
		}
		if minCount > 0 && o.Count < minCount {
			continue
		}
		out = append(out, o)
		if limit > 0 && len(out) >= limit {
			break
		}
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}
