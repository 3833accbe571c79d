package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/session-insight/internal/model"
)

// promotionCandidate pairs a global memory with its eligibility result so a
// reviewer can see why each one does or does not qualify.
type promotionCandidate struct {
	MemoryID    string            `json:"memoryId"`
	Text        string            `json:"text"`
	Eligibility model.Eligibility `json:"eligibility"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Review and promote global memories to long-term storage",
		Long: "Without flags, lists every global memory with its promotion eligibility.\n" +
			"With --approve, snapshots the given eligible memory into long-term storage.",
		Run: runPromote,
	}

	cmd.Flags().String("approve", "", "Memory id to promote (requires eligibility)")

	RootCmd.AddCommand(cmd)
}

func runPromote(cmd *cobra.Command, args []string) {
	approveID, _ := cmd.Flags().GetString("approve")

	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	now := time.Now()

	if approveID == "" {
		memories, err := s.LoadMemories(cmd.Context())
		if err != nil {
			exitErr("load memories", err)
		}
		var out []promotionCandidate
		for _, m := range model.QueryMemories(memories, model.Filter{Scope: model.ScopeGlobal}) {
			out = append(out, promotionCandidate{
				MemoryID:    m.ID,
				Text:        m.Observation.Text,
				Eligibility: m.CheckPromotionEligibility(cfg.Promotion, now),
			})
		}
		b, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(b))
		return
	}

	m, err := s.GetMemory(cmd.Context(), approveID)
	if err != nil {
		exitErr("promote", err)
	}

	res := m.CheckPromotionEligibility(cfg.Promotion, now)
	if !res.Eligible {
		exitErr("promote", fmt.Errorf("memory %s not eligible: %s", m.ID, res.Reason))
	}

	ltm, err := m.ToLongTermMemory(s.NewID(), now)
	if err != nil {
		exitErr("promote", err)
	}
	if err := s.SaveLongTerm(cmd.Context(), ltm); err != nil {
		exitErr("save long-term memory", err)
	}

	// Mark the source pattern promoted so review surfaces stop offering it.
	if err := s.UpdateObservationStatus(cmd.Context(), m.Observation.ID, model.StatusLongTerm); err != nil {
		exitErr("update observation status", err)
	}
	m.Observation.Status = model.StatusLongTerm
	m.UpdatedAt = now
	if err := s.SaveMemories(cmd.Context(), []*model.Memory{m}); err != nil {
		exitErr("save memory", err)
	}

	b, _ := json.MarshalIndent(ltm, "", "  ")
	fmt.Println(string(b))
}
