// Package analyzer runs the full analysis pipeline: extract tool chains from
// session transcripts, detect recurring patterns, deduplicate them against
// the persisted observations, and roll the results up the memory hierarchy.
package analyzer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/session-insight/internal/config"
	"github.com/rcliao/session-insight/internal/detect"
	"github.com/rcliao/session-insight/internal/model"
	"github.com/rcliao/session-insight/internal/session"
	"github.com/rcliao/session-insight/internal/store"
	"github.com/rcliao/session-insight/internal/toolchain"
)

// Analyzer wires the pipeline stages to a store and config. It assumes one
// analysis run at a time: all I/O happens before and after the in-memory
// merge, never interleaved with it.
type Analyzer struct {
	store *store.SQLiteStore
	cfg   *config.Config
	log   *zap.Logger
}

// New creates an analyzer. A nil logger disables logging.
func New(st *store.SQLiteStore, cfg *config.Config, log *zap.Logger) *Analyzer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Analyzer{store: st, cfg: cfg, log: log}
}

// Report summarizes one analysis run.
type Report struct {
	Sessions        int `json:"sessions"`
	Candidates      int `json:"candidates"`
	Observations    int `json:"observations"`
	SessionMemories int `json:"sessionMemories"`
	ProjectMemories int `json:"projectMemories"`
	GlobalMemories  int `json:"globalMemories"`
}

// Run analyzes the given sessions for one project: load persisted
// observations, ingest every detected candidate, persist the merged records,
// then refresh the session, project, and global memories they roll up into.
func (a *Analyzer) Run(ctx context.Context, sessions []session.Session, projectID string) (*Report, error) {
	if projectID == "" {
		return nil, fmt.Errorf("analyze: project id required")
	}

	existing, err := a.store.LoadObservations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load observations: %w", err)
	}

	now := time.Now()
	coll := store.NewCollection(existing, a.cfg.Analysis.SimilarityThreshold)
	coll.GuardSessions = true

	report := &Report{Sessions: len(sessions)}

	// perSession maps canonical observation id -> the session-local view of
	// that pattern (count within the session, provenance of just the session).
	perSession := make(map[string]map[string]*model.Observation)
	for _, sess := range sessions {
		chain := toolchain.FromMessages(sess.Messages)
		params := detect.Params{SessionID: sess.ID, Now: now, NewID: a.store.NewID}

		candidates := detect.Analyze(chain, params)
		candidates = append(candidates, detect.Failures(sess.Messages, params)...)
		report.Candidates += len(candidates)

		local := make(map[string]*model.Observation)
		for _, cand := range candidates {
			canonicalID := coll.Ingest(cand)
			if prev, ok := local[canonicalID]; ok {
				model.MergeObservation(prev, cand)
				continue
			}
			view := cand
			view.ID = canonicalID
			local[canonicalID] = &view
		}
		perSession[sess.ID] = local

		a.log.Info("analyzed session",
			zap.String("session", sess.ID),
			zap.Int("toolUses", len(chain)),
			zap.Int("candidates", len(candidates)))
	}

	records := coll.Records()
	report.Observations = len(records)
	if err := a.store.SaveObservations(ctx, records); err != nil {
		return nil, fmt.Errorf("save observations: %w", err)
	}

	if err := a.rollUp(ctx, perSession, projectID, now, report); err != nil {
		return nil, err
	}

	a.log.Info("analysis complete",
		zap.String("project", projectID),
		zap.Int("sessions", report.Sessions),
		zap.Int("observations", report.Observations))
	return report, nil
}

// rollUp refreshes the memory hierarchy bottom-up. Session memories are
// upserted per (session, pattern); project and global memories are
// re-aggregated from their children by id out of the flat store, keeping
// their original id and creation time so the time-in-stage clock keeps
// running across runs.
func (a *Analyzer) rollUp(ctx context.Context, perSession map[string]map[string]*model.Observation, projectID string, now time.Time, report *Report) error {
	memories, err := a.store.LoadMemories(ctx)
	if err != nil {
		return fmt.Errorf("load memories: %w", err)
	}

	byID := make(map[string]*model.Memory, len(memories))
	sessionMems := make(map[string]*model.Memory)           // sessionID + "\x1f" + observationID
	projectMems := make(map[string]*model.Memory)           // projectID + "\x1f" + observationID
	globalMems := make(map[string]*model.Memory)            // observationID
	projectsByObs := make(map[string][]*model.Memory)       // observationID -> project memories, all projects
	for _, m := range memories {
		byID[m.ID] = m
		switch m.Scope {
		case model.ScopeSession:
			sessionMems[m.SessionID+"\x1f"+m.Observation.ID] = m
		case model.ScopeProject:
			projectMems[m.ProjectID+"\x1f"+m.Observation.ID] = m
			projectsByObs[m.Observation.ID] = append(projectsByObs[m.Observation.ID], m)
		case model.ScopeGlobal:
			globalMems[m.Observation.ID] = m
		}
	}

	dirty := make(map[string]*model.Memory)

	// Session level.
	touched := make(map[string][]*model.Memory) // observationID -> session memories of this run
	for sessID, local := range perSession {
		for obsID, view := range local {
			key := sessID + "\x1f" + obsID
			m, ok := sessionMems[key]
			if ok {
				// Re-analysis recomputes the whole session, so the new view
				// replaces the old one instead of stacking on top of it.
				if m.Observation.FirstSeen.Before(view.FirstSeen) {
					view.FirstSeen = m.Observation.FirstSeen
				}
				view.Status = m.Observation.Status
				m.Observation = *view
				m.UpdatedAt = now
			} else {
				m = model.NewSessionMemory(a.store.NewID(), sessID, *view, now)
				sessionMems[key] = m
				byID[m.ID] = m
			}
			dirty[m.ID] = m
			touched[obsID] = append(touched[obsID], m)
		}
	}
	report.SessionMemories = len(dirty)

	// Project level: children are the prior aggregate's children plus the
	// session memories touched this run.
	for obsID, sessList := range touched {
		prior := projectMems[projectID+"\x1f"+obsID]
		children := resolveChildren(byID, prior, sessList)
		agg, err := model.AggregateProjectMemory(aggregateID(prior, a.store.NewID), projectID, children, now)
		if err != nil {
			return err
		}
		if prior != nil {
			agg.CreatedAt = prior.CreatedAt
		} else {
			projectsByObs[obsID] = append(projectsByObs[obsID], agg)
		}
		projectMems[projectID+"\x1f"+obsID] = agg
		byID[agg.ID] = agg
		dirty[agg.ID] = agg
		report.ProjectMemories++

		// Global level: every project memory carrying this pattern.
		var projList []*model.Memory
		for _, pm := range projectsByObs[obsID] {
			projList = append(projList, projectMems[pm.ProjectID+"\x1f"+obsID])
		}
		priorGlobal := globalMems[obsID]
		g, err := model.AggregateGlobalMemory(aggregateID(priorGlobal, a.store.NewID), projList, now)
		if err != nil {
			return err
		}
		if priorGlobal != nil {
			g.CreatedAt = priorGlobal.CreatedAt
		}
		globalMems[obsID] = g
		byID[g.ID] = g
		dirty[g.ID] = g
		report.GlobalMemories++
	}

	changed := make([]*model.Memory, 0, len(dirty))
	for _, m := range dirty {
		changed = append(changed, m)
	}
	if err := a.store.SaveMemories(ctx, changed); err != nil {
		return fmt.Errorf("save memories: %w", err)
	}
	return nil
}

// resolveChildren returns the prior aggregate's children (looked up by id in
// the flat store) unioned with the session memories from this run.
func resolveChildren(byID map[string]*model.Memory, prior *model.Memory, current []*model.Memory) []*model.Memory {
	seen := make(map[string]bool)
	var children []*model.Memory
	if prior != nil {
		for _, id := range prior.ChildMemoryIDs {
			if c, ok := byID[id]; ok && !seen[id] {
				seen[id] = true
				children = append(children, c)
			}
		}
	}
	for _, c := range current {
		if !seen[c.ID] {
			seen[c.ID] = true
			children = append(children, c)
		}
	}
	return children
}

func aggregateID(prior *model.Memory, newID func() string) string {
	if prior != nil {
		return prior.ID
	}
	return newID()
}
