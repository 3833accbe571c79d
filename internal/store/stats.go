package store

import (
	"context"

	"github.com/rcliao/session-insight/internal/model"
)

// Stats summarizes the store contents.
type Stats struct {
	Observations         int                  `json:"observations"`
	ObservationsByStatus map[model.Status]int `json:"observationsByStatus,omitempty"`
	MemoriesByScope      map[model.Scope]int  `json:"memoriesByScope,omitempty"`
	LongTermMemories     int                  `json:"longTermMemories"`
}

// Stats computes record counts across the three tables.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{
		ObservationsByStatus: make(map[model.Status]int),
		MemoriesByScope:      make(map[model.Scope]int),
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM observations GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		st.ObservationsByStatus[model.Status(status)] = n
		st.Observations += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	scopeRows, err := s.db.QueryContext(ctx, `SELECT scope, COUNT(*) FROM memories GROUP BY scope`)
	if err != nil {
		return nil, err
	}
	defer scopeRows.Close()
	for scopeRows.Next() {
		var scope string
		var n int
		if err := scopeRows.Scan(&scope, &n); err != nil {
			return nil, err
		}
		st.MemoriesByScope[model.Scope(scope)] = n
	}
	if err := scopeRows.Err(); err != nil {
		return nil, err
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM long_term_memories`).Scan(&st.LongTermMemories); err != nil {
		return nil, err
	}

	return st, nil
}
