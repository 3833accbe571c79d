package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/session-insight/internal/model"
)

// timeFormat keeps sub-second precision in the TEXT timestamp columns.
const timeFormat = time.RFC3339Nano

// SQLiteStore persists observations, memories, and long-term memories.
type SQLiteStore struct {
	db      *sql.DB
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// NewID mints a fresh ULID.
func (s *SQLiteStore) NewID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS observations (
		id                 TEXT PRIMARY KEY,
		text               TEXT NOT NULL,
		category           TEXT NOT NULL,
		count              INTEGER NOT NULL DEFAULT 1,
		status             TEXT NOT NULL DEFAULT 'pending',
		source_session_ids TEXT NOT NULL,
		first_seen         TEXT NOT NULL,
		last_seen          TEXT NOT NULL,
		tags               TEXT,
		metadata           TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_observations_category ON observations(category);
	CREATE INDEX IF NOT EXISTS idx_observations_status ON observations(status);

	CREATE TABLE IF NOT EXISTS memories (
		id               TEXT PRIMARY KEY,
		scope            TEXT NOT NULL,
		session_id       TEXT,
		project_id       TEXT,
		observation      TEXT NOT NULL,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL,
		child_memory_ids TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_memories_scope ON memories(scope);
	CREATE INDEX IF NOT EXISTS idx_memories_session ON memories(session_id);
	CREATE INDEX IF NOT EXISTS idx_memories_project ON memories(project_id);

	CREATE TABLE IF NOT EXISTS long_term_memories (
		id          TEXT PRIMARY KEY,
		observation TEXT NOT NULL,
		status      TEXT NOT NULL,
		promoted_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// LoadObservations returns every persisted observation record.
func (s *SQLiteStore) LoadObservations(ctx context.Context) ([]model.Observation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, category, count, status, source_session_ids, first_seen, last_seen, tags, metadata
		 FROM observations ORDER BY first_seen, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var observations []model.Observation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		observations = append(observations, o)
	}
	return observations, rows.Err()
}

// SaveObservations upserts the given records in one transaction. Together
// with LoadObservations and Collection this forms the load, merge, save cycle
// of an analysis run.
func (s *SQLiteStore) SaveObservations(ctx context.Context, observations []model.Observation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, o := range observations {
		sessionIDs, _ := json.Marshal(o.SourceSessionIDs)
		var tagsJSON, metaJSON *string
		if len(o.Tags) > 0 {
			b, _ := json.Marshal(o.Tags)
			v := string(b)
			tagsJSON = &v
		}
		if len(o.Metadata) > 0 {
			b, _ := json.Marshal(o.Metadata)
			v := string(b)
			metaJSON = &v
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO observations (id, text, category, count, status, source_session_ids, first_seen, last_seen, tags, metadata)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				text = excluded.text, category = excluded.category, count = excluded.count,
				status = excluded.status, source_session_ids = excluded.source_session_ids,
				first_seen = excluded.first_seen, last_seen = excluded.last_seen,
				tags = excluded.tags, metadata = excluded.metadata`,
			o.ID, o.Text, string(o.Category), o.Count, string(o.Status), string(sessionIDs),
			o.FirstSeen.UTC().Format(timeFormat), o.LastSeen.UTC().Format(timeFormat), tagsJSON, metaJSON)
		if err != nil {
			return fmt.Errorf("upsert observation %s: %w", o.ID, err)
		}
	}

	return tx.Commit()
}

// UpdateObservationStatus moves a record to the given status.
func (s *SQLiteStore) UpdateObservationStatus(ctx context.Context, id string, status model.Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE observations SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("observation not found: %s", id)
	}
	return nil
}

// LoadMemories returns every persisted memory, erroring on corrupt rows.
func (s *SQLiteStore) LoadMemories(ctx context.Context) ([]*model.Memory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, scope, session_id, project_id, observation, created_at, updated_at, child_memory_ids
		 FROM memories ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []*model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

// GetMemory returns one memory by id.
func (s *SQLiteStore) GetMemory(ctx context.Context, id string) (*model.Memory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, scope, session_id, project_id, observation, created_at, updated_at, child_memory_ids
		 FROM memories WHERE id = ?`, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("memory not found: %s", id)
	}
	return m, err
}

// SaveMemories upserts the given memories in one transaction. Each memory is
// validated first; persisting a record with a missing discriminant would
// plant corruption for a later load to trip over.
func (s *SQLiteStore) SaveMemories(ctx context.Context, memories []*model.Memory) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, m := range memories {
		if err := m.Validate(); err != nil {
			return err
		}
		obsJSON, err := model.EncodeObservation(m.Observation)
		if err != nil {
			return err
		}
		var childJSON *string
		if len(m.ChildMemoryIDs) > 0 {
			b, _ := json.Marshal(m.ChildMemoryIDs)
			v := string(b)
			childJSON = &v
		}
		var sessionID, projectID *string
		if m.SessionID != "" {
			sessionID = &m.SessionID
		}
		if m.ProjectID != "" {
			projectID = &m.ProjectID
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO memories (id, scope, session_id, project_id, observation, created_at, updated_at, child_memory_ids)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				scope = excluded.scope, session_id = excluded.session_id,
				project_id = excluded.project_id, observation = excluded.observation,
				created_at = excluded.created_at, updated_at = excluded.updated_at,
				child_memory_ids = excluded.child_memory_ids`,
			m.ID, string(m.Scope), sessionID, projectID, string(obsJSON),
			m.CreatedAt.UTC().Format(timeFormat), m.UpdatedAt.UTC().Format(timeFormat), childJSON)
		if err != nil {
			return fmt.Errorf("upsert memory %s: %w", m.ID, err)
		}
	}

	return tx.Commit()
}

// SaveLongTerm writes a promotion snapshot. Snapshots are insert-only.
func (s *SQLiteStore) SaveLongTerm(ctx context.Context, ltm *model.LongTermMemory) error {
	obsJSON, err := model.EncodeObservation(ltm.Observation)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO long_term_memories (id, observation, status, promoted_at) VALUES (?, ?, ?, ?)`,
		ltm.ID, string(obsJSON), string(ltm.Status), ltm.PromotedAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("insert long-term memory %s: %w", ltm.ID, err)
	}
	return nil
}

// ListLongTerm returns every promotion snapshot, oldest first.
func (s *SQLiteStore) ListLongTerm(ctx context.Context) ([]model.LongTermMemory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, observation, status, promoted_at FROM long_term_memories ORDER BY promoted_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.LongTermMemory
	for rows.Next() {
		var ltm model.LongTermMemory
		var obsJSON, status, promotedAt string
		if err := rows.Scan(&ltm.ID, &obsJSON, &status, &promotedAt); err != nil {
			return nil, err
		}
		obs, err := model.DecodeObservation([]byte(obsJSON))
		if err != nil {
			return nil, fmt.Errorf("long-term memory %s: %w", ltm.ID, err)
		}
		ltm.Observation = obs
		ltm.Status = model.Status(status)
		ltm.PromotedAt, err = time.Parse(timeFormat, promotedAt)
		if err != nil {
			return nil, fmt.Errorf("long-term memory %s: bad promoted_at: %w", ltm.ID, err)
		}
		out = append(out, ltm)
	}
	return out, rows.Err()
}

// Close closes the store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanObservation(row scanner) (model.Observation, error) {
	var o model.Observation
	var category, status, sessionIDs, firstSeen, lastSeen string
	var tagsJSON, metaJSON sql.NullString

	err := row.Scan(&o.ID, &o.Text, &category, &o.Count, &status, &sessionIDs, &firstSeen, &lastSeen, &tagsJSON, &metaJSON)
	if err != nil {
		return o, err
	}

	o.Category = model.Category(category)
	o.Status = model.Status(status)
	if err := json.Unmarshal([]byte(sessionIDs), &o.SourceSessionIDs); err != nil {
		return o, fmt.Errorf("observation %s: bad source_session_ids: %w", o.ID, err)
	}
	if o.FirstSeen, err = time.Parse(timeFormat, firstSeen); err != nil {
		return o, fmt.Errorf("observation %s: bad first_seen: %w", o.ID, err)
	}
	if o.LastSeen, err = time.Parse(timeFormat, lastSeen); err != nil {
		return o, fmt.Errorf("observation %s: bad last_seen: %w", o.ID, err)
	}
	if tagsJSON.Valid {
		json.Unmarshal([]byte(tagsJSON.String), &o.Tags)
	}
	if metaJSON.Valid {
		json.Unmarshal([]byte(metaJSON.String), &o.Metadata)
	}

	return o, nil
}

func scanMemory(row scanner) (*model.Memory, error) {
	var m model.Memory
	var scope, obsJSON, createdAt, updatedAt string
	var sessionID, projectID, childJSON sql.NullString

	err := row.Scan(&m.ID, &scope, &sessionID, &projectID, &obsJSON, &createdAt, &updatedAt, &childJSON)
	if err != nil {
		return nil, err
	}

	m.Scope = model.Scope(scope)
	if sessionID.Valid {
		m.SessionID = sessionID.String
	}
	if projectID.Valid {
		m.ProjectID = projectID.String
	}
	obs, err := model.DecodeObservation([]byte(obsJSON))
	if err != nil {
		return nil, fmt.Errorf("memory %s: %w", m.ID, err)
	}
	m.Observation = obs
	if m.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("memory %s: bad created_at: %w", m.ID, err)
	}
	if m.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return nil, fmt.Errorf("memory %s: bad updated_at: %w", m.ID, err)
	}
	if childJSON.Valid {
		if err := json.Unmarshal([]byte(childJSON.String), &m.ChildMemoryIDs); err != nil {
			return nil, fmt.Errorf("memory %s: bad child_memory_ids: %w", m.ID, err)
		}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
