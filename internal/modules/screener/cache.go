package screener

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Snapshot is the latest normalized scan, cached so restarts can serve
// results before the first refresh completes.
type Snapshot struct {
	TakenAt       time.Time               `msgpack:"taken_at"`
	Opportunities []NormalizedOpportunity `msgpack:"opportunities"`
}

// SnapshotStore persists the latest scan snapshot in the cache database.
// The payload is a msgpack blob; the cache profile trades durability for
// speed since snapshots are rebuilt on the next refresh anyway.
type SnapshotStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSnapshotStore creates the store and ensures its table exists
func NewSnapshotStore(db *sql.DB, log zerolog.Logger) (*SnapshotStore, error) {
	s := &SnapshotStore{
		db:  db,
		log: log.With().Str("repository", "scan_snapshots").Logger(),
	}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SnapshotStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS scan_snapshots (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			taken_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create scan_snapshots table: %w", err)
	}
	return nil
}

// Save replaces the cached snapshot
func (s *SnapshotStore) Save(snapshot *Snapshot) error {
	payload, err := msgpack.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode scan snapshot: %w", err)
	}

	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO scan_snapshots (id, taken_at, payload) VALUES (1, ?, ?)",
		snapshot.TakenAt.Unix(), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save scan snapshot: %w", err)
	}

	s.log.Debug().Int("opportunities", len(snapshot.Opportunities)).Msg("Scan snapshot saved")
	return nil
}

// Load returns the cached snapshot, or nil when none exists
func (s *SnapshotStore) Load() (*Snapshot, error) {
	var payload []byte
	err := s.db.QueryRow("SELECT payload FROM scan_snapshots WHERE id = 1").Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scan snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := msgpack.Unmarshal(payload, &snapshot); err != nil {
		// A corrupt cache entry is not fatal: treat as empty
		s.log.Warn().Err(err).Msg("Discarding unreadable scan snapshot")
		return nil, nil
	}
	return &snapshot, nil
}
