package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// snapshotKey identifies the single bot_state row this process owns.
const snapshotKey = "primary"

// Store serializes snapshot access between the check and drain cycles
// and persists every mutation as one atomic row upsert. Mutations are
// applied to a copy first and only installed in memory once the row is
// written, so a failed save leaves both the database and the in-memory
// view on the previous snapshot.
type Store struct {
	db  *gorm.DB
	log *zap.Logger

	mu   sync.Mutex
	snap Snapshot
}

type StoreParams struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

// NewStore constructs the store. Load must run before the first cycle.
func NewStore(p StoreParams) *Store {
	return &Store{
		db:  p.DB,
		log: p.Log.Named("state"),
		snap: Snapshot{
			LaneMarks: make(map[string]time.Time),
		},
	}
}

// Load reads the persisted snapshot. A missing row is a first boot, not
// an error.
func (s *Store) Load(ctx context.Context) error {
	var row struct {
		Data []byte `gorm:"column:data"`
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT data FROM bot_state WHERE id = ?`,
		snapshotKey,
	).Scan(&row).Error
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(row.Data) == 0 {
		s.snap = Snapshot{LaneMarks: make(map[string]time.Time)}
		s.log.Info("no snapshot found, starting fresh")
		return nil
	}

	var snap Snapshot
	if err := json.Unmarshal(row.Data, &snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.LaneMarks == nil {
		snap.LaneMarks = make(map[string]time.Time)
	}
	s.snap = snap
	s.log.Info("snapshot loaded",
		zap.Int("pets", len(snap.Pets)),
		zap.Int64("total_checks", snap.Counters.TotalChecks),
	)
	return nil
}

// View returns a copy of the current snapshot. Callers may keep it for
// the duration of a cycle without holding the store lock.
func (s *Store) View() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.clone()
}

// Counters returns the lifetime counters.
func (s *Store) Counters() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Counters
}

// LaneMark returns the last emission time recorded for a lane.
func (s *Store) LaneMark(lane string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mark, ok := s.snap.LaneMarks[lane]
	return mark, ok
}

// ReplacePopulation installs the population observed by a completed
// check cycle, applies the cycle's counter deltas and persists.
func (s *Store) ReplacePopulation(ctx context.Context, pets []PetRecord, delta Counters) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snap.clone()
	next.Pets = make([]PetRecord, len(pets))
	copy(next.Pets, pets)
	next.Counters.add(delta)

	if err := s.persistLocked(ctx, next); err != nil {
		return err
	}
	s.snap = next
	return nil
}

// RecordLaneMark notes an emission on a lane so spacing can be enforced
// across restarts, and persists.
func (s *Store) RecordLaneMark(ctx context.Context, lane string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snap.clone()
	next.LaneMarks[lane] = at.UTC()

	if err := s.persistLocked(ctx, next); err != nil {
		return err
	}
	s.snap = next
	return nil
}

func (s *Store) persistLocked(ctx context.Context, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	err = s.db.WithContext(ctx).Exec(
		`INSERT INTO bot_state (id, data, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		snapshotKey,
		payload,
		time.Now().UTC(),
	).Error
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}
