package announce

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NewItem describes an announcement to stage.
type NewItem struct {
	Kind      string
	PetCode   string
	ChannelID string
	LeagueID  *snowflake.ID
	Payload   datatypes.JSONMap
}

// Queue is the durable announcement store. Enqueue is an idempotent
// set-insert: at most one pending item exists per (kind, pet, channel).
type Queue struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

type QueueParams struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

func NewQueue(p QueueParams) *Queue {
	return &Queue{
		db:    p.DB,
		log:   p.Log.Named("announce.queue"),
		genID: p.GenID,
	}
}

// Enqueue stages an announcement. Duplicate (kind, pet, channel)
// tuples are silently dropped while the first is still pending.
func (q *Queue) Enqueue(ctx context.Context, item NewItem) error {
	kind := strings.TrimSpace(item.Kind)
	petCode := strings.TrimSpace(item.PetCode)
	if kind == "" || petCode == "" {
		return gorm.ErrInvalidData
	}

	payload := item.Payload
	if payload == nil {
		payload = datatypes.JSONMap{}
	}
	dedupe := kind + "|" + petCode + "|" + item.ChannelID

	return q.db.WithContext(ctx).Exec(
		`INSERT INTO announce_queue (id, kind, pet_code, channel_id, league_id, payload, dedupe_key, attempts, enqueued_at, last_error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, '')
		 ON CONFLICT (dedupe_key) DO NOTHING`,
		q.genID.Generate(),
		kind,
		petCode,
		item.ChannelID,
		item.LeagueID,
		payload,
		dedupe,
		time.Now().UTC(),
	).Error
}

// PendingLanes lists every (kind, channel) pair with at least one
// pending item, in stable order.
func (q *Queue) PendingLanes(ctx context.Context) ([]Lane, error) {
	var lanes []Lane
	err := q.db.WithContext(ctx).Raw(
		`SELECT DISTINCT kind, channel_id
		 FROM announce_queue
		 WHERE posted_at IS NULL
		 ORDER BY kind, channel_id`,
	).Scan(&lanes).Error
	if err != nil {
		return nil, err
	}
	return lanes, nil
}

// NextPending returns the oldest pending item in a lane, or nil.
func (q *Queue) NextPending(ctx context.Context, lane Lane) (*Item, error) {
	var items []Item
	err := q.db.WithContext(ctx).Raw(
		`SELECT id, kind, pet_code, channel_id, league_id, payload, dedupe_key,
		        attempts, enqueued_at, posted_at, last_error
		 FROM announce_queue
		 WHERE kind = ? AND channel_id = ? AND posted_at IS NULL
		 ORDER BY enqueued_at ASC, id ASC
		 LIMIT 1`,
		lane.Kind,
		lane.ChannelID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// MarkPosted consumes an item after a successful emission and frees its
// dedupe key for any future re-announcement of the same pet.
func (q *Queue) MarkPosted(ctx context.Context, id snowflake.ID, at time.Time) error {
	return q.db.WithContext(ctx).Exec(
		`UPDATE announce_queue
		 SET posted_at = ?, dedupe_key = NULL, last_error = ''
		 WHERE id = ?`,
		at.UTC(),
		id,
	).Error
}

// ConsumeStale consumes an item that failed re-validation without
// emitting it. Expected steady-state behavior, not an error.
func (q *Queue) ConsumeStale(ctx context.Context, id snowflake.ID, at time.Time, reason string) error {
	return q.db.WithContext(ctx).Exec(
		`UPDATE announce_queue
		 SET posted_at = ?, dedupe_key = NULL, last_error = ?
		 WHERE id = ?`,
		at.UTC(),
		reason,
		id,
	).Error
}

// RecordFailure keeps a delivery failure pending for the next cycle.
func (q *Queue) RecordFailure(ctx context.Context, id snowflake.ID, sendErr error) error {
	message := ""
	if sendErr != nil {
		message = sendErr.Error()
	}
	return q.db.WithContext(ctx).Exec(
		`UPDATE announce_queue
		 SET attempts = attempts + 1, last_error = ?
		 WHERE id = ?`,
		message,
		id,
	).Error
}

// PendingCounts returns the pending backlog per kind, with zero rows
// for kinds that have none.
func (q *Queue) PendingCounts(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Kind  string `gorm:"column:kind"`
		Total int64  `gorm:"column:total"`
	}
	err := q.db.WithContext(ctx).Raw(
		`SELECT kind, COUNT(1) AS total
		 FROM announce_queue
		 WHERE posted_at IS NULL
		 GROUP BY kind`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(Kinds))
	for _, kind := range Kinds {
		counts[kind] = 0
	}
	for _, row := range rows {
		counts[row.Kind] = row.Total
	}
	return counts, nil
}
