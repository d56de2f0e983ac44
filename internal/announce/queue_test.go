package announce

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nooogy1/FantasyPetDiscord/internal/testdb"
)

func newTestQueue(t *testing.T, db *gorm.DB) *Queue {
	t.Helper()
	return NewQueue(QueueParams{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: testdb.Node(t),
	})
}

func TestEnqueueDedupesPendingItems(t *testing.T) {
	db := testdb.Open(t)
	queue := newTestQueue(t, db)
	ctx := context.Background()

	item := NewItem{Kind: KindNewPet, PetCode: "A1000001", ChannelID: "chan-1"}
	for i := 0; i < 3; i++ {
		if err := queue.Enqueue(ctx, item); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	if n := testdb.Count(t, db, `SELECT COUNT(1) FROM announce_queue`); n != 1 {
		t.Fatalf("expected 1 queued item, got %d", n)
	}
}

func TestEnqueueSameKindDifferentChannels(t *testing.T) {
	db := testdb.Open(t)
	queue := newTestQueue(t, db)
	ctx := context.Background()

	if err := queue.Enqueue(ctx, NewItem{Kind: KindNewPet, PetCode: "A1000001", ChannelID: "chan-1"}); err != nil {
		t.Fatalf("enqueue chan-1: %v", err)
	}
	if err := queue.Enqueue(ctx, NewItem{Kind: KindNewPet, PetCode: "A1000001", ChannelID: "chan-2"}); err != nil {
		t.Fatalf("enqueue chan-2: %v", err)
	}

	if n := testdb.Count(t, db, `SELECT COUNT(1) FROM announce_queue`); n != 2 {
		t.Fatalf("expected one item per channel, got %d", n)
	}
}

func TestEnqueueAfterPostStagesFreshItem(t *testing.T) {
	db := testdb.Open(t)
	queue := newTestQueue(t, db)
	ctx := context.Background()

	item := NewItem{Kind: KindCompletedPet, PetCode: "A1000001", ChannelID: "chan-1"}
	if err := queue.Enqueue(ctx, item); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	pending, err := queue.NextPending(ctx, Lane{Kind: KindCompletedPet, ChannelID: "chan-1"})
	if err != nil || pending == nil {
		t.Fatalf("next pending: %v, %v", pending, err)
	}
	if err := queue.MarkPosted(ctx, pending.ID, time.Now().UTC()); err != nil {
		t.Fatalf("mark posted: %v", err)
	}

	// Posting clears the dedupe key, so the same announcement can be
	// staged again later.
	if err := queue.Enqueue(ctx, item); err != nil {
		t.Fatalf("re-enqueue: %v", err)
	}
	if n := testdb.Count(t, db, `SELECT COUNT(1) FROM announce_queue`); n != 2 {
		t.Fatalf("expected posted + fresh item, got %d rows", n)
	}
	if n := testdb.Count(t, db, `SELECT COUNT(1) FROM announce_queue WHERE posted_at IS NULL`); n != 1 {
		t.Fatalf("expected exactly 1 pending item, got %d", n)
	}
}

func TestNextPendingReturnsOldestInLane(t *testing.T) {
	db := testdb.Open(t)
	queue := newTestQueue(t, db)
	ctx := context.Background()

	first := NewItem{Kind: KindNewPet, PetCode: "A1000001", ChannelID: "chan-1"}
	second := NewItem{Kind: KindNewPet, PetCode: "A1000002", ChannelID: "chan-1"}
	if err := queue.Enqueue(ctx, first); err != nil {
		t.Fatalf("enqueue first: %v", err)
	}
	if err := queue.Enqueue(ctx, second); err != nil {
		t.Fatalf("enqueue second: %v", err)
	}

	item, err := queue.NextPending(ctx, Lane{Kind: KindNewPet, ChannelID: "chan-1"})
	if err != nil {
		t.Fatalf("next pending: %v", err)
	}
	if item == nil || item.PetCode != "A1000001" {
		t.Fatalf("expected oldest item first, got %+v", item)
	}
}

func TestNextPendingIgnoresOtherLanes(t *testing.T) {
	db := testdb.Open(t)
	queue := newTestQueue(t, db)
	ctx := context.Background()

	if err := queue.Enqueue(ctx, NewItem{Kind: KindNewPet, PetCode: "A1000001", ChannelID: "chan-1"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	item, err := queue.NextPending(ctx, Lane{Kind: KindAdoption, ChannelID: "adoptions"})
	if err != nil {
		t.Fatalf("next pending: %v", err)
	}
	if item != nil {
		t.Fatalf("expected empty lane, got %+v", item)
	}
}

func TestConsumeStaleRecordsReason(t *testing.T) {
	db := testdb.Open(t)
	queue := newTestQueue(t, db)
	ctx := context.Background()

	if err := queue.Enqueue(ctx, NewItem{Kind: KindNewPet, PetCode: "A1000001", ChannelID: "chan-1"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	item, err := queue.NextPending(ctx, Lane{Kind: KindNewPet, ChannelID: "chan-1"})
	if err != nil || item == nil {
		t.Fatalf("next pending: %v, %v", item, err)
	}

	if err := queue.ConsumeStale(ctx, item.ID, time.Now().UTC(), "no_longer_available"); err != nil {
		t.Fatalf("consume stale: %v", err)
	}

	if n := testdb.Count(t, db, `SELECT COUNT(1) FROM announce_queue WHERE posted_at IS NULL`); n != 0 {
		t.Fatalf("expected no pending items, got %d", n)
	}
	if n := testdb.Count(t, db, `SELECT COUNT(1) FROM announce_queue WHERE last_error = 'no_longer_available'`); n != 1 {
		t.Fatal("expected consumption reason on the row")
	}
}

func TestRecordFailureKeepsItemPending(t *testing.T) {
	db := testdb.Open(t)
	queue := newTestQueue(t, db)
	ctx := context.Background()

	if err := queue.Enqueue(ctx, NewItem{Kind: KindAdoption, PetCode: "A1000001", ChannelID: "adoptions"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	item, err := queue.NextPending(ctx, Lane{Kind: KindAdoption, ChannelID: "adoptions"})
	if err != nil || item == nil {
		t.Fatalf("next pending: %v, %v", item, err)
	}

	if err := queue.RecordFailure(ctx, item.ID, context.DeadlineExceeded); err != nil {
		t.Fatalf("record failure: %v", err)
	}

	again, err := queue.NextPending(ctx, Lane{Kind: KindAdoption, ChannelID: "adoptions"})
	if err != nil {
		t.Fatalf("next pending after failure: %v", err)
	}
	if again == nil || again.ID != item.ID {
		t.Fatal("expected failed item to stay pending")
	}
	if again.Attempts != 1 {
		t.Fatalf("expected 1 attempt recorded, got %d", again.Attempts)
	}
	if again.LastError == "" {
		t.Fatal("expected last_error to carry the send error")
	}
}

func TestPendingLanesListsDistinctPending(t *testing.T) {
	db := testdb.Open(t)
	queue := newTestQueue(t, db)
	ctx := context.Background()

	items := []NewItem{
		{Kind: KindNewPet, PetCode: "A1000001", ChannelID: "chan-1"},
		{Kind: KindNewPet, PetCode: "A1000002", ChannelID: "chan-1"},
		{Kind: KindAdoption, PetCode: "A1000003", ChannelID: "adoptions"},
	}
	for _, item := range items {
		if err := queue.Enqueue(ctx, item); err != nil {
			t.Fatalf("enqueue %+v: %v", item, err)
		}
	}

	lanes, err := queue.PendingLanes(ctx)
	if err != nil {
		t.Fatalf("pending lanes: %v", err)
	}
	if len(lanes) != 2 {
		t.Fatalf("expected 2 lanes, got %d: %+v", len(lanes), lanes)
	}

	// Consuming the adoption item removes its lane from the next listing.
	adoption, err := queue.NextPending(ctx, Lane{Kind: KindAdoption, ChannelID: "adoptions"})
	if err != nil || adoption == nil {
		t.Fatalf("next pending: %v, %v", adoption, err)
	}
	if err := queue.MarkPosted(ctx, adoption.ID, time.Now().UTC()); err != nil {
		t.Fatalf("mark posted: %v", err)
	}
	lanes, err = queue.PendingLanes(ctx)
	if err != nil {
		t.Fatalf("pending lanes: %v", err)
	}
	if len(lanes) != 1 || lanes[0].Key() != "new_pet|chan-1" {
		t.Fatalf("expected only the new_pet lane, got %+v", lanes)
	}
}

func TestPendingCountsCoversEveryKind(t *testing.T) {
	db := testdb.Open(t)
	queue := newTestQueue(t, db)
	ctx := context.Background()

	if err := queue.Enqueue(ctx, NewItem{Kind: KindNewPet, PetCode: "A1000001", ChannelID: "chan-1"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	counts, err := queue.PendingCounts(ctx)
	if err != nil {
		t.Fatalf("pending counts: %v", err)
	}
	for _, kind := range Kinds {
		if _, ok := counts[kind]; !ok {
			t.Fatalf("expected count entry for %s", kind)
		}
	}
	if counts[KindNewPet] != 1 || counts[KindAdoption] != 0 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}
