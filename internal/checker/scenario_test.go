package checker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nooogy1/FantasyPetDiscord/internal/announce"
	"github.com/nooogy1/FantasyPetDiscord/internal/clock"
	leagueservice "github.com/nooogy1/FantasyPetDiscord/internal/league/service"
	"github.com/nooogy1/FantasyPetDiscord/internal/notify"
	petrepository "github.com/nooogy1/FantasyPetDiscord/internal/pet/repository"
	"github.com/nooogy1/FantasyPetDiscord/internal/testdb"
)

type notifySend struct {
	target  notify.Target
	content string
}

type scenarioNotifier struct {
	mu    sync.Mutex
	sends []notifySend
}

func (n *scenarioNotifier) Send(_ context.Context, target notify.Target, content string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sends = append(n.sends, notifySend{target: target, content: content})
	return nil
}

func (n *scenarioNotifier) sent() []notifySend {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notifySend, len(n.sends))
	copy(out, n.sends)
	return out
}

type lifecycleEnv struct {
	*checkerEnv
	drainer  *announce.Drainer
	notifier *scenarioNotifier
}

// newLifecycleEnv pairs a checker with a drainer on the same database
// and state store, the way the running process wires them.
func newLifecycleEnv(t *testing.T) *lifecycleEnv {
	t.Helper()
	env := newCheckerEnv(t)

	cfg := env.cfg
	cfg.BroadcastStartHour = 0
	cfg.BroadcastEndHour = 0
	cfg.BroadcastTimezone = "UTC"
	cfg.AdoptionWebhookURL = "https://hooks.example.org/adoptions"

	notifier := &scenarioNotifier{}
	drainer := announce.NewDrainer(announce.DrainerParams{
		DB:    env.db,
		Log:   zap.NewNop(),
		Queue: announce.NewQueue(announce.QueueParams{DB: env.db, Log: zap.NewNop(), GenID: testdb.Node(t)}),
		Pets:  petrepository.Provide(),
		Leagues: leagueservice.NewService(leagueservice.ServiceParam{
			DB:    env.db,
			Log:   zap.NewNop(),
			GenID: testdb.Node(t),
		}),
		Store:    env.store,
		Notifier: notifier,
		Clock:    &clock.Fixed{At: time.Now().UTC()},
		Config:   cfg,
	})

	return &lifecycleEnv{checkerEnv: env, drainer: drainer, notifier: notifier}
}

func (e *lifecycleEnv) drain(t *testing.T) []notifySend {
	t.Helper()
	if err := e.drainer.RunOnce(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
	return e.notifier.sent()
}

// TestShelterLifecycleEndToEnd walks one pet through the whole arc:
// intake as a bare stub, the arrival post, profile completion and its
// follow-up, two claims, removal, the awards and the adoption post.
func TestShelterLifecycleEndToEnd(t *testing.T) {
	photoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer photoServer.Close()

	env := newLifecycleEnv(t)
	testdb.InsertLeague(t, env.db, 100, "main", "chan-1", "https://hooks.example.org/main")
	testdb.InsertUser(t, env.db, "user-alice", "Alice")
	testdb.InsertUser(t, env.db, "user-bob", "Bob")
	testdb.InsertBreedValue(t, env.db, "beagle", 3)
	env.runCycle(t) // baseline over an empty shelter

	// Intake lists the pet before staff named or photographed it.
	testdb.InsertPet(t, env.db, "A1000001", "", "beagle", "available", env.cfg.PhotoSentinelURL)
	summary := env.runCycle(t)
	if summary.NewlySeen != 1 || summary.Enqueued != 1 {
		t.Fatalf("expected one staged arrival, got %+v", summary)
	}

	sends := env.drain(t)
	if len(sends) != 1 {
		t.Fatalf("expected the arrival posted, got %d sends", len(sends))
	}
	if !strings.Contains(sends[0].content, "New arrival: A1000001") ||
		!strings.Contains(sends[0].content, "/claim A1000001") {
		t.Fatalf("unexpected arrival content: %q", sends[0].content)
	}
	if sends[0].target.WebhookURL != "https://hooks.example.org/main" {
		t.Fatalf("expected league webhook, got %q", sends[0].target.WebhookURL)
	}

	// Staff fills in the profile. The next cycle stages the follow-up
	// without mistaking the known stub for a fresh arrival.
	photoURL := photoServer.URL + "/clover.jpg"
	if err := env.db.Exec(`UPDATE pets SET name = 'Clover', photo_url = ? WHERE code = 'A1000001'`, photoURL).Error; err != nil {
		t.Fatalf("complete profile: %v", err)
	}
	summary = env.runCycle(t)
	if summary.NewlyComplete != 1 || summary.NewlySeen != 0 {
		t.Fatalf("expected one completed profile, got %+v", summary)
	}

	sends = env.drain(t)
	if len(sends) != 2 {
		t.Fatalf("expected the follow-up posted, got %d sends", len(sends))
	}
	if !strings.Contains(sends[1].content, "Clover (A1000001) now has a name and photo") {
		t.Fatalf("unexpected follow-up content: %q", sends[1].content)
	}

	// Two players draft the pet, then it leaves the shelter.
	testdb.InsertClaim(t, env.db, 1, 100, "user-alice", "A1000001")
	testdb.InsertClaim(t, env.db, 2, 100, "user-bob", "A1000001")
	if err := env.db.Exec(`UPDATE pets SET status = 'removed' WHERE code = 'A1000001'`).Error; err != nil {
		t.Fatalf("remove pet: %v", err)
	}
	summary = env.runCycle(t)
	if summary.Adoptions != 1 || summary.PointsAwarded != 6 {
		t.Fatalf("expected both claims awarded 3 points each, got %+v", summary)
	}
	if n := testdb.Count(t, env.db, `SELECT COUNT(1) FROM roster_entries`); n != 0 {
		t.Fatalf("expected claims consumed, got %d", n)
	}

	sends = env.drain(t)
	if len(sends) != 3 {
		t.Fatalf("expected the adoption posted, got %d sends", len(sends))
	}
	adoption := sends[2]
	if adoption.target.ChannelID != "adoptions" {
		t.Fatalf("expected the global adoption lane, got %q", adoption.target.ChannelID)
	}
	if !strings.Contains(adoption.content, "Clover (A1000001) found a home!") ||
		!strings.Contains(adoption.content, "Alice scores 3 points in Main") ||
		!strings.Contains(adoption.content, "Bob scores 3 points in Main") {
		t.Fatalf("unexpected adoption content: %q", adoption.content)
	}

	// Everything settled: later cycles and drains stay quiet.
	summary = env.runCycle(t)
	if summary.NewlySeen+summary.NewlyComplete+summary.Removed != 0 {
		t.Fatalf("expected a quiet cycle, got %+v", summary)
	}
	if sends = env.drain(t); len(sends) != 3 {
		t.Fatalf("expected no further posts, got %d sends", len(sends))
	}
	if n := testdb.Count(t, env.db, `SELECT COUNT(1) FROM announce_queue WHERE posted_at IS NULL`); n != 0 {
		t.Fatalf("expected queue fully drained, %d pending", n)
	}
	if n := testdb.Count(t, env.db, `SELECT COUNT(1) FROM pets WHERE code = 'A1000001' AND adopted_announced`); n != 1 {
		t.Fatal("expected adopted_announced flag set")
	}
	if counters := env.store.Counters(); counters.TotalAdoptions != 1 || counters.TotalPointsAwarded != 6 {
		t.Fatalf("unexpected counters: %+v", counters)
	}
}
