package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	scoredomain "github.com/nooogy1/FantasyPetDiscord/internal/score/domain"
	"github.com/nooogy1/FantasyPetDiscord/internal/testdb"
)

func TestProcessRemovalsAwardsEveryClaim(t *testing.T) {
	db := testdb.Open(t)
	svc := newTestService(t, db)

	testdb.InsertLeague(t, db, 100, "league-x", "chan-x", "")
	testdb.InsertUser(t, db, "user-a", "Alice")
	testdb.InsertUser(t, db, "user-b", "Bob")
	testdb.InsertClaim(t, db, 1, 100, "user-a", "A1000001")
	testdb.InsertClaim(t, db, 2, 100, "user-b", "A1000001")
	testdb.InsertBreedValue(t, db, "labrador", 3)

	outcomes := svc.ProcessRemovals(context.Background(), []scoredomain.Removal{
		{PetCode: "A1000001", PetName: "Buddy", Breed: "Labrador"},
	})

	if len(outcomes) != 1 {
		t.Fatalf("expected one outcome, got %d", len(outcomes))
	}
	outcome := outcomes[0]
	if outcome.Failed() {
		t.Fatalf("unexpected failure: %v", outcome.Err)
	}
	if len(outcome.Awards) != 2 || outcome.PointsEach != 3 || outcome.PointsTotal() != 6 {
		t.Fatalf("unexpected awards: %+v", outcome)
	}
	if outcome.Awards[0].UserDisplayName != "Alice" || outcome.Awards[0].LeagueSlug != "league-x" {
		t.Fatalf("award missing display data: %+v", outcome.Awards[0])
	}

	if n := testdb.Count(t, db, `SELECT COUNT(1) FROM score_records WHERE pet_code = ?`, "A1000001"); n != 2 {
		t.Fatalf("expected 2 score records, got %d", n)
	}
	if n := testdb.Count(t, db, `SELECT COUNT(1) FROM roster_entries WHERE pet_code = ?`, "A1000001"); n != 0 {
		t.Fatalf("claims must be consumed on adoption, %d remain", n)
	}
	assertTotalMatchesSum(t, db, 100, "user-a")
	assertTotalMatchesSum(t, db, 100, "user-b")
}

func TestProcessRemovalsZeroClaimsIsValid(t *testing.T) {
	db := testdb.Open(t)
	svc := newTestService(t, db)

	outcomes := svc.ProcessRemovals(context.Background(), []scoredomain.Removal{
		{PetCode: "A1000001", PetName: "Buddy", Breed: "Labrador"},
	})

	if outcomes[0].Failed() {
		t.Fatalf("zero claims must not be an error: %v", outcomes[0].Err)
	}
	if len(outcomes[0].Awards) != 0 {
		t.Fatalf("expected no awards, got %+v", outcomes[0].Awards)
	}
}

func TestProcessRemovalsIsIdempotent(t *testing.T) {
	db := testdb.Open(t)
	svc := newTestService(t, db)

	testdb.InsertLeague(t, db, 100, "league-x", "chan-x", "")
	testdb.InsertUser(t, db, "user-a", "Alice")
	testdb.InsertClaim(t, db, 1, 100, "user-a", "A1000001")

	removals := []scoredomain.Removal{{PetCode: "A1000001", PetName: "Buddy", Breed: "Labrador"}}

	first := svc.ProcessRemovals(context.Background(), removals)
	if first[0].Failed() || len(first[0].Awards) != 1 {
		t.Fatalf("first run should award once: %+v", first[0])
	}

	// Claims were consumed, so a restart replaying the same removal
	// must award nothing and report success.
	second := svc.ProcessRemovals(context.Background(), removals)
	if second[0].Failed() {
		t.Fatalf("replay must not error: %v", second[0].Err)
	}
	if len(second[0].Awards) != 0 {
		t.Fatalf("replay must not award again: %+v", second[0].Awards)
	}
	if n := testdb.Count(t, db, `SELECT COUNT(1) FROM score_records`); n != 1 {
		t.Fatalf("expected exactly 1 score record after replay, got %d", n)
	}
}

func TestProcessRemovalsUnknownBreedDefaultsToOne(t *testing.T) {
	db := testdb.Open(t)
	svc := newTestService(t, db)

	testdb.InsertLeague(t, db, 100, "league-x", "chan-x", "")
	testdb.InsertUser(t, db, "user-a", "Alice")
	testdb.InsertClaim(t, db, 1, 100, "user-a", "A1000001")

	outcomes := svc.ProcessRemovals(context.Background(), []scoredomain.Removal{
		{PetCode: "A1000001", PetName: "Mystery", Breed: "chupacabra"},
	})
	if outcomes[0].PointsEach != scoredomain.DefaultBreedPoints {
		t.Fatalf("expected default points, got %d", outcomes[0].PointsEach)
	}
}

func TestProcessRemovalsIsolatesPerClaimFailure(t *testing.T) {
	db := testdb.Open(t)
	svc := newTestService(t, db)

	testdb.InsertLeague(t, db, 100, "league-x", "chan-x", "")
	testdb.InsertUser(t, db, "user-a", "Alice")
	testdb.InsertUser(t, db, "user-b", "Bob")
	testdb.InsertClaim(t, db, 1, 100, "user-a", "A1000001")
	testdb.InsertClaim(t, db, 2, 100, "user-b", "A1000001")

	// A pre-existing record trips the (league, user, pet) uniqueness
	// constraint for Alice only.
	if err := db.Exec(
		`INSERT INTO score_records (id, league_id, user_id, pet_code, points, source, note, awarded_at)
		 VALUES (999, 100, 'user-a', 'A1000001', 5, 'adoption', '', CURRENT_TIMESTAMP)`,
	).Error; err != nil {
		t.Fatalf("insert conflicting record: %v", err)
	}

	outcomes := svc.ProcessRemovals(context.Background(), []scoredomain.Removal{
		{PetCode: "A1000001", PetName: "Buddy", Breed: "Labrador"},
	})

	outcome := outcomes[0]
	if outcome.Failed() {
		t.Fatalf("per-claim failure must not fail the pet: %v", outcome.Err)
	}
	if outcome.FailedClaims != 1 || len(outcome.Awards) != 1 || outcome.Awards[0].UserID != "user-b" {
		t.Fatalf("expected Bob's award to survive Alice's failure: %+v", outcome)
	}
	// One award succeeded, so all claims are still consumed.
	if n := testdb.Count(t, db, `SELECT COUNT(1) FROM roster_entries WHERE pet_code = ?`, "A1000001"); n != 0 {
		t.Fatalf("claims must be consumed, %d remain", n)
	}
	assertTotalMatchesSum(t, db, 100, "user-b")
}

func TestProcessRemovalsRollsBackWholePetAndRetries(t *testing.T) {
	db := testdb.Open(t)
	svc := newTestService(t, db)

	testdb.InsertLeague(t, db, 100, "league-x", "chan-x", "")
	testdb.InsertUser(t, db, "user-a", "Alice")
	testdb.InsertClaim(t, db, 1, 100, "user-a", "A1000001")

	// Force the claim-deletion step to fail after score inserts.
	if err := db.Exec(
		`CREATE TRIGGER block_claim_delete BEFORE DELETE ON roster_entries
		 BEGIN SELECT RAISE(ABORT, 'claim delete blocked'); END`,
	).Error; err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	removals := []scoredomain.Removal{{PetCode: "A1000001", PetName: "Buddy", Breed: "Labrador"}}
	outcomes := svc.ProcessRemovals(context.Background(), removals)
	if !outcomes[0].Failed() {
		t.Fatal("expected transaction failure")
	}
	if len(outcomes[0].Awards) != 0 {
		t.Fatalf("rolled-back transaction must not report awards: %+v", outcomes[0].Awards)
	}
	if n := testdb.Count(t, db, `SELECT COUNT(1) FROM score_records`); n != 0 {
		t.Fatalf("rollback must leave zero score records, got %d", n)
	}
	if n := testdb.Count(t, db, `SELECT COUNT(1) FROM roster_entries`); n != 1 {
		t.Fatalf("rollback must keep claims, got %d", n)
	}
	if n := testdb.Count(t, db, `SELECT COUNT(1) FROM leaderboard_totals`); n != 0 {
		t.Fatalf("rollback must leave no totals, got %d", n)
	}

	// Claims survived, so the next cycle retries and succeeds.
	if err := db.Exec(`DROP TRIGGER block_claim_delete`).Error; err != nil {
		t.Fatalf("drop trigger: %v", err)
	}
	retried := svc.ProcessRemovals(context.Background(), removals)
	if retried[0].Failed() || len(retried[0].Awards) != 1 {
		t.Fatalf("retry should award: %+v", retried[0])
	}
	if n := testdb.Count(t, db, `SELECT COUNT(1) FROM roster_entries`); n != 0 {
		t.Fatalf("claims must be consumed after retry, got %d", n)
	}
}

func TestProcessRemovalsFailureIsolatedPerPet(t *testing.T) {
	db := testdb.Open(t)
	svc := newTestService(t, db)

	testdb.InsertLeague(t, db, 100, "league-x", "chan-x", "")
	testdb.InsertUser(t, db, "user-a", "Alice")
	testdb.InsertClaim(t, db, 1, 100, "user-a", "A1000001")
	testdb.InsertClaim(t, db, 2, 100, "user-a", "A1000002")

	if err := db.Exec(
		`CREATE TRIGGER block_first_pet BEFORE DELETE ON roster_entries
		 WHEN OLD.pet_code = 'A1000001'
		 BEGIN SELECT RAISE(ABORT, 'blocked'); END`,
	).Error; err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	outcomes := svc.ProcessRemovals(context.Background(), []scoredomain.Removal{
		{PetCode: "A1000001", PetName: "Buddy", Breed: "Labrador"},
		{PetCode: "A1000002", PetName: "Max", Breed: "Beagle"},
	})

	if !outcomes[0].Failed() {
		t.Fatal("expected first pet to fail")
	}
	if outcomes[1].Failed() || len(outcomes[1].Awards) != 1 {
		t.Fatalf("second pet must commit despite sibling failure: %+v", outcomes[1])
	}
	if n := testdb.Count(t, db, `SELECT COUNT(1) FROM score_records WHERE pet_code = 'A1000002'`); n != 1 {
		t.Fatalf("expected second pet's record to survive, got %d", n)
	}
}

func TestLeaderboardTotalEqualsRecordSum(t *testing.T) {
	db := testdb.Open(t)
	svc := newTestService(t, db)

	testdb.InsertLeague(t, db, 100, "league-x", "chan-x", "")
	testdb.InsertUser(t, db, "user-a", "Alice")
	testdb.InsertBreedValue(t, db, "labrador", 3)
	testdb.InsertBreedValue(t, db, "beagle", 2)
	testdb.InsertClaim(t, db, 1, 100, "user-a", "A1000001")
	testdb.InsertClaim(t, db, 2, 100, "user-a", "A1000002")

	svc.ProcessRemovals(context.Background(), []scoredomain.Removal{
		{PetCode: "A1000001", PetName: "Buddy", Breed: "labrador"},
	})
	assertTotalMatchesSum(t, db, 100, "user-a")

	svc.ProcessRemovals(context.Background(), []scoredomain.Removal{
		{PetCode: "A1000002", PetName: "Max", Breed: "beagle"},
	})
	assertTotalMatchesSum(t, db, 100, "user-a")

	rows, err := svc.Top(context.Background(), 100, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(rows) != 1 || rows[0].Points != 5 || rows[0].Rank != 1 || rows[0].DisplayName != "Alice" {
		t.Fatalf("unexpected leaderboard: %+v", rows)
	}
}

func TestRebuildRestoresTamperedTotals(t *testing.T) {
	db := testdb.Open(t)
	svc := newTestService(t, db)

	testdb.InsertLeague(t, db, 100, "league-x", "chan-x", "")
	testdb.InsertUser(t, db, "user-a", "Alice")
	testdb.InsertClaim(t, db, 1, 100, "user-a", "A1000001")
	testdb.InsertBreedValue(t, db, "labrador", 3)

	svc.ProcessRemovals(context.Background(), []scoredomain.Removal{
		{PetCode: "A1000001", PetName: "Buddy", Breed: "labrador"},
	})

	if err := db.Exec(`UPDATE leaderboard_totals SET points = 9999`).Error; err != nil {
		t.Fatalf("tamper: %v", err)
	}

	rebuilt, err := svc.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if rebuilt != 1 {
		t.Fatalf("expected 1 rebuilt row, got %d", rebuilt)
	}
	assertTotalMatchesSum(t, db, 100, "user-a")
}

func TestSweepOrphansDropsRecordsOfDeletedLeagues(t *testing.T) {
	db := testdb.Open(t)
	svc := newTestService(t, db)

	testdb.InsertLeague(t, db, 100, "league-x", "chan-x", "")
	if err := db.Exec(
		`INSERT INTO score_records (id, league_id, user_id, pet_code, points, source, note, awarded_at)
		 VALUES (1, 100, 'user-a', 'A1000001', 3, 'adoption', '', CURRENT_TIMESTAMP),
		        (2, 999, 'user-a', 'A1000002', 4, 'adoption', '', CURRENT_TIMESTAMP)`,
	).Error; err != nil {
		t.Fatalf("seed records: %v", err)
	}

	report, err := svc.SweepOrphans(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if report.RecordsDeleted != 1 {
		t.Fatalf("expected 1 orphan deleted, got %d", report.RecordsDeleted)
	}
	if report.TotalsRebuilt != 1 {
		t.Fatalf("expected 1 total rebuilt, got %d", report.TotalsRebuilt)
	}
	if n := testdb.Count(t, db, `SELECT COUNT(1) FROM score_records`); n != 1 {
		t.Fatalf("expected 1 surviving record, got %d", n)
	}
	assertTotalMatchesSum(t, db, 100, "user-a")
}

func TestHistoryForUserFiltersByLeague(t *testing.T) {
	db := testdb.Open(t)
	svc := newTestService(t, db)

	testdb.InsertLeague(t, db, 100, "league-x", "chan-x", "")
	testdb.InsertLeague(t, db, 200, "league-y", "chan-y", "")
	testdb.InsertPet(t, db, "A1000001", "Buddy", "labrador", "removed", "")
	if err := db.Exec(
		`INSERT INTO score_records (id, league_id, user_id, pet_code, points, source, note, awarded_at)
		 VALUES (1, 100, 'user-a', 'A1000001', 3, 'adoption', 'Buddy', CURRENT_TIMESTAMP),
		        (2, 200, 'user-a', 'A1000001', 3, 'adoption', 'Buddy', CURRENT_TIMESTAMP)`,
	).Error; err != nil {
		t.Fatalf("seed records: %v", err)
	}

	all, err := svc.HistoryForUser(context.Background(), "user-a", nil)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(all))
	}
	if all[0].PetName != "Buddy" {
		t.Fatalf("expected pet name join, got %+v", all[0])
	}

	filter := snowflake.ID(100)
	only, err := svc.HistoryForUser(context.Background(), "user-a", &filter)
	if err != nil {
		t.Fatalf("filtered history: %v", err)
	}
	if len(only) != 1 || only[0].LeagueSlug != "league-x" {
		t.Fatalf("expected league-x entry only, got %+v", only)
	}
}

func TestBreedPointsCachesLookups(t *testing.T) {
	db := testdb.Open(t)
	svc := newTestService(t, db)

	testdb.InsertBreedValue(t, db, "labrador", 3)
	if got := svc.BreedPoints(context.Background(), "Labrador"); got != 3 {
		t.Fatalf("expected 3 points, got %d", got)
	}

	// The cached value survives an underlying update until the TTL
	// lapses, which is the accepted staleness for reference data.
	if err := db.Exec(`UPDATE breed_values SET points = 7 WHERE breed = 'labrador'`).Error; err != nil {
		t.Fatalf("update breed: %v", err)
	}
	if got := svc.BreedPoints(context.Background(), "labrador"); got != 3 {
		t.Fatalf("expected cached 3 points, got %d", got)
	}
}

func newTestService(t *testing.T, db *gorm.DB) scoredomain.Service {
	t.Helper()
	return NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: testdb.Node(t),
	})
}

func assertTotalMatchesSum(t *testing.T, db *gorm.DB, leagueID int64, userID string) {
	t.Helper()
	total := testdb.Count(t, db,
		`SELECT COALESCE(points, 0) FROM leaderboard_totals WHERE league_id = ? AND user_id = ?`,
		leagueID, userID,
	)
	sum := testdb.Count(t, db,
		`SELECT COALESCE(SUM(points), 0) FROM score_records WHERE league_id = ? AND user_id = ?`,
		leagueID, userID,
	)
	if total != sum {
		t.Fatalf("leaderboard total %d != record sum %d for user %s", total, sum, userID)
	}
}
