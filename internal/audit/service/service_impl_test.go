package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/nooogy1/FantasyPetDiscord/internal/audit/domain"
	auditrepository "github.com/nooogy1/FantasyPetDiscord/internal/audit/repository"
	"github.com/nooogy1/FantasyPetDiscord/internal/testdb"
)

func newAuditService(t *testing.T) (auditdomain.Service, *gorm.DB) {
	t.Helper()
	db := testdb.Open(t)
	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		Repo:  auditrepository.Provide(),
		GenID: testdb.Node(t),
	})
	return svc, db
}

func TestRecordFillsDefaults(t *testing.T) {
	svc, db := newAuditService(t)

	err := svc.Record(context.Background(), auditdomain.Entry{
		Action:     auditdomain.ActionCheckTriggered,
		TargetType: "check",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	rows, err := svc.List(context.Background(), auditdomain.ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	rec := rows[0]
	if rec.ID == 0 {
		t.Fatal("expected generated id")
	}
	if rec.ActorType != string(auditdomain.ActorTypeSystem) {
		t.Fatalf("expected system actor default, got %q", rec.ActorType)
	}
	if rec.ActorID != nil || rec.TargetID != nil || rec.IPAddress != nil {
		t.Fatalf("expected empty optionals stored as NULL, got %+v", rec)
	}
	if len(rec.Metadata) != 0 {
		t.Fatalf("expected empty metadata, got %v", rec.Metadata)
	}
	if rec.CreatedAt.IsZero() {
		t.Fatal("expected created_at stamped")
	}
	if n := testdb.Count(t, db, `SELECT COUNT(1) FROM audit_logs WHERE actor_id IS NULL`); n != 1 {
		t.Fatal("expected NULL actor_id in storage")
	}
}

func TestRecordCapturesActorAndMetadata(t *testing.T) {
	svc, _ := newAuditService(t)

	err := svc.Record(context.Background(), auditdomain.Entry{
		ActorType:  auditdomain.ActorTypeAdmin,
		ActorID:    "ops-1",
		Action:     auditdomain.ActionLeagueCreated,
		TargetType: "league",
		TargetID:   "beta",
		Metadata:   map[string]any{"league_id": "100", "channel_id": "chan-2"},
		IPAddress:  "127.0.0.1",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	rows, err := svc.List(context.Background(), auditdomain.ListFilter{Action: auditdomain.ActionLeagueCreated})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	rec := rows[0]
	if rec.ActorType != string(auditdomain.ActorTypeAdmin) || rec.ActorID == nil || *rec.ActorID != "ops-1" {
		t.Fatalf("unexpected actor fields: %+v", rec)
	}
	if rec.TargetID == nil || *rec.TargetID != "beta" {
		t.Fatalf("unexpected target: %+v", rec)
	}
	if rec.Metadata["league_id"] != "100" || rec.Metadata["channel_id"] != "chan-2" {
		t.Fatalf("unexpected metadata: %v", rec.Metadata)
	}
	if rec.IPAddress == nil || *rec.IPAddress != "127.0.0.1" {
		t.Fatalf("unexpected ip: %+v", rec)
	}
}

func TestListFiltersAndOrders(t *testing.T) {
	svc, db := newAuditService(t)

	entries := []auditdomain.Entry{
		{ActorType: auditdomain.ActorTypeAdmin, Action: auditdomain.ActionLeagueCreated, TargetType: "league"},
		{Action: auditdomain.ActionCheckTriggered, TargetType: "check"},
		{Action: auditdomain.ActionSweepRun, TargetType: "maintenance"},
	}
	for _, entry := range entries {
		if err := svc.Record(context.Background(), entry); err != nil {
			t.Fatalf("record %s: %v", entry.Action, err)
		}
	}

	// Unfiltered listing runs newest first.
	rows, err := svc.List(context.Background(), auditdomain.ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Action != auditdomain.ActionSweepRun || rows[2].Action != auditdomain.ActionLeagueCreated {
		t.Fatalf("expected newest first, got %s .. %s", rows[0].Action, rows[2].Action)
	}

	rows, err = svc.List(context.Background(), auditdomain.ListFilter{ActorType: string(auditdomain.ActorTypeAdmin)})
	if err != nil {
		t.Fatalf("list by actor: %v", err)
	}
	if len(rows) != 1 || rows[0].Action != auditdomain.ActionLeagueCreated {
		t.Fatalf("expected the admin action only, got %d rows", len(rows))
	}

	rows, err = svc.List(context.Background(), auditdomain.ListFilter{Limit: 2})
	if err != nil {
		t.Fatalf("list with limit: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected limit applied, got %d rows", len(rows))
	}

	// Rows older than the cutoff only.
	old := time.Now().UTC().Add(-48 * time.Hour)
	if err := db.Exec(
		`INSERT INTO audit_logs (id, actor_type, action, target_type, metadata, created_at)
		 VALUES (1, 'system', 'check.trigger', 'check', '{}', ?)`,
		old,
	).Error; err != nil {
		t.Fatalf("insert aged row: %v", err)
	}
	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	rows, err = svc.List(context.Background(), auditdomain.ListFilter{Before: &cutoff})
	if err != nil {
		t.Fatalf("list before cutoff: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != 1 {
		t.Fatalf("expected only the aged row, got %d rows", len(rows))
	}
}
