// Package testdb opens isolated in-memory sqlite databases carrying the
// bot schema for package tests. Production runs postgres; the DDL here
// mirrors the embedded migrations in sqlite flavor.
package testdb

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var openCount atomic.Int64

var schema = []string{
	`CREATE TABLE IF NOT EXISTS pets (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		species TEXT NOT NULL DEFAULT '',
		breed TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'available',
		photo_url TEXT NOT NULL DEFAULT '',
		brought_in_at TIMESTAMP,
		first_seen_at TIMESTAMP NOT NULL,
		available_announced BOOLEAN NOT NULL DEFAULT FALSE,
		adopted_announced BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP,
		updated_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS leagues (
		id BIGINT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		channel_id TEXT NOT NULL DEFAULT '',
		webhook_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP,
		updated_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP,
		updated_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS roster_entries (
		id BIGINT PRIMARY KEY,
		league_id BIGINT NOT NULL,
		user_id TEXT NOT NULL,
		pet_code TEXT NOT NULL,
		claimed_at TIMESTAMP NOT NULL,
		CONSTRAINT uq_roster_league_user_pet UNIQUE (league_id, user_id, pet_code)
	)`,
	`CREATE TABLE IF NOT EXISTS score_records (
		id BIGINT PRIMARY KEY,
		league_id BIGINT NOT NULL,
		user_id TEXT NOT NULL,
		pet_code TEXT NOT NULL,
		points BIGINT NOT NULL,
		source TEXT NOT NULL DEFAULT 'adoption',
		note TEXT NOT NULL DEFAULT '',
		awarded_at TIMESTAMP NOT NULL,
		CONSTRAINT uq_score_league_user_pet UNIQUE (league_id, user_id, pet_code)
	)`,
	`CREATE TABLE IF NOT EXISTS leaderboard_totals (
		league_id BIGINT NOT NULL,
		user_id TEXT NOT NULL,
		points BIGINT NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (league_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS breed_values (
		breed TEXT PRIMARY KEY,
		points BIGINT NOT NULL DEFAULT 1,
		updated_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS announce_queue (
		id BIGINT PRIMARY KEY,
		kind TEXT NOT NULL,
		pet_code TEXT NOT NULL,
		channel_id TEXT NOT NULL DEFAULT '',
		league_id BIGINT,
		payload TEXT,
		dedupe_key TEXT UNIQUE,
		attempts INT NOT NULL DEFAULT 0,
		enqueued_at TIMESTAMP NOT NULL,
		posted_at TIMESTAMP,
		last_error TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS bot_state (
		id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id BIGINT PRIMARY KEY,
		actor_type TEXT NOT NULL,
		actor_id TEXT,
		action TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id TEXT,
		metadata TEXT NOT NULL DEFAULT '{}',
		ip_address TEXT,
		created_at TIMESTAMP NOT NULL
	)`,
}

// Open returns a fresh database seeded with the full bot schema. Each
// call gets its own named in-memory database so tests never share rows.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, openCount.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, ddl := range schema {
		if err := db.Exec(ddl).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

// Node returns a snowflake node for generating test IDs.
func Node(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

// InsertPet adds a pet row with sensible defaults.
func InsertPet(t *testing.T, db *gorm.DB, code, name, breed, status, photoURL string) {
	t.Helper()
	now := time.Now().UTC()
	if err := db.Exec(
		`INSERT INTO pets (code, name, species, breed, status, photo_url, brought_in_at, first_seen_at, available_announced, adopted_announced, created_at, updated_at)
		 VALUES (?, ?, 'dog', ?, ?, ?, ?, ?, FALSE, FALSE, ?, ?)`,
		code, name, breed, status, photoURL, now, now, now, now,
	).Error; err != nil {
		t.Fatalf("insert pet %s: %v", code, err)
	}
}

// InsertLeague adds a league row.
func InsertLeague(t *testing.T, db *gorm.DB, id int64, slug, channelID, webhookURL string) {
	t.Helper()
	now := time.Now().UTC()
	if err := db.Exec(
		`INSERT INTO leagues (id, slug, name, channel_id, webhook_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, slug, strings.ToUpper(slug[:1])+slug[1:], channelID, webhookURL, now, now,
	).Error; err != nil {
		t.Fatalf("insert league %s: %v", slug, err)
	}
}

// InsertUser adds a chat user row.
func InsertUser(t *testing.T, db *gorm.DB, id, displayName string) {
	t.Helper()
	now := time.Now().UTC()
	if err := db.Exec(
		`INSERT INTO users (id, display_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?)`,
		id, displayName, now, now,
	).Error; err != nil {
		t.Fatalf("insert user %s: %v", id, err)
	}
}

// InsertClaim adds a roster entry.
func InsertClaim(t *testing.T, db *gorm.DB, id, leagueID int64, userID, petCode string) {
	t.Helper()
	if err := db.Exec(
		`INSERT INTO roster_entries (id, league_id, user_id, pet_code, claimed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, leagueID, userID, petCode, time.Now().UTC(),
	).Error; err != nil {
		t.Fatalf("insert claim: %v", err)
	}
}

// InsertBreedValue maps a breed to points.
func InsertBreedValue(t *testing.T, db *gorm.DB, breed string, points int64) {
	t.Helper()
	if err := db.Exec(
		`INSERT INTO breed_values (breed, points, updated_at) VALUES (?, ?, ?)`,
		breed, points, time.Now().UTC(),
	).Error; err != nil {
		t.Fatalf("insert breed value: %v", err)
	}
}

// Count returns the number of rows a WHERE-less or filtered query finds.
func Count(t *testing.T, db *gorm.DB, query string, args ...any) int64 {
	t.Helper()
	var count int64
	if err := db.Raw(query, args...).Scan(&count).Error; err != nil {
		t.Fatalf("count query %q: %v", query, err)
	}
	return count
}
