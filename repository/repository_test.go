package repository

import (
	"context"
	"errors"
	"io/fs"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/akinalp/voxgate/database"
	"github.com/akinalp/voxgate/models"
	"github.com/akinalp/voxgate/pkg"
	"github.com/akinalp/voxgate/pkg/crypto"
	"github.com/akinalp/voxgate/pkg/ratelimit"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	migrations, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	if err != nil {
		t.Fatalf("fs.Sub: %v", err)
	}
	db, err := database.New(database.MemoryPath, migrations, zerolog.Nop())
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := crypto.DeriveKey("0123456789abcdef0123456789abcdef-repo", "voiceprint")
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	return key
}

func TestMeetingRepo_Lifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteMeetingRepo(db.Conn)
	ctx := context.Background()

	m := &models.Meeting{ID: "S1", Title: "standup", OrganizerID: "U1", VoiceAuthRequired: true}
	if err := repo.Create(ctx, m); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, "S1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != models.SessionScheduled || !got.VoiceAuthRequired || got.OrganizerID != "U1" {
		t.Errorf("unexpected meeting: %+v", got)
	}

	now := time.Now().UTC().Truncate(time.Second)
	if err := repo.UpdateStatus(ctx, "S1", models.SessionActive, now); err != nil {
		t.Fatalf("UpdateStatus active: %v", err)
	}
	if err := repo.UpdateStatus(ctx, "S1", models.SessionEnded, now.Add(time.Minute)); err != nil {
		t.Fatalf("UpdateStatus ended: %v", err)
	}

	got, _ = repo.GetByID(ctx, "S1")
	if got.Status != models.SessionEnded {
		t.Errorf("status = %s, want ended", got.Status)
	}
	if got.StartedAt == nil || got.EndedAt == nil {
		t.Errorf("timestamps not set: started=%v ended=%v", got.StartedAt, got.EndedAt)
	}
}

func TestMeetingRepo_NotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteMeetingRepo(db.Conn)
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, pkg.ErrNotFound) {
		t.Errorf("GetByID: expected ErrNotFound, got %v", err)
	}
	if err := repo.UpdateStatus(ctx, "missing", models.SessionEnded, time.Now()); !errors.Is(err, pkg.ErrNotFound) {
		t.Errorf("UpdateStatus: expected ErrNotFound, got %v", err)
	}
}

func TestVoiceprintRepo_UpsertReplaces(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteVoiceprintRepo(db.Conn, testKey(t))
	ctx := context.Background()

	if err := repo.Upsert(ctx, &models.Voiceprint{UserID: "U1", Features: []float64{0.1, 0.2, 0.3}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.Upsert(ctx, &models.Voiceprint{UserID: "U1", Features: []float64{0.9, 0.8}}); err != nil {
		t.Fatalf("re-enroll: %v", err)
	}

	got, err := repo.GetByUserID(ctx, "U1")
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if got.Dimension != 2 || len(got.Features) != 2 || got.Features[0] != 0.9 {
		t.Errorf("expected replaced reference, got %+v", got)
	}
}

func TestVoiceprintRepo_StoredEncrypted(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteVoiceprintRepo(db.Conn, testKey(t))
	ctx := context.Background()

	if err := repo.Upsert(ctx, &models.Voiceprint{UserID: "U1", Features: []float64{1, 2}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	var raw []byte
	if err := db.Conn.QueryRow(`SELECT features FROM voiceprints WHERE user_id = 'U1'`).Scan(&raw); err != nil {
		t.Fatalf("raw select: %v", err)
	}
	if len(raw) == 16 {
		t.Error("features column holds the plain 16-byte encoding")
	}

	other, _ := crypto.DeriveKey("another-secret-another-secret-1234", "voiceprint")
	if _, err := NewSQLiteVoiceprintRepo(db.Conn, other).GetByUserID(ctx, "U1"); err == nil {
		t.Error("expected decryption failure with a different key")
	}
}

func TestVoiceprintRepo_NotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteVoiceprintRepo(db.Conn, testKey(t))

	if _, err := repo.GetByUserID(context.Background(), "nobody"); !errors.Is(err, pkg.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete(context.Background(), "nobody"); !errors.Is(err, pkg.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteRateLimitStore_SlidingWindow(t *testing.T) {
	db := openTestDB(t)
	store := NewSQLiteRateLimitStore(db.Conn)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := ratelimit.New(store, zerolog.Nop()).WithClock(func() time.Time { return now })
	rule := ratelimit.Rule{Name: "login", Limit: 10, Window: 60 * time.Second}
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		d, err := limiter.CheckAndRecord(ctx, "ip_1.2.3.4", rule)
		if err != nil || !d.Allowed {
			t.Fatalf("call %d: allowed=%v err=%v", i+1, d.Allowed, err)
		}
		now = now.Add(100 * time.Millisecond)
	}

	d, err := limiter.CheckAndRecord(ctx, "ip_1.2.3.4", rule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed || d.RetryAfter != 59 {
		t.Fatalf("11th call: allowed=%v retry=%d, want denied with 59", d.Allowed, d.RetryAfter)
	}

	now = now.Add(2 * time.Minute)
	swept, err := limiter.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if swept != 10 {
		t.Errorf("swept = %d, want 10", swept)
	}
	if d, _ := limiter.CheckAndRecord(ctx, "ip_1.2.3.4", rule); !d.Allowed {
		t.Error("expected allowed after the window")
	}
}

func TestSQLiteRateLimitStore_ConcurrentHits(t *testing.T) {
	db := openTestDB(t)
	store := NewSQLiteRateLimitStore(db.Conn)
	ctx := context.Background()
	now := time.Now()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := store.Hit(ctx, "k", 5, time.Minute, now)
			if err != nil {
				t.Errorf("Hit: %v", err)
				return
			}
			if u.Recorded {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 5 {
		t.Errorf("recorded = %d, want 5", allowed)
	}
}
