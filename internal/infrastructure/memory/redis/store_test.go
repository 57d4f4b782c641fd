package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/flowbit-labs/intake-agent/internal/core/domain"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	store := New(client, DefaultTTL)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestCreateAndGetSession(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateSession(ctx, "upload.pdf", domain.FormatPDF, domain.IntentInvoiceProcessing, time.Now().UTC())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	session, err := store.GetSession(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if session.ID != id {
		t.Fatalf("expected id %q, got %q", id, session.ID)
	}
	if session.Source != "upload.pdf" {
		t.Fatalf("unexpected source %q", session.Source)
	}
	if session.InputType != domain.FormatPDF {
		t.Fatalf("unexpected input type %q", session.InputType)
	}
	if session.Intent != domain.IntentInvoiceProcessing {
		t.Fatalf("unexpected intent %q", session.Intent)
	}
	if session.Status != domain.SessionActive {
		t.Fatalf("unexpected status %q", session.Status)
	}
	if len(session.ProcessingHistory) != 0 {
		t.Fatalf("expected empty history, got %v", session.ProcessingHistory)
	}
	if len(session.ExtractedData) != 0 {
		t.Fatalf("expected empty extracted data, got %v", session.ExtractedData)
	}

	if ok, _ := mr.IsMember("active_sessions", id); !ok {
		t.Fatal("session id missing from index set")
	}
	ttl := mr.TTL("session:" + id)
	if ttl != DefaultTTL {
		t.Fatalf("expected ttl %v, got %v", DefaultTTL, ttl)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.GetSession(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestAppendProcessingStepAccumulates(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateSession(ctx, "api", domain.FormatJSON, domain.IntentGeneralProcessing, time.Now().UTC())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := store.AppendProcessingStep(ctx, id, "json_agent", map[string]any{"step": float64(i)}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	session, err := store.GetSession(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(session.ProcessingHistory) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(session.ProcessingHistory))
	}
	for i, step := range session.ProcessingHistory {
		if step.Agent != "json_agent" {
			t.Fatalf("unexpected agent %q", step.Agent)
		}
		if step.Result["step"] != float64(i) {
			t.Fatalf("steps out of order: %v", session.ProcessingHistory)
		}
	}
}

func TestMergeExtractedDataOverwritesKey(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateSession(ctx, "api", domain.FormatJSON, domain.IntentGeneralProcessing, time.Now().UTC())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := store.MergeExtractedData(ctx, id, "json_data", map[string]any{"v": "one"}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if err := store.MergeExtractedData(ctx, id, "other", "kept"); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if err := store.MergeExtractedData(ctx, id, "json_data", map[string]any{"v": "two"}); err != nil {
		t.Fatalf("merge: %v", err)
	}

	session, err := store.GetSession(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	jsonData := session.ExtractedData["json_data"].(map[string]any)
	if jsonData["v"] != "two" {
		t.Fatalf("expected overwrite, got %v", jsonData)
	}
	if session.ExtractedData["other"] != "kept" {
		t.Fatalf("sibling key lost: %v", session.ExtractedData)
	}
}

func TestUpdateSessionMissing(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.UpdateSession(context.Background(), "missing", map[string]any{"status": "done"})
	if !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestUpdateDoesNotRefreshTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateSession(ctx, "api", domain.FormatJSON, domain.IntentGeneralProcessing, time.Now().UTC())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	mr.FastForward(time.Hour)
	if err := store.UpdateSession(ctx, id, map[string]any{"status": "active"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	ttl := mr.TTL("session:" + id)
	if ttl > DefaultTTL-time.Hour {
		t.Fatalf("ttl was refreshed: %v", ttl)
	}
}

func TestSessionExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateSession(ctx, "api", domain.FormatJSON, domain.IntentGeneralProcessing, time.Now().UTC())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	mr.FastForward(DefaultTTL + time.Minute)

	if _, err := store.GetSession(ctx, id); !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}

	// The hash is gone but the index entry lingers until swept.
	sessions, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected no live sessions, got %d", len(sessions))
	}
}

func TestListSessions(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.CreateSession(ctx, "api", domain.FormatJSON, domain.IntentGeneralProcessing, time.Now().UTC()); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}
}

func TestDeleteSession(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateSession(ctx, "api", domain.FormatJSON, domain.IntentGeneralProcessing, time.Now().UTC())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := store.DeleteSession(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := mr.IsMember("active_sessions", id); ok {
		t.Fatal("index entry should be removed")
	}
	if err := store.DeleteSession(ctx, id); !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for second delete, got %v", err)
	}
}

func TestCleanupExpiredSweepsStaleIndexEntries(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	staleID, err := store.CreateSession(ctx, "api", domain.FormatJSON, domain.IntentGeneralProcessing, time.Now().UTC())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	mr.FastForward(DefaultTTL + time.Minute)

	liveID, err := store.CreateSession(ctx, "api", domain.FormatJSON, domain.IntentGeneralProcessing, time.Now().UTC())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	swept, err := store.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if swept != 1 {
		t.Fatalf("expected 1 swept entry, got %d", swept)
	}
	if ok, _ := mr.IsMember("active_sessions", staleID); ok {
		t.Fatal("stale id should be removed from index")
	}
	if ok, _ := mr.IsMember("active_sessions", liveID); !ok {
		t.Fatal("live id must survive the sweep")
	}
}
