package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"worklog-server-go/internal/domain/session/model"
)

func testSession(id string, userID uint, lifetime time.Duration) model.Session {
	now := time.Now()
	return model.Session{
		ID:         id,
		UserID:     userID,
		IP:         "127.0.0.1",
		UserAgent:  "test-agent",
		CreatedAt:  now,
		LastActive: now,
		ExpiresAt:  now.Add(lifetime),
	}
}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	t.Cleanup(func() {
		_ = store.Close(ctx)
	})

	sess := testSession("sess-basic", 1, time.Hour)
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	got, err := store.Find(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}
	if got.ID != sess.ID || got.UserID != sess.UserID {
		t.Fatalf("unexpected session: %+v", got)
	}

	sessions, err := store.ListByUser(ctx, 1)
	if err != nil {
		t.Fatalf("ListByUser returned error: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected one session, got %d", len(sessions))
	}

	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := store.Find(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting again is not an error.
	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("repeated Delete returned error: %v", err)
	}
}

func TestMemoryStoreTouchDoesNotResurrect(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	sess := testSession("sess-touch", 2, time.Hour)
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	later := time.Now().Add(time.Minute)
	if err := store.Touch(ctx, sess.ID, later); err != nil {
		t.Fatalf("Touch returned error: %v", err)
	}
	got, err := store.Find(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}
	if !got.LastActive.Equal(later) {
		t.Fatalf("expected last active %v, got %v", later, got.LastActive)
	}

	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := store.Touch(ctx, sess.ID, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound touching deleted session, got %v", err)
	}
	if _, err := store.Find(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("touch must not resurrect a deleted session")
	}
}

func TestMemoryStoreDeleteByUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	for _, id := range []string{"a", "b", "c"} {
		if err := store.Create(ctx, testSession(id, 7, time.Hour)); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}
	if err := store.Create(ctx, testSession("other", 8, time.Hour)); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	removed, err := store.DeleteByUser(ctx, 7)
	if err != nil {
		t.Fatalf("DeleteByUser returned error: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}

	total, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 remaining session, got %d", total)
	}
}

func TestMemoryStoreCleanupExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	live := testSession("live", 1, time.Hour)
	dead := testSession("dead", 1, -time.Minute)
	if err := store.Create(ctx, live); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := store.Create(ctx, dead); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	removed, err := store.CleanupExpired(ctx, time.Now())
	if err != nil {
		t.Fatalf("CleanupExpired returned error: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := store.Find(ctx, "live"); err != nil {
		t.Fatalf("live session should survive cleanup: %v", err)
	}
}
