package memorystore

import (
	"context"
	"testing"
	"time"

	"github.com/open-rails/loginkit/core"
)

func TestUsers_CreateIsUpsertBySubject(t *testing.T) {
	s := NewUsers()
	ctx := context.Background()

	u, err := s.Create(ctx, &core.User{ID: "u1", Email: "a@b.com"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if u.Status != core.StatusActive {
		t.Fatalf("expected default active status, got %q", u.Status)
	}
	if u.Roles == nil {
		t.Fatal("roles should be an empty slice, not nil")
	}
	if u.CreatedAt.IsZero() {
		t.Fatal("created_at should be stamped")
	}

	// A second Create for the same subject returns the existing record.
	again, err := s.Create(ctx, &core.User{ID: "u1", Email: "other@b.com"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if again.Email != "a@b.com" {
		t.Fatalf("collision must return the stored record, got %+v", again)
	}
	if s.Len() != 1 {
		t.Fatalf("expected one user, got %d", s.Len())
	}
}

func TestUsers_FindByIDUnknown(t *testing.T) {
	s := NewUsers()
	u, err := s.FindByID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if u != nil {
		t.Fatalf("unknown subject must be (nil, nil), got %+v", u)
	}
}

func TestUsers_ReturnsCopies(t *testing.T) {
	s := NewUsers()
	ctx := context.Background()
	if _, err := s.Create(ctx, &core.User{ID: "u1", Roles: []string{"admin"}}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	u, _ := s.FindByID(ctx, "u1")
	u.Roles[0] = "mutated"
	u.Status = "mutated"

	fresh, _ := s.FindByID(ctx, "u1")
	if fresh.Roles[0] != "admin" || fresh.Status != core.StatusActive {
		t.Fatalf("stored record must not alias returned copies: %+v", fresh)
	}
}

func TestUsers_StaleListingAndDelete(t *testing.T) {
	s := NewUsers()
	ctx := context.Background()

	for _, id := range []string{"old-1", "old-2", "fresh"} {
		if _, err := s.Create(ctx, &core.User{ID: id}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	past := time.Now().AddDate(0, 0, -400)
	if err := s.UpdateLastLogin(ctx, "old-1", past); err != nil {
		t.Fatalf("UpdateLastLogin failed: %v", err)
	}
	if err := s.UpdateLastLogin(ctx, "old-2", past); err != nil {
		t.Fatalf("UpdateLastLogin failed: %v", err)
	}
	if err := s.UpdateLastLogin(ctx, "fresh", time.Now()); err != nil {
		t.Fatalf("UpdateLastLogin failed: %v", err)
	}

	cutoff := time.Now().AddDate(0, 0, -365)
	ids, err := s.ListStaleBefore(ctx, cutoff, 10)
	if err != nil {
		t.Fatalf("ListStaleBefore failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "old-1" || ids[1] != "old-2" {
		t.Fatalf("unexpected stale ids %v", ids)
	}

	// The limit caps the batch.
	ids, _ = s.ListStaleBefore(ctx, cutoff, 1)
	if len(ids) != 1 {
		t.Fatalf("limit not applied: %v", ids)
	}

	if err := s.Delete(ctx, "old-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if u, _ := s.FindByID(ctx, "old-1"); u != nil {
		t.Fatalf("deleted user still present: %+v", u)
	}
}

func TestKV_TTL(t *testing.T) {
	kv := NewKV()
	ctx := context.Background()

	if err := kv.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	b, ok, err := kv.Get(ctx, "k")
	if err != nil || !ok || string(b) != "v" {
		t.Fatalf("Get = %q, %v, %v", b, ok, err)
	}

	// An expired entry is dropped on read.
	if err := kv.Set(ctx, "gone", []byte("v"), time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, ok, _ := kv.Get(ctx, "gone"); ok {
		t.Fatal("expired entry must not be returned")
	}

	// Zero TTL never expires.
	if err := kv.Set(ctx, "forever", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, "forever"); !ok {
		t.Fatal("zero-TTL entry should persist")
	}

	if err := kv.Del(ctx, "k"); err != nil {
		t.Fatalf("Del failed: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, "k"); ok {
		t.Fatal("deleted entry must not be returned")
	}
}
