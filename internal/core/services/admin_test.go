package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prospect-labs/prospect-core/internal/adapters/driven/memory"
	"github.com/prospect-labs/prospect-core/internal/core/domain"
)

func TestAdminService_GetUser(t *testing.T) {
	store := memory.NewDatabase().Collection("profiles")
	svc := NewStoreAdminService(store)
	seedUser(t, store, "u1")

	user, err := svc.GetUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.UserID != "u1" {
		t.Errorf("expected user ID u1, got %q", user.UserID)
	}
	if user.Profile == nil || user.Profile.FullName != "John Doe" {
		t.Errorf("expected stored profile, got %+v", user.Profile)
	}

	_, err = svc.GetUser(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAdminService_ListUsers(t *testing.T) {
	clock := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store := memory.NewDatabaseWithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}).Collection("profiles")
	svc := NewStoreAdminService(store)

	for i := 0; i < 5; i++ {
		seedUser(t, store, fmt.Sprintf("u%d", i))
	}

	var seen []string
	cursor := ""
	pages := 0
	for {
		page, err := svc.ListUsers(context.Background(), 2, cursor)
		if err != nil {
			t.Fatalf("page %d: %v", pages, err)
		}
		pages++
		for _, u := range page.Users {
			seen = append(seen, u.UserID)
		}
		if !page.HasMore {
			break
		}
		cursor = page.Cursor
	}

	if pages != 3 {
		t.Errorf("expected 3 pages, got %d", pages)
	}
	if len(seen) != 5 {
		t.Fatalf("expected 5 users across pages, got %d: %v", len(seen), seen)
	}
	unique := make(map[string]bool)
	for _, id := range seen {
		if unique[id] {
			t.Errorf("user %s returned twice", id)
		}
		unique[id] = true
	}
}

func TestAdminService_CountAndExists(t *testing.T) {
	store := memory.NewDatabase().Collection("profiles")
	svc := NewStoreAdminService(store)

	n, err := svc.CountUsers(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("expected empty store, got %d (%v)", n, err)
	}

	seedUser(t, store, "u1")
	seedUser(t, store, "u2")

	n, _ = svc.CountUsers(context.Background())
	if n != 2 {
		t.Errorf("expected 2 users, got %d", n)
	}

	ok, err := svc.UserExists(context.Background(), "u1")
	if err != nil || !ok {
		t.Errorf("expected u1 to exist, got %v (%v)", ok, err)
	}
	ok, _ = svc.UserExists(context.Background(), "u3")
	if ok {
		t.Error("u3 must not exist")
	}
}

func TestAdminService_DeleteUser(t *testing.T) {
	store := memory.NewDatabase().Collection("profiles")
	svc := NewStoreAdminService(store)
	seedUser(t, store, "u1")

	if err := svc.DeleteUser(context.Background(), "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ok, _ := svc.UserExists(context.Background(), "u1")
	if ok {
		t.Error("u1 must be gone after delete")
	}

	// Deleting an absent user is not an error.
	if err := svc.DeleteUser(context.Background(), "u1"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}
