package store

import (
	"context"
	"errors"
	"testing"

	"github.com/hearthware/pantree/internal/database"
	"github.com/hearthware/pantree/internal/live"
)

func setupInvitationTestDB(t *testing.T) (*InvitationStore, string) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	bus := live.NewBus()
	ctx := context.Background()
	if _, err := NewUserStore(db, bus).Ensure(ctx, "owner", "owner@example.com"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	h, err := NewHouseholdStore(db, bus).Create(ctx, "owner", "Home")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	return NewInvitationStore(db, bus), h.ID
}

func TestInvitationCreateLowercasesRecipient(t *testing.T) {
	is, hh := setupInvitationTestDB(t)

	inv, err := is.Create(context.Background(), "owner", "owner@example.com", "  Guest@Example.COM ", hh)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inv.ToEmail != "guest@example.com" {
		t.Errorf("to_email = %q, want normalized lowercase", inv.ToEmail)
	}
}

func TestInvitationDuplicate(t *testing.T) {
	is, hh := setupInvitationTestDB(t)
	ctx := context.Background()

	if _, err := is.Create(ctx, "owner", "owner@example.com", "guest@example.com", hh); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := is.Create(ctx, "owner", "owner@example.com", "GUEST@example.com", hh)
	if !errors.Is(err, ErrDuplicateInvitation) {
		t.Errorf("err = %v, want ErrDuplicateInvitation", err)
	}
}

func TestInvitationDeleteResolves(t *testing.T) {
	is, hh := setupInvitationTestDB(t)
	ctx := context.Background()

	inv, err := is.Create(ctx, "owner", "owner@example.com", "guest@example.com", hh)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := is.Delete(ctx, inv.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := is.GetByID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("invitation still present after delete")
	}

	// Deleting a resolved invitation is a no-op.
	if err := is.Delete(ctx, inv.ID); err != nil {
		t.Errorf("second delete: %v", err)
	}

	// Once resolved, re-inviting the same recipient is allowed again.
	if _, err := is.Create(ctx, "owner", "owner@example.com", "guest@example.com", hh); err != nil {
		t.Errorf("re-invite after resolve: %v", err)
	}
}

func TestInvitationListForEmail(t *testing.T) {
	is, hh := setupInvitationTestDB(t)
	ctx := context.Background()

	if _, err := is.Create(ctx, "owner", "owner@example.com", "guest@example.com", hh); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := is.Create(ctx, "owner", "owner@example.com", "other@example.com", hh); err != nil {
		t.Fatalf("create: %v", err)
	}

	invs, err := is.ListForEmail(ctx, "Guest@Example.com")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(invs) != 1 || invs[0].ToEmail != "guest@example.com" {
		t.Errorf("invs = %+v, want only guest's invitation", invs)
	}
}
