package services

import (
	"context"
	"errors"
	"testing"

	"matatu_hub/internal/authz"
	"matatu_hub/internal/models"
)

func TestQueries(t *testing.T) {
	f := newFixture(t)
	svc, _ := newService(f)
	q := NewJoinRequestQueries(f.db)
	ctx := context.Background()

	all := models.RequiredDocumentTypes
	v2 := f.newVehicle(t, "KDB 200B", all...)
	v3 := f.newVehicle(t, "KDC 300C", all...)

	create := func(vehicleID uint) models.SaccoJoinRequest {
		cmd := f.createCmd()
		cmd.VehicleID = vehicleID
		res, err := svc.Create(ctx, cmd)
		if err != nil {
			t.Fatalf("create for vehicle %d: %v", vehicleID, err)
		}
		return res.Request
	}
	first := create(f.vehicle.ID)
	second := create(v2.ID)
	third := create(v3.ID)

	if _, err := svc.Reject(ctx, RejectCommand{RequestID: second.ID, Actor: f.adminPrincipal(), RejectionReason: "no"}); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := svc.MarkUnderReview(ctx, ReviewCommand{RequestID: third.ID, Actor: f.adminPrincipal()}); err != nil {
		t.Fatalf("review: %v", err)
	}

	t.Run("pending only newest first", func(t *testing.T) {
		got, err := q.ListPending(ctx, f.sacco.ID)
		if err != nil {
			t.Fatalf("list pending: %v", err)
		}
		if len(got) != 1 || got[0].ID != first.ID {
			t.Fatalf("pending = %+v", got)
		}
		if got[0].Vehicle == nil || len(got[0].Vehicle.Documents) != 5 || got[0].Owner == nil {
			t.Fatal("vehicle, documents and owner must be eager loaded")
		}
	})

	t.Run("all requests newest first", func(t *testing.T) {
		got, err := q.ListBySacco(ctx, f.sacco.ID, "")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		want := []uint{third.ID, second.ID, first.ID}
		if len(got) != len(want) {
			t.Fatalf("len = %d", len(got))
		}
		for i := range want {
			if got[i].ID != want[i] {
				t.Fatalf("order = %d at %d, want %d", got[i].ID, i, want[i])
			}
		}
	})

	t.Run("status filter", func(t *testing.T) {
		got, err := q.ListBySacco(ctx, f.sacco.ID, "rejected")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 1 || got[0].ID != second.ID {
			t.Fatalf("rejected = %+v", got)
		}
		var verr *ValidationError
		if _, err := q.ListBySacco(ctx, f.sacco.ID, "cancelled"); !errors.As(err, &verr) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("other sacco is empty", func(t *testing.T) {
		got, err := q.ListBySacco(ctx, f.other.ID, "")
		if err != nil || len(got) != 0 {
			t.Fatalf("got %v, %v", got, err)
		}
	})

	t.Run("owner listing", func(t *testing.T) {
		got, err := q.ListForOwner(ctx, f.owner.ID)
		if err != nil || len(got) != 3 {
			t.Fatalf("got %d, %v", len(got), err)
		}
		if got[0].Sacco == nil || got[0].Sacco.Name != "Super Metro" {
			t.Fatal("sacco must be loaded for owners")
		}
		none, _ := q.ListForOwner(ctx, f.admin.ID)
		if len(none) != 0 {
			t.Fatalf("admin owns no requests, got %d", len(none))
		}
	})

	t.Run("detail", func(t *testing.T) {
		d, err := q.Detail(ctx, first.ID)
		if err != nil {
			t.Fatalf("detail: %v", err)
		}
		if d.Owner.Email != "owner@example.com" || d.Owner.Phone != "0700000001" {
			t.Fatalf("owner = %+v", d.Owner)
		}
		if len(d.Documents) != 5 || !d.DocumentStatus.IsComplete {
			t.Fatalf("documents = %d, status = %+v", len(d.Documents), d.DocumentStatus)
		}
		if len(d.Request.PreferredRoutes) != 2 {
			t.Fatalf("preferred routes = %d", len(d.Request.PreferredRoutes))
		}
		if _, err := q.Detail(ctx, 999); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("detail access", func(t *testing.T) {
		if _, err := q.DetailForOwner(ctx, f.owner.ID, first.ID); err != nil {
			t.Fatalf("owner detail: %v", err)
		}
		if _, err := q.DetailForOwner(ctx, f.admin.ID, first.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, err := q.DetailForAdmin(ctx, f.adminPrincipal(), first.ID); err != nil {
			t.Fatalf("admin detail: %v", err)
		}
		if _, err := q.DetailForAdmin(ctx, authz.Principal{UserID: f.owner.ID}, first.ID); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})
}
