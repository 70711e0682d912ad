package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gorm.io/gorm"

	"matatu_hub/internal/authz"
	"matatu_hub/internal/models"
	"matatu_hub/internal/notify"
)

func (f fixture) createCmd() CreateCommand {
	return CreateCommand{
		OwnerID:           f.owner.ID,
		VehicleID:         f.vehicle.ID,
		SaccoID:           f.sacco.ID,
		ExperienceYears:   5,
		ReasonForJoining:  "  better routes  ",
		PreferredRouteIDs: []uint{f.routes[0].ID, f.routes[1].ID, f.routes[0].ID},
	}
}

func TestCreateJoinRequest(t *testing.T) {
	f := newFixture(t)
	svc, rec := newService(f)

	res, err := svc.Create(context.Background(), f.createCmd())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	req := res.Request
	if req.Status != models.StatusPending {
		t.Fatalf("status = %s", req.Status)
	}
	if req.ProcessedAt != nil || req.ProcessedByID != nil {
		t.Fatal("new request must not be processed")
	}
	if req.RequestedAt.IsZero() {
		t.Fatal("requested_at must be set")
	}
	if req.OwnerID != f.owner.ID {
		t.Fatalf("owner = %d", req.OwnerID)
	}
	if req.ReasonForJoining != "better routes" {
		t.Fatalf("reason = %q", req.ReasonForJoining)
	}
	if len(req.PreferredRoutes) != 2 {
		t.Fatalf("preferred routes = %d, want 2", len(req.PreferredRoutes))
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings %v", res.Warnings)
	}

	kinds := rec.kinds()
	if len(kinds) != 2 || kinds[0] != notify.KindOwnerConfirmation || kinds[1] != notify.KindAdminNewRequest {
		t.Fatalf("notifications = %v", kinds)
	}
	if rec.events[0].RecipientID != f.owner.ID || rec.events[1].RecipientID != f.admin.ID {
		t.Fatalf("recipients = %d, %d", rec.events[0].RecipientID, rec.events[1].RecipientID)
	}
}

func TestCreatePreconditions(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, f fixture) CreateCommand
		check func(t *testing.T, err error)
	}{
		{
			name: "vehicle already in a sacco wins over missing documents",
			setup: func(t *testing.T, f fixture) CreateCommand {
				v := f.newVehicle(t, "KBZ 001Z")
				f.db.Model(&v).Update("sacco_id", f.other.ID)
				cmd := f.createCmd()
				cmd.VehicleID = v.ID
				cmd.PreferredRouteIDs = nil
				return cmd
			},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrVehicleInSacco) {
					t.Fatalf("expected ErrVehicleInSacco, got %v", err)
				}
			},
		},
		{
			name: "missing permit",
			setup: func(t *testing.T, f fixture) CreateCommand {
				v := f.newVehicle(t, "KBZ 002Z", models.DocLogbook, models.DocInsurance, models.DocInspection, models.DocLicense)
				cmd := f.createCmd()
				cmd.VehicleID = v.ID
				return cmd
			},
			check: func(t *testing.T, err error) {
				var missing *MissingDocumentsError
				if !errors.As(err, &missing) {
					t.Fatalf("expected MissingDocumentsError, got %v", err)
				}
				if len(missing.Missing) != 1 || missing.Missing[0] != models.DocPermit {
					t.Fatalf("missing = %v", missing.Missing)
				}
			},
		},
		{
			name: "vehicle of another owner",
			setup: func(t *testing.T, f fixture) CreateCommand {
				cmd := f.createCmd()
				cmd.OwnerID = f.admin.ID
				return cmd
			},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrNotFound) {
					t.Fatalf("expected ErrNotFound, got %v", err)
				}
			},
		},
		{
			name: "unknown sacco",
			setup: func(t *testing.T, f fixture) CreateCommand {
				cmd := f.createCmd()
				cmd.SaccoID = 999
				return cmd
			},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrNotFound) {
					t.Fatalf("expected ErrNotFound, got %v", err)
				}
			},
		},
		{
			name: "preferred route of another sacco",
			setup: func(t *testing.T, f fixture) CreateCommand {
				cmd := f.createCmd()
				cmd.PreferredRouteIDs = []uint{f.routes[2].ID}
				return cmd
			},
			check: func(t *testing.T, err error) {
				var verr *ValidationError
				if !errors.As(err, &verr) || verr.Field != "preferred_route_ids" {
					t.Fatalf("expected preferred_route_ids validation error, got %v", err)
				}
			},
		},
		{
			name: "negative experience",
			setup: func(t *testing.T, f fixture) CreateCommand {
				cmd := f.createCmd()
				cmd.ExperienceYears = -1
				return cmd
			},
			check: func(t *testing.T, err error) {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected validation error, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			svc, rec := newService(f)
			_, err := svc.Create(context.Background(), tt.setup(t, f))
			tt.check(t, err)

			var count int64
			f.db.Model(&models.SaccoJoinRequest{}).Count(&count)
			if count != 0 {
				t.Fatalf("no request should be stored, found %d", count)
			}
			if len(rec.kinds()) != 0 {
				t.Fatal("no notification expected on failure")
			}
		})
	}
}

func TestDuplicateThenReapplyAfterRejection(t *testing.T) {
	f := newFixture(t)
	svc, _ := newService(f)
	ctx := context.Background()

	first, err := svc.Create(ctx, f.createCmd())
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.Create(ctx, f.createCmd()); !errors.Is(err, ErrDuplicateRequest) {
		t.Fatalf("expected ErrDuplicateRequest, got %v", err)
	}

	// A live request to a different sacco is allowed.
	other := f.createCmd()
	other.SaccoID = f.other.ID
	other.PreferredRouteIDs = nil
	if _, err := svc.Create(ctx, other); err != nil {
		t.Fatalf("create for other sacco: %v", err)
	}

	if _, err := svc.Reject(ctx, RejectCommand{RequestID: first.Request.ID, Actor: f.adminPrincipal(), RejectionReason: "full"}); err != nil {
		t.Fatalf("reject: %v", err)
	}
	third, err := svc.Create(ctx, f.createCmd())
	if err != nil {
		t.Fatalf("re-apply after rejection: %v", err)
	}
	if third.Request.ID == first.Request.ID {
		t.Fatal("re-application must be a new request")
	}
}

func TestLiveIndexRejectsSecondLiveRow(t *testing.T) {
	f := newFixture(t)
	row := func(status models.JoinRequestStatus) *models.SaccoJoinRequest {
		return &models.SaccoJoinRequest{VehicleID: f.vehicle.ID, SaccoID: f.sacco.ID, OwnerID: f.owner.ID, Status: status}
	}
	mustCreate(t, f.db, row(models.StatusRejected))
	mustCreate(t, f.db, row(models.StatusUnderReview))
	err := f.db.Create(row(models.StatusPending)).Error
	if !isUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
	mustCreate(t, f.db, row(models.StatusApproved))
}

func TestApprove(t *testing.T) {
	f := newFixture(t)
	svc, rec := newService(f)
	ctx := context.Background()

	created, err := svc.Create(ctx, f.createCmd())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	res, err := svc.Approve(ctx, ApproveCommand{RequestID: created.Request.ID, Actor: f.adminPrincipal(), AdminNotes: "welcome"})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if res.Request.Status != models.StatusApproved {
		t.Fatalf("status = %s", res.Request.Status)
	}
	if res.Request.ProcessedAt == nil || res.Request.ProcessedByID == nil || *res.Request.ProcessedByID != f.admin.ID {
		t.Fatal("processed_at and processed_by must be set")
	}
	if res.Request.AdminNotes != "welcome" {
		t.Fatalf("notes = %q", res.Request.AdminNotes)
	}

	v := f.reloadVehicle(t, f.vehicle.ID)
	if v.SaccoID == nil || *v.SaccoID != f.sacco.ID || !v.IsApprovedBySacco || v.DateJoinedSacco == nil {
		t.Fatalf("vehicle not bound: %+v", v)
	}

	_, err = svc.Approve(ctx, ApproveCommand{RequestID: created.Request.ID, Actor: f.adminPrincipal()})
	var already *AlreadyProcessedError
	if !errors.As(err, &already) || err.Error() != "Request is already approved" {
		t.Fatalf("expected already approved, got %v", err)
	}
	after := f.reloadVehicle(t, f.vehicle.ID)
	if !after.DateJoinedSacco.Equal(*v.DateJoinedSacco) {
		t.Fatal("second approve must not touch the vehicle")
	}

	kinds := rec.kinds()
	if kinds[len(kinds)-1] != notify.KindOwnerApproved {
		t.Fatalf("last notification = %s", kinds[len(kinds)-1])
	}
}

type failingBinder struct{}

func (failingBinder) HandleRequestApproved(tx *gorm.DB, evt RequestApproved) error {
	// Touch the vehicle first so the rollback has something to undo.
	if err := tx.Model(&models.Vehicle{}).Where("id = ?", evt.VehicleID).Update("is_approved_by_sacco", true).Error; err != nil {
		return err
	}
	return errors.New("simulated storage fault")
}

func TestApproveIsAtomic(t *testing.T) {
	f := newFixture(t)
	svc, rec := newService(f)
	ctx := context.Background()

	created, err := svc.Create(ctx, f.createCmd())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	svc.OnApproved = failingBinder{}
	if _, err := svc.Approve(ctx, ApproveCommand{RequestID: created.Request.ID, Actor: f.adminPrincipal()}); err == nil {
		t.Fatal("expected approve to fail")
	}

	req := f.reload(t, created.Request.ID)
	if req.Status != models.StatusPending || req.ProcessedAt != nil || req.ProcessedByID != nil {
		t.Fatalf("request partially approved: %+v", req)
	}
	v := f.reloadVehicle(t, f.vehicle.ID)
	if v.SaccoID != nil || v.IsApprovedBySacco || v.DateJoinedSacco != nil {
		t.Fatalf("vehicle partially bound: %+v", v)
	}
	for _, k := range rec.kinds() {
		if k == notify.KindOwnerApproved {
			t.Fatal("no approval notification after rollback")
		}
	}

	svc.OnApproved = VehicleBinder{}
	if _, err := svc.Approve(ctx, ApproveCommand{RequestID: created.Request.ID, Actor: f.adminPrincipal()}); err != nil {
		t.Fatalf("retry approve: %v", err)
	}
}

func TestApproveSecondSaccoAfterBinding(t *testing.T) {
	f := newFixture(t)
	svc, _ := newService(f)
	ctx := context.Background()

	a, err := svc.Create(ctx, f.createCmd())
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	cmd := f.createCmd()
	cmd.SaccoID = f.other.ID
	cmd.PreferredRouteIDs = nil
	b, err := svc.Create(ctx, cmd)
	if err != nil {
		t.Fatalf("create b: %v", err)
	}

	if _, err := svc.Approve(ctx, ApproveCommand{RequestID: a.Request.ID, Actor: f.adminPrincipal()}); err != nil {
		t.Fatalf("approve a: %v", err)
	}
	_, err = svc.Approve(ctx, ApproveCommand{RequestID: b.Request.ID, Actor: f.superPrincipal()})
	if !errors.Is(err, ErrVehicleInSacco) {
		t.Fatalf("expected ErrVehicleInSacco, got %v", err)
	}
	if got := f.reload(t, b.Request.ID).Status; got != models.StatusPending {
		t.Fatalf("b status = %s, want pending", got)
	}
	if v := f.reloadVehicle(t, f.vehicle.ID); *v.SaccoID != f.sacco.ID {
		t.Fatalf("vehicle moved to sacco %d", *v.SaccoID)
	}
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	svc, rec := newService(f)
	ctx := context.Background()

	created, err := svc.Create(ctx, f.createCmd())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, reason := range []string{"", "   "} {
		_, err := svc.Reject(ctx, RejectCommand{RequestID: created.Request.ID, Actor: f.adminPrincipal(), RejectionReason: reason})
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field != "rejection_reason" {
			t.Fatalf("reason %q: expected validation error, got %v", reason, err)
		}
		if got := f.reload(t, created.Request.ID).Status; got != models.StatusPending {
			t.Fatalf("status = %s after invalid reject", got)
		}
	}

	res, err := svc.Reject(ctx, RejectCommand{RequestID: created.Request.ID, Actor: f.adminPrincipal(), RejectionReason: " incomplete fleet records ", AdminNotes: "call owner"})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if res.Request.Status != models.StatusRejected || res.Request.RejectionReason != "incomplete fleet records" || res.Request.AdminNotes != "call owner" {
		t.Fatalf("unexpected request %+v", res.Request)
	}
	if res.Request.ProcessedAt == nil {
		t.Fatal("processed_at must be set")
	}
	if v := f.reloadVehicle(t, f.vehicle.ID); v.SaccoID != nil || v.IsApprovedBySacco {
		t.Fatal("reject must not touch the vehicle")
	}
	if kinds := rec.kinds(); kinds[len(kinds)-1] != notify.KindOwnerRejected {
		t.Fatalf("last notification = %s", kinds[len(kinds)-1])
	}

	_, err = svc.Approve(ctx, ApproveCommand{RequestID: created.Request.ID, Actor: f.adminPrincipal()})
	if err == nil || err.Error() != "Request is already rejected" {
		t.Fatalf("expected already rejected, got %v", err)
	}
}

func TestMarkUnderReview(t *testing.T) {
	f := newFixture(t)
	svc, _ := newService(f)
	ctx := context.Background()

	created, err := svc.Create(ctx, f.createCmd())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	res, err := svc.MarkUnderReview(ctx, ReviewCommand{RequestID: created.Request.ID, Actor: f.adminPrincipal(), AdminNotes: "checking logbook"})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if res.Request.Status != models.StatusUnderReview || res.Request.AdminNotes != "checking logbook" {
		t.Fatalf("unexpected %+v", res.Request)
	}
	if res.Request.ProcessedAt != nil || res.Request.ProcessedByID != nil {
		t.Fatal("review must not set processed fields")
	}

	res, err = svc.MarkUnderReview(ctx, ReviewCommand{RequestID: created.Request.ID, Actor: f.adminPrincipal(), AdminNotes: "logbook ok"})
	if err != nil {
		t.Fatalf("second review: %v", err)
	}
	if res.Request.AdminNotes != "logbook ok" {
		t.Fatalf("notes = %q", res.Request.AdminNotes)
	}

	// Still live, so a duplicate is refused and approval works.
	if _, err := svc.Create(ctx, f.createCmd()); !errors.Is(err, ErrDuplicateRequest) {
		t.Fatalf("expected duplicate while under review, got %v", err)
	}
	if _, err := svc.Approve(ctx, ApproveCommand{RequestID: created.Request.ID, Actor: f.adminPrincipal()}); err != nil {
		t.Fatalf("approve from review: %v", err)
	}
	if _, err := svc.MarkUnderReview(ctx, ReviewCommand{RequestID: created.Request.ID, Actor: f.adminPrincipal()}); err == nil {
		t.Fatal("review of a terminal request must fail")
	}
}

func TestDecisionAuthorization(t *testing.T) {
	f := newFixture(t)
	svc, _ := newService(f)
	ctx := context.Background()

	created, err := svc.Create(ctx, f.createCmd())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	stranger := authz.Principal{UserID: f.owner.ID, Roles: []models.Role{models.RoleSaccoAdmin}}
	if _, err := svc.Approve(ctx, ApproveCommand{RequestID: created.Request.ID, Actor: stranger}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Reject(ctx, RejectCommand{RequestID: created.Request.ID, Actor: stranger, RejectionReason: "x"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Approve(ctx, ApproveCommand{RequestID: 999, Actor: f.superPrincipal()}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Approve(ctx, ApproveCommand{RequestID: created.Request.ID, Actor: f.superPrincipal()}); err != nil {
		t.Fatalf("superuser approve: %v", err)
	}

	if err := svc.Authorize(ctx, f.adminPrincipal(), f.sacco.ID); err != nil {
		t.Fatalf("authorize admin: %v", err)
	}
	if err := svc.Authorize(ctx, f.adminPrincipal(), f.other.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for other sacco, got %v", err)
	}
}

func TestNotificationFailureIsAdvisory(t *testing.T) {
	f := newFixture(t)
	svc, rec := newService(f)
	rec.err = errors.New("mailer down")
	ctx := context.Background()

	res, err := svc.Create(ctx, f.createCmd())
	if err != nil {
		t.Fatalf("create must succeed despite notifier failure: %v", err)
	}
	if len(res.Warnings) != 2 {
		t.Fatalf("warnings = %v", res.Warnings)
	}
	if got := f.reload(t, res.Request.ID).Status; got != models.StatusPending {
		t.Fatalf("status = %s", got)
	}

	approved, err := svc.Approve(ctx, ApproveCommand{RequestID: res.Request.ID, Actor: f.adminPrincipal()})
	if err != nil {
		t.Fatalf("approve must succeed despite notifier failure: %v", err)
	}
	if len(approved.Warnings) != 1 || approved.Request.Status != models.StatusApproved {
		t.Fatalf("unexpected result %+v", approved)
	}
}

func TestMissingAdminIsAdvisory(t *testing.T) {
	f := newFixture(t)
	svc, _ := newService(f)
	cmd := f.createCmd()
	cmd.SaccoID = f.other.ID
	cmd.PreferredRouteIDs = nil

	res, err := svc.Create(context.Background(), cmd)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("expected one warning for the missing admin, got %v", res.Warnings)
	}
}

func TestConcurrentApprove(t *testing.T) {
	f := newFixture(t)
	svc, _ := newService(f)
	ctx := context.Background()

	created, err := svc.Create(ctx, f.createCmd())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const workers = 6
	start := make(chan struct{})
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Approve(ctx, ApproveCommand{RequestID: created.Request.ID, Actor: f.adminPrincipal()})
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		var already *AlreadyProcessedError
		if !errors.As(err, &already) || already.Status != models.StatusApproved {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly one successful approval, got %d", success)
	}
}
