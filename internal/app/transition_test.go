package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hirafic/booking-service/internal/domain"
	"github.com/hirafic/booking-service/internal/store"
)

type transitionRepoStub struct {
	store.Repository

	booking *domain.Booking

	updateCalled bool
	updatedWith  store.StatusUpdate
	usedVersion  int64
	updateErr    error
}

func (s *transitionRepoStub) GetBooking(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	if s.booking == nil {
		return nil, store.ErrBookingNotFound
	}
	copied := *s.booking
	return &copied, nil
}

func (s *transitionRepoStub) UpdateBookingStatus(ctx context.Context, bookingID uuid.UUID, version int64, update store.StatusUpdate) error {
	s.updateCalled = true
	s.updatedWith = update
	s.usedVersion = version
	return s.updateErr
}

func pendingBooking(customerID uuid.UUID) *domain.Booking {
	return &domain.Booking{
		ID:          uuid.New(),
		CustomerID:  customerID,
		ServiceID:   uuid.New(),
		AddressID:   uuid.New(),
		Status:      domain.StatusPending,
		TotalAmount: decimal.NewFromInt(115),
		Version:     3,
	}
}

func newTestService(repo store.Repository) *Service {
	svc := NewService(repo, nil, "hirafic.events", decimal.NewFromInt(15))
	svc.now = func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestTransitionBooking_PendingToConfirmed(t *testing.T) {
	customerID := uuid.New()
	repo := &transitionRepoStub{booking: pendingBooking(customerID)}
	svc := newTestService(repo)

	updated, err := svc.TransitionBooking(context.Background(), repo.booking.ID, domain.StatusConfirmed, customerID, nil)
	if err != nil {
		t.Fatalf("expected transition to succeed, got %v", err)
	}
	if updated.Status != domain.StatusConfirmed {
		t.Fatalf("expected status confirmed, got %s", updated.Status)
	}
	if !repo.updateCalled {
		t.Fatal("expected repository update")
	}
	if repo.usedVersion != 3 {
		t.Fatalf("expected the read version to guard the write, got %d", repo.usedVersion)
	}
	// Confirming stamps no lifecycle timestamp.
	if repo.updatedWith.StartedAt != nil || repo.updatedWith.CompletedAt != nil || repo.updatedWith.CancelledAt != nil {
		t.Fatal("did not expect any timestamp for pending -> confirmed")
	}
}

func TestTransitionBooking_StampsExactlyOneTimestamp(t *testing.T) {
	cases := []struct {
		from, to domain.BookingStatus
		check    func(u store.StatusUpdate) bool
	}{
		{domain.StatusConfirmed, domain.StatusInProgress, func(u store.StatusUpdate) bool {
			return u.StartedAt != nil && u.CompletedAt == nil && u.CancelledAt == nil
		}},
		{domain.StatusInProgress, domain.StatusCompleted, func(u store.StatusUpdate) bool {
			return u.StartedAt == nil && u.CompletedAt != nil && u.CancelledAt == nil
		}},
	}

	for _, tc := range cases {
		customerID := uuid.New()
		booking := pendingBooking(customerID)
		booking.Status = tc.from
		repo := &transitionRepoStub{booking: booking}
		svc := newTestService(repo)

		if _, err := svc.TransitionBooking(context.Background(), booking.ID, tc.to, customerID, nil); err != nil {
			t.Fatalf("%s -> %s: expected success, got %v", tc.from, tc.to, err)
		}
		if !tc.check(repo.updatedWith) {
			t.Fatalf("%s -> %s: wrong timestamps stamped: %+v", tc.from, tc.to, repo.updatedWith)
		}
	}
}

func TestTransitionBooking_CancellationRequiresReason(t *testing.T) {
	customerID := uuid.New()
	repo := &transitionRepoStub{booking: pendingBooking(customerID)}
	svc := newTestService(repo)

	_, err := svc.TransitionBooking(context.Background(), repo.booking.ID, domain.StatusCancelled, customerID, nil)
	if err != ErrReasonRequired {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}
	if repo.updateCalled {
		t.Fatal("expected no write without a cancellation reason")
	}

	reason := "provider unavailable"
	updated, err := svc.TransitionBooking(context.Background(), repo.booking.ID, domain.StatusCancelled, customerID, &reason)
	if err != nil {
		t.Fatalf("expected cancellation with reason to succeed, got %v", err)
	}
	if repo.updatedWith.CancelledAt == nil || repo.updatedWith.CancellationReason == nil {
		t.Fatal("expected cancelled timestamp and reason to be written")
	}
	if updated.CancellationReason == nil || *updated.CancellationReason != reason {
		t.Fatalf("expected reason on returned booking, got %v", updated.CancellationReason)
	}
}

func TestTransitionBooking_RejectsPairsOutsideTable(t *testing.T) {
	invalid := []struct{ from, to domain.BookingStatus }{
		{domain.StatusPending, domain.StatusInProgress},
		{domain.StatusPending, domain.StatusCompleted},
		{domain.StatusConfirmed, domain.StatusCompleted},
		{domain.StatusInProgress, domain.StatusCancelled},
		{domain.StatusCompleted, domain.StatusConfirmed},
		{domain.StatusCancelled, domain.StatusConfirmed},
		{domain.StatusDisputed, domain.StatusCompleted},
	}

	for _, tc := range invalid {
		customerID := uuid.New()
		booking := pendingBooking(customerID)
		booking.Status = tc.from
		repo := &transitionRepoStub{booking: booking}
		svc := newTestService(repo)

		_, err := svc.TransitionBooking(context.Background(), booking.ID, tc.to, customerID, nil)
		if err == nil {
			t.Fatalf("%s -> %s: expected rejection", tc.from, tc.to)
		}
		if repo.updateCalled {
			t.Fatalf("%s -> %s: expected no write on invalid transition", tc.from, tc.to)
		}
	}
}

func TestTransitionBooking_RepeatedTargetIsRejected(t *testing.T) {
	// (X, X) is never in the table, so a duplicate request cannot double-stamp.
	for _, status := range []domain.BookingStatus{
		domain.StatusPending, domain.StatusConfirmed, domain.StatusInProgress,
		domain.StatusCompleted, domain.StatusCancelled, domain.StatusDisputed,
	} {
		customerID := uuid.New()
		booking := pendingBooking(customerID)
		booking.Status = status
		repo := &transitionRepoStub{booking: booking}
		svc := newTestService(repo)

		if _, err := svc.TransitionBooking(context.Background(), booking.ID, status, customerID, nil); err == nil {
			t.Fatalf("%s -> %s: expected rejection of same-status transition", status, status)
		}
	}
}

func TestTransitionBooking_RejectsNonParty(t *testing.T) {
	repo := &transitionRepoStub{booking: pendingBooking(uuid.New())}
	svc := newTestService(repo)

	_, err := svc.TransitionBooking(context.Background(), repo.booking.ID, domain.StatusConfirmed, uuid.New(), nil)
	if err != ErrUnauthorizedActor {
		t.Fatalf("expected ErrUnauthorizedActor, got %v", err)
	}
	if repo.updateCalled {
		t.Fatal("expected no write for an unauthorized actor")
	}
}

func TestTransitionBooking_ProviderIsAParty(t *testing.T) {
	providerID := uuid.New()
	booking := pendingBooking(uuid.New())
	booking.Status = domain.StatusConfirmed
	booking.ProviderID = &providerID
	repo := &transitionRepoStub{booking: booking}
	svc := newTestService(repo)

	if _, err := svc.TransitionBooking(context.Background(), booking.ID, domain.StatusInProgress, providerID, nil); err != nil {
		t.Fatalf("expected provider to be allowed, got %v", err)
	}
}

func TestTransitionBooking_SurfacesVersionConflict(t *testing.T) {
	customerID := uuid.New()
	repo := &transitionRepoStub{
		booking:   pendingBooking(customerID),
		updateErr: store.ErrVersionConflict,
	}
	svc := newTestService(repo)

	_, err := svc.TransitionBooking(context.Background(), repo.booking.ID, domain.StatusConfirmed, customerID, nil)
	if err != store.ErrVersionConflict {
		t.Fatalf("expected ErrVersionConflict to pass through, got %v", err)
	}
}
