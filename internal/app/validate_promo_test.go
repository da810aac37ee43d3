package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hirafic/booking-service/internal/domain"
	"github.com/hirafic/booking-service/internal/promo"
)

type stubRateLimiter struct {
	count int
	err   error

	lastScope   string
	lastSubject string
}

func (l *stubRateLimiter) ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (int, int, error) {
	l.lastScope = scope
	l.lastSubject = subject
	if l.err != nil {
		return 0, 0, l.err
	}
	l.count++
	return l.count, 0, nil
}

func previewRequest(repo *createRepoStub, code string) domain.ValidatePromoRequest {
	return domain.ValidatePromoRequest{
		Code:      code,
		ServiceID: repo.service.ID,
		AddressID: repo.address.ID,
	}
}

func TestValidatePromoCode_PreviewDoesNotConsume(t *testing.T) {
	repo, customerID := fixtureRepo(domain.RegionSaudiArabia, "200")
	repo.code = &domain.PromoCode{
		ID:            uuid.New(),
		Code:          "SAVE10",
		DiscountType:  domain.DiscountPercentage,
		DiscountValue: mustDec("10"),
		ValidFrom:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		ValidUntil:    time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		IsActive:      true,
	}
	svc := newTestService(repo)

	result, err := svc.ValidatePromoCode(context.Background(), customerID, previewRequest(repo, " save 10 "))
	if err != nil {
		t.Fatalf("expected preview to succeed, got %v", err)
	}
	if !result.IsValid {
		t.Fatalf("expected code to validate, got reason %s", result.Reason)
	}
	if !result.DiscountAmount.Equal(mustDec("20")) {
		t.Fatalf("expected discount 20, got %s", result.DiscountAmount)
	}
	if repo.created != nil || repo.createdWith != nil {
		t.Fatal("preview must not touch booking persistence")
	}
}

func TestValidatePromoCode_UnknownCodeIsInvalidNotError(t *testing.T) {
	repo, customerID := fixtureRepo(domain.RegionSaudiArabia, "200")
	svc := newTestService(repo)

	result, err := svc.ValidatePromoCode(context.Background(), customerID, previewRequest(repo, "NOPE"))
	if err != nil {
		t.Fatalf("expected an invalid result rather than an error, got %v", err)
	}
	if result.IsValid || result.Reason != promo.ReasonNotFound {
		t.Fatalf("expected not_found, got valid=%v reason=%s", result.IsValid, result.Reason)
	}
}

func TestValidatePromoCode_RateLimited(t *testing.T) {
	repo, customerID := fixtureRepo(domain.RegionSaudiArabia, "200")
	svc := newTestService(repo)

	limiter := &stubRateLimiter{count: 5}
	svc.SetPromoRateLimiter(limiter, 5)

	_, err := svc.ValidatePromoCode(context.Background(), customerID, previewRequest(repo, "NOPE"))
	if err != ErrRateLimited {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if limiter.lastScope != "promo_validate" || limiter.lastSubject != customerID.String() {
		t.Fatalf("expected per-customer scoping, got scope=%s subject=%s", limiter.lastScope, limiter.lastSubject)
	}
}

func TestValidatePromoCode_LimiterOutageFailsOpen(t *testing.T) {
	repo, customerID := fixtureRepo(domain.RegionSaudiArabia, "200")
	svc := newTestService(repo)
	svc.SetPromoRateLimiter(&stubRateLimiter{err: errors.New("redis down")}, 5)

	if _, err := svc.ValidatePromoCode(context.Background(), customerID, previewRequest(repo, "NOPE")); err != nil {
		t.Fatalf("expected request to be allowed when the limiter is unavailable, got %v", err)
	}
}

func TestValidatePromoCode_RejectsForeignAddress(t *testing.T) {
	repo, _ := fixtureRepo(domain.RegionSaudiArabia, "200")
	svc := newTestService(repo)

	_, err := svc.ValidatePromoCode(context.Background(), uuid.New(), previewRequest(repo, "NOPE"))
	if err != ErrAddressNotOwned {
		t.Fatalf("expected ErrAddressNotOwned, got %v", err)
	}
}
