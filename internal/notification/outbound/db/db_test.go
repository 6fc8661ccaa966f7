package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/phoneauth/internal/notification/entity"
	"github.com/shandysiswandi/phoneauth/internal/pkg/goerror"
	"github.com/shandysiswandi/phoneauth/internal/pkg/instrument"
	"github.com/shandysiswandi/phoneauth/internal/pkg/itest"
	"github.com/shandysiswandi/phoneauth/internal/pkg/valueobject"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func TestDB_SMSLogLifecycle(t *testing.T) {
	// Arrange
	s := NewDB(itest.Postgres(t), instrument.NewNoop())
	ctx := context.Background()

	in := entity.CreateSMSLog{ID: 10, EventID: "evt-1", Phone: "+989123456789", Purpose: "AUTH", CreatedAt: t0}
	if err := s.CreateSMSLog(ctx, in); err != nil {
		t.Fatalf("CreateSMSLog() error = %v", err)
	}

	// Act
	dup := s.CreateSMSLog(ctx, entity.CreateSMSLog{ID: 11, EventID: "evt-1", Phone: in.Phone, Purpose: "AUTH", CreatedAt: t0})
	failErr := s.MarkSMSFailed(ctx, entity.MarkSMSFailed{ID: 10, Error: "gateway 503", UpdatedAt: t0.Add(time.Second)})
	failed, getErr := s.GetSMSLogByEventID(ctx, "evt-1")
	sentErr := s.MarkSMSSent(ctx, entity.MarkSMSSent{
		ID:                10,
		ProviderMessageID: "p-1",
		ProviderResponse:  valueobject.JSONMap{"status": "accepted"},
		UpdatedAt:         t0.Add(2 * time.Second),
	})
	sent, _ := s.GetSMSLogByEventID(ctx, "evt-1")
	lateFail := s.MarkSMSFailed(ctx, entity.MarkSMSFailed{ID: 10, Error: "late", UpdatedAt: t0.Add(3 * time.Second)})

	// Assert
	if !errors.Is(dup, goerror.ErrConflict) {
		t.Fatalf("duplicate CreateSMSLog() error = %v, want ErrConflict", dup)
	}
	if failErr != nil || getErr != nil {
		t.Fatalf("MarkSMSFailed() = %v, GetSMSLogByEventID() = %v", failErr, getErr)
	}
	if failed.Status != entity.SMSStatusFailed || failed.Error != "gateway 503" {
		t.Fatalf("unexpected failed row: %+v", failed)
	}
	if sentErr != nil {
		t.Fatalf("MarkSMSSent() error = %v", sentErr)
	}
	if sent.Status != entity.SMSStatusSent || sent.ProviderMessageID != "p-1" || sent.Error != "" {
		t.Fatalf("unexpected sent row: %+v", sent)
	}
	if sent.ProviderResponse["status"] != "accepted" {
		t.Fatalf("provider response = %v", sent.ProviderResponse)
	}
	if !errors.Is(lateFail, goerror.ErrNotFound) {
		t.Fatalf("MarkSMSFailed() after sent error = %v, want ErrNotFound", lateFail)
	}
}

func TestDB_GetSMSLogByEventID_NotFound(t *testing.T) {
	s := NewDB(itest.Postgres(t), instrument.NewNoop())

	if _, err := s.GetSMSLogByEventID(context.Background(), "missing"); !errors.Is(err, goerror.ErrNotFound) {
		t.Fatalf("GetSMSLogByEventID() error = %v, want ErrNotFound", err)
	}
}
