package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/phoneauth/internal/notification/entity"
	"github.com/shandysiswandi/phoneauth/internal/pkg/goerror"
	"github.com/shandysiswandi/phoneauth/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const pgUniqueViolation = "23505"

type DB struct {
	conn *pgxpool.Pool
	ins  instrument.Instrumentation
}

func NewDB(conn *pgxpool.Pool, ins instrument.Instrumentation) *DB {
	return &DB{
		conn: conn,
		ins:  ins,
	}
}

func (s *DB) mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return goerror.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return goerror.ErrConflict
	}

	return err
}

func (s *DB) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("notification.outbound.db").Start(ctx, name)
}

func (s *DB) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) && !errors.Is(err, goerror.ErrConflict) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *DB) CreateSMSLog(ctx context.Context, in entity.CreateSMSLog) (err error) {
	ctx, span := s.startSpan(ctx, "CreateSMSLog")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `
INSERT INTO notification_sms_logs (id, event_id, phone, purpose, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		in.ID, in.EventID, in.Phone, in.Purpose, entity.SMSStatusQueued.String(), in.CreatedAt,
	)
	return s.mapError(err)
}

func (s *DB) GetSMSLogByEventID(ctx context.Context, eventID string) (_ *entity.SMSLog, err error) {
	ctx, span := s.startSpan(ctx, "GetSMSLogByEventID")
	defer func() { s.endSpan(span, err) }()

	var (
		row    entity.SMSLog
		status string
	)
	err = s.conn.QueryRow(ctx, `
SELECT id, event_id, phone, purpose, status, COALESCE(provider_message_id, ''),
       provider_response, COALESCE(error, ''), created_at, updated_at
FROM notification_sms_logs
WHERE event_id = $1`, eventID).Scan(
		&row.ID, &row.EventID, &row.Phone, &row.Purpose, &status, &row.ProviderMessageID,
		&row.ProviderResponse, &row.Error, &row.CreatedAt, &row.UpdatedAt,
	)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}
	row.Status = entity.SMSStatus(status)

	return &row, nil
}

func (s *DB) MarkSMSSent(ctx context.Context, in entity.MarkSMSSent) (err error) {
	ctx, span := s.startSpan(ctx, "MarkSMSSent")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `
UPDATE notification_sms_logs
SET status = $2, provider_message_id = NULLIF($3, ''), provider_response = $4, error = NULL, updated_at = $5
WHERE id = $1`,
		in.ID, entity.SMSStatusSent.String(), in.ProviderMessageID, in.ProviderResponse, in.UpdatedAt,
	)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		err = goerror.ErrNotFound
	}
	return err
}

func (s *DB) MarkSMSFailed(ctx context.Context, in entity.MarkSMSFailed) (err error) {
	ctx, span := s.startSpan(ctx, "MarkSMSFailed")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `
UPDATE notification_sms_logs
SET status = $2, error = $3, updated_at = $4
WHERE id = $1 AND status <> 'sent'`,
		in.ID, entity.SMSStatusFailed.String(), in.Error, in.UpdatedAt,
	)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		err = goerror.ErrNotFound
	}
	return err
}
