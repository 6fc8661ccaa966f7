package entity

import (
	"time"

	"github.com/shandysiswandi/phoneauth/internal/pkg/valueobject"
)

type SMSStatus string

const (
	SMSStatusQueued SMSStatus = "queued"
	SMSStatusSent   SMSStatus = "sent"
	SMSStatusFailed SMSStatus = "failed"
)

func (s SMSStatus) String() string {
	return string(s)
}

// SMSLog is one delivery attempt record per dispatch event. The code that was
// sent is never part of it.
type SMSLog struct {
	ID                int64
	EventID           string
	Phone             string
	Purpose           string
	Status            SMSStatus
	ProviderMessageID string
	ProviderResponse  valueobject.JSONMap
	Error             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type CreateSMSLog struct {
	ID        int64
	EventID   string
	Phone     string
	Purpose   string
	CreatedAt time.Time
}

type MarkSMSSent struct {
	ID                int64
	ProviderMessageID string
	ProviderResponse  valueobject.JSONMap
	UpdatedAt         time.Time
}

type MarkSMSFailed struct {
	ID        int64
	Error     string
	UpdatedAt time.Time
}
