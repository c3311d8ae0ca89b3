package models

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus is the lifecycle state of a failed webhook delivery
type DeliveryStatus string

const (
	DeliveryPending           DeliveryStatus = "pending"
	DeliveryResolved          DeliveryStatus = "resolved"
	DeliveryPermanentlyFailed DeliveryStatus = "permanently_failed"
)

// FailedDelivery is a content event whose revalidation webhook could not be
// delivered; the retry consumer picks it up later.
type FailedDelivery struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	EventID      string         `json:"eventId" gorm:"type:varchar(64);not null;index"`
	ClientID     uuid.UUID      `json:"clientId" gorm:"type:uuid;not null"`
	Entity       string         `json:"entity" gorm:"type:varchar(50);not null"`
	ItemID       uuid.UUID      `json:"itemId" gorm:"type:uuid"`
	Payload      string         `json:"payload" gorm:"type:text;not null"`
	ErrorMessage string         `json:"errorMessage" gorm:"type:text;not null"`
	RetryCount   int            `json:"retryCount" gorm:"not null;default:0"`
	Status       DeliveryStatus `json:"status" gorm:"type:varchar(30);not null;default:pending;index"`
	NextRetryAt  *time.Time     `json:"nextRetryAt,omitempty" gorm:"index"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	ResolvedAt   *time.Time     `json:"resolvedAt,omitempty"`
}

func (FailedDelivery) TableName() string {
	return "failed_deliveries"
}
