package revalidate

import (
	"context"
	"fmt"
	"time"

	"github.com/ablaqll/pmpk-website-sub000/shared/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FirstRetryDelay is how long a new failure waits before its first retry
const FirstRetryDelay = time.Minute

// RecordFailure stores an undelivered notification for the retry consumer
func RecordFailure(ctx context.Context, db *gorm.DB, n Notification, payload []byte, cause error) error {
	next := time.Now().UTC().Add(FirstRetryDelay)
	failed := models.FailedDelivery{
		ID:           uuid.New(),
		EventID:      n.EventID,
		ClientID:     n.ClientID,
		Entity:       n.Entity,
		ItemID:       n.ItemID,
		Payload:      string(payload),
		ErrorMessage: cause.Error(),
		Status:       models.DeliveryPending,
		NextRetryAt:  &next,
	}
	if err := db.WithContext(ctx).Create(&failed).Error; err != nil {
		return fmt.Errorf("failed to store failed delivery: %w", err)
	}
	return nil
}
