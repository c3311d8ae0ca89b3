package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ablaqll/pmpk-website-sub000/shared/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	maxRetries = 8
	baseDelay  = time.Minute
)

// deliverer posts an encoded notification
type deliverer interface {
	Deliver(ctx context.Context, payload []byte) error
}

// RetryConsumer redelivers failed revalidation webhooks with exponential backoff
type RetryConsumer struct {
	db            *gorm.DB
	webhook       deliverer
	maxRetries    int
	batchSize     int
	checkInterval time.Duration
	now           func() time.Time
}

func NewRetryConsumer(db *gorm.DB, webhook deliverer, checkInterval time.Duration) *RetryConsumer {
	return &RetryConsumer{
		db:            db,
		webhook:       webhook,
		maxRetries:    maxRetries,
		batchSize:     100,
		checkInterval: checkInterval,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// backoff is the wait after the n-th failed retry: 1m, 2m, 4m, 8m...
func backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	return baseDelay * time.Duration(1<<(n-1))
}

// Run polls for due deliveries until ctx is cancelled
func (rc *RetryConsumer) Run(ctx context.Context) {
	logrus.Info("Starting retry consumer...")

	ticker := time.NewTicker(rc.checkInterval)
	defer ticker.Stop()

	for {
		if n, err := rc.ProcessDue(ctx); err != nil {
			logrus.WithError(err).Error("Error fetching failed deliveries")
		} else if n > 0 {
			logrus.Infof("Processed %d failed deliveries", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ProcessDue retries one batch of pending deliveries whose time has come
func (rc *RetryConsumer) ProcessDue(ctx context.Context) (int, error) {
	var due []models.FailedDelivery
	err := rc.db.WithContext(ctx).
		Where("status = ? AND next_retry_at <= ?", models.DeliveryPending, rc.now()).
		Order("next_retry_at ASC").
		Limit(rc.batchSize).
		Find(&due).Error
	if err != nil {
		return 0, err
	}

	for _, failed := range due {
		if ctx.Err() != nil {
			break
		}
		if err := rc.retry(ctx, failed); err != nil {
			logrus.WithField("delivery_id", failed.ID).WithError(err).Error("Failed to update delivery")
		}
	}
	return len(due), nil
}

func (rc *RetryConsumer) retry(ctx context.Context, failed models.FailedDelivery) error {
	now := rc.now()
	failed.UpdatedAt = now

	err := rc.webhook.Deliver(ctx, []byte(failed.Payload))
	switch {
	case err == nil:
		failed.Status = models.DeliveryResolved
		failed.ResolvedAt = &now
	default:
		failed.RetryCount++
		if failed.RetryCount >= rc.maxRetries {
			failed.Status = models.DeliveryPermanentlyFailed
			failed.ResolvedAt = &now
			failed.NextRetryAt = nil
			failed.ErrorMessage = fmt.Sprintf("Max retries reached: %s", err.Error())
			logrus.WithFields(logrus.Fields{"event_id": failed.EventID, "entity": failed.Entity}).
				Warn("Revalidation permanently failed")
		} else {
			next := now.Add(backoff(failed.RetryCount))
			failed.NextRetryAt = &next
			failed.ErrorMessage = err.Error()
		}
	}

	return rc.db.WithContext(ctx).Save(&failed).Error
}

// RetryStats counts deliveries by status
type RetryStats struct {
	Pending           int64 `json:"pending"`
	Resolved          int64 `json:"resolved"`
	PermanentlyFailed int64 `json:"permanently_failed"`
}

// GetRetryStats returns retry statistics
func (rc *RetryConsumer) GetRetryStats(ctx context.Context) (map[string]interface{}, error) {
	var stats RetryStats
	for status, dst := range map[models.DeliveryStatus]*int64{
		models.DeliveryPending:           &stats.Pending,
		models.DeliveryResolved:          &stats.Resolved,
		models.DeliveryPermanentlyFailed: &stats.PermanentlyFailed,
	} {
		if err := rc.db.WithContext(ctx).Model(&models.FailedDelivery{}).Where("status = ?", status).Count(dst).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s deliveries: %w", status, err)
		}
	}

	return map[string]interface{}{
		"retry_stats": stats,
		"config": map[string]interface{}{
			"max_retries":    rc.maxRetries,
			"batch_size":     rc.batchSize,
			"check_interval": rc.checkInterval.String(),
		},
	}, nil
}
