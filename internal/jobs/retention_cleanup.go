package jobs

import (
	"context"
	"log"
	"time"

	"parcelvoice/internal/services"
)

// RetentionCleanupJob deletes command logs older than the configured
// retention window. Daily rollups are kept; only the raw log rows go.
type RetentionCleanupJob struct {
	analytics     *services.AnalyticsService
	retentionDays int
}

// NewRetentionCleanupJob creates a new retention cleanup job.
func NewRetentionCleanupJob(analytics *services.AnalyticsService, retentionDays int) *RetentionCleanupJob {
	return &RetentionCleanupJob{analytics: analytics, retentionDays: retentionDays}
}

// Run deletes expired command log rows.
func (j *RetentionCleanupJob) Run(ctx context.Context) error {
	if j.retentionDays <= 0 {
		log.Println("[RETENTION] Log retention disabled, skipping cleanup")
		return nil
	}

	log.Printf("[RETENTION] Purging command logs older than %d days...", j.retentionDays)
	startTime := time.Now()

	deleted, err := j.analytics.PurgeOlderThan(ctx, j.retentionDays)
	if err != nil {
		log.Printf("[RETENTION] Purge failed: %v", err)
		return err
	}

	log.Printf("[RETENTION] Purge complete: deleted %d logs in %v", deleted, time.Since(startTime))
	return nil
}

// GetNextRunTime returns the next 3 AM UTC.
func (j *RetentionCleanupJob) GetNextRunTime() time.Time {
	now := time.Now().UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), 3, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
