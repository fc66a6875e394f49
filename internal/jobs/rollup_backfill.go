package jobs

import (
	"context"
	"log"
	"time"

	"parcelvoice/internal/services"
)

// RollupBackfillJob recomputes the previous day's analytics rollups shortly
// after midnight. The per-command recomputes already keep the current day
// fresh; this pass closes out the finished day so late writes near the date
// boundary are folded in.
type RollupBackfillJob struct {
	analytics *services.AnalyticsService
}

// NewRollupBackfillJob creates a new rollup backfill job.
func NewRollupBackfillJob(analytics *services.AnalyticsService) *RollupBackfillJob {
	return &RollupBackfillJob{analytics: analytics}
}

// Run recomputes yesterday's rollup for every user that issued commands,
// plus the global rollup.
func (j *RollupBackfillJob) Run(ctx context.Context) error {
	date := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	log.Printf("[ROLLUP] Backfilling analytics for %s...", date)

	userIDs, err := j.analytics.DistinctUserIDs(ctx, date)
	if err != nil {
		log.Printf("[ROLLUP] Failed to list users for %s: %v", date, err)
		return err
	}

	for _, userID := range userIDs {
		if _, err := j.analytics.RecomputeDaily(ctx, date, userID); err != nil {
			log.Printf("[ROLLUP] Failed to recompute %s for user %d: %v", date, userID, err)
		}
	}
	if _, err := j.analytics.RecomputeDaily(ctx, date, 0); err != nil {
		log.Printf("[ROLLUP] Failed to recompute global rollup for %s: %v", date, err)
		return err
	}

	log.Printf("[ROLLUP] Backfill complete for %s (%d users)", date, len(userIDs))
	return nil
}

// GetNextRunTime returns the next 00:15 UTC.
func (j *RollupBackfillJob) GetNextRunTime() time.Time {
	now := time.Now().UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 15, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
