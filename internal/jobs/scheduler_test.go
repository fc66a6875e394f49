package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingJob struct {
	runs int32
	next time.Time
}

func (j *countingJob) Run(ctx context.Context) error {
	atomic.AddInt32(&j.runs, 1)
	return nil
}

func (j *countingJob) GetNextRunTime() time.Time {
	return j.next
}

func TestScheduler_RunNow(t *testing.T) {
	scheduler := NewJobScheduler()
	job := &countingJob{next: time.Now().Add(time.Hour)}
	scheduler.Register("counting", job)

	if err := scheduler.RunNow("counting"); err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}
	if got := atomic.LoadInt32(&job.runs); got != 1 {
		t.Errorf("Expected 1 run, got %d", got)
	}

	// Unknown jobs are a no-op, not an error
	if err := scheduler.RunNow("missing"); err != nil {
		t.Errorf("Expected nil for an unknown job, got %v", err)
	}
}

func TestScheduler_StartAndStop(t *testing.T) {
	scheduler := NewJobScheduler()
	job := &countingJob{next: time.Now().Add(10 * time.Millisecond)}
	scheduler.Register("counting", job)

	scheduler.Start()
	time.Sleep(50 * time.Millisecond)
	scheduler.Stop()

	if got := atomic.LoadInt32(&job.runs); got == 0 {
		t.Error("Expected the job to have run at least once")
	}

	// Stop after stop is safe
	scheduler.Stop()
}

func TestRetentionJob_NextRunIsThreeAM(t *testing.T) {
	job := NewRetentionCleanupJob(nil, 90)
	next := job.GetNextRunTime()

	if next.Hour() != 3 || next.Minute() != 0 {
		t.Errorf("Expected a 3 AM run, got %s", next.Format(time.RFC3339))
	}
	if !next.After(time.Now().UTC()) {
		t.Errorf("Expected a future run time, got %s", next)
	}
}

func TestRollupBackfillJob_NextRunIsAfterMidnight(t *testing.T) {
	job := NewRollupBackfillJob(nil)
	next := job.GetNextRunTime()

	if next.Hour() != 0 || next.Minute() != 15 {
		t.Errorf("Expected a 00:15 run, got %s", next.Format(time.RFC3339))
	}
	if !next.After(time.Now().UTC()) {
		t.Errorf("Expected a future run time, got %s", next)
	}
}
