// Package cleanup runs the scheduled staging janitor: expired staged orders
// and old audit logs are deleted independently and every run leaves a metrics
// row behind.
package cleanup

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"trading-journal-backend/internal/models"
)

// StagedCleaner deletes expired staged rows.
type StagedCleaner interface {
	CleanupExpiredRecords(ctx context.Context) (int64, error)
	TTL() time.Duration
}

// Store is the persistence surface for log cleanup and metrics.
type Store interface {
	DeleteUploadLogsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CreateMetric(ctx context.Context, m *models.StagingMetric) error
	RecentMetrics(ctx context.Context, limit int) ([]models.StagingMetric, error)
}

type Monitor struct {
	staging StagedCleaner
	store   Store
	logTTL  time.Duration
}

func NewMonitor(staging StagedCleaner, store Store) *Monitor {
	return &Monitor{
		staging: staging,
		store:   store,
		// Audit logs outlive staged rows by a factor so failed uploads stay
		// diagnosable after their staging data is gone.
		logTTL: 4 * staging.TTL(),
	}
}

// Run executes one cleanup pass. The two halves fail independently: a staging
// cleanup error never blocks log cleanup and vice versa, and a final status
// is always produced.
func (m *Monitor) Run(ctx context.Context) *models.StagingMetric {
	started := time.Now()
	metric := &models.StagingMetric{
		ID:        uuid.New(),
		JobName:   "staging_cleanup",
		StartedAt: started,
		CreatedAt: time.Now(),
	}

	var failures []string

	stagedDeleted, err := m.staging.CleanupExpiredRecords(ctx)
	if err != nil {
		failures = append(failures, fmt.Sprintf("staged cleanup: %v", err))
	} else {
		metric.StagedDeleted = stagedDeleted
	}

	logsDeleted, err := m.store.DeleteUploadLogsBefore(ctx, time.Now().Add(-m.logTTL))
	if err != nil {
		failures = append(failures, fmt.Sprintf("log cleanup: %v", err))
	} else {
		metric.LogsDeleted = logsDeleted
	}

	metric.ErrorCount = len(failures)
	metric.Error = strings.Join(failures, "; ")
	switch len(failures) {
	case 0:
		metric.Status = models.CleanupStatusOK
	case 1:
		metric.Status = models.CleanupStatusPartial
	default:
		metric.Status = models.CleanupStatusFailed
	}
	metric.DurationMs = time.Since(started).Milliseconds()

	if err := m.store.CreateMetric(ctx, metric); err != nil {
		log.Printf("cleanup metric write failed: %v", err)
	}
	return metric
}

// RecentRuns returns the latest cleanup metrics for the health endpoint.
func (m *Monitor) RecentRuns(ctx context.Context, limit int) ([]models.StagingMetric, error) {
	return m.store.RecentMetrics(ctx, limit)
}

// StartScheduler registers the cleanup job with a cron runner and starts it.
func StartScheduler(schedule string, monitor *Monitor) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		metric := monitor.Run(context.Background())
		log.Printf("staging cleanup run: status=%s staged_deleted=%d logs_deleted=%d duration_ms=%d",
			metric.Status, metric.StagedDeleted, metric.LogsDeleted, metric.DurationMs)
	})
	if err != nil {
		return nil, fmt.Errorf("unable to schedule staging cleanup: %w", err)
	}
	c.Start()
	log.Printf("staging cleanup scheduler started with schedule %q", schedule)
	return c, nil
}
