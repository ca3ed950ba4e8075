package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trading-journal-backend/internal/services/cleanup"
)

// CronHandler exposes the scheduled cleanup as HTTP endpoints for external
// schedulers, gated by a shared secret.
type CronHandler struct {
	monitor *cleanup.Monitor
}

func NewCronHandler(monitor *cleanup.Monitor) *CronHandler {
	return &CronHandler{monitor: monitor}
}

// RunCleanup triggers one cleanup pass and reports its metric.
func (h *CronHandler) RunCleanup(c *gin.Context) {
	metric := h.monitor.Run(c.Request.Context())
	status := http.StatusOK
	if metric.Status != "ok" {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{
		"status":        metric.Status,
		"stagedDeleted": metric.StagedDeleted,
		"logsDeleted":   metric.LogsDeleted,
		"errorCount":    metric.ErrorCount,
		"error":         metric.Error,
		"durationMs":    metric.DurationMs,
	})
}

// CleanupStatus returns recent run history for health monitoring.
func (h *CronHandler) CleanupStatus(c *gin.Context) {
	runs, err := h.monitor.RecentRuns(c.Request.Context(), 20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	healthy := true
	if len(runs) > 0 && runs[0].Status == "failed" {
		healthy = false
	}
	c.JSON(http.StatusOK, gin.H{"healthy": healthy, "runs": runs})
}
