package jobs

import (
	"time"

	"rental-modification-backend/internal/config"
	"rental-modification-backend/internal/logger"
	"rental-modification-backend/internal/repository"
	"rental-modification-backend/internal/service"
)

// JobRunner coordinates the scheduled early-return sweeps
type JobRunner struct {
	earlyReturns repository.EarlyReturnRepository
	service      service.EarlyReturnService
	config       *config.Config
	now          func() time.Time
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(earlyReturns repository.EarlyReturnRepository, svc service.EarlyReturnService, cfg *config.Config) *JobRunner {
	return &JobRunner{
		earlyReturns: earlyReturns,
		service:      svc,
		config:       cfg,
		now:          time.Now,
	}
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// RunAll runs every sweep once (for manual execution). Shipment signals go
// first so requests they move to RETURNED are seen by the auto-complete pass.
func (jr *JobRunner) RunAll() {
	jr.SyncShipmentSignals()
	jr.AutoCompleteEarlyReturns()
}
