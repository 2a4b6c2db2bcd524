package jobs

import (
	"context"

	"carrental-backend/internal/logger"
)

// SweepRentals activates reservations whose start time has come and
// completes active rentals past their planned end.
func (jr *JobRunner) SweepRentals() {
	jr.runWithRecovery("SweepRentals", func() {
		ctx := context.Background()
		result, err := jr.services.Rental.SweepExpiredAndDueRentals(ctx, jr.now())
		if err != nil {
			logger.Error("Rental sweep failed", "error", err)
			return
		}
		if result.Failed > 0 {
			logger.Warn("Rental sweep finished with failures",
				"activated", result.Activated, "completed", result.Completed, "skipped", result.Skipped, "failed", result.Failed)
			return
		}
		logger.Info("Rental sweep finished",
			"activated", result.Activated, "completed", result.Completed, "skipped", result.Skipped)
	})
}
