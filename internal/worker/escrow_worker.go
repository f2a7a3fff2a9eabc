// internal/worker/escrow_worker.go
package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fabhub/fabhub-backend/internal/config"
	"github.com/fabhub/fabhub-backend/internal/services"
)

// EscrowWorker periodically releases escrows whose hold deadline passed.
// It also records the daily analytics snapshot once per sweep cycle that
// crosses midnight.
type EscrowWorker struct {
	escrowService    *services.EscrowService
	analyticsService *services.AnalyticsService
	interval         time.Duration
	stop             chan struct{}
	done             chan struct{}
}

func NewEscrowWorker(cfg *config.Config, escrowService *services.EscrowService, analyticsService *services.AnalyticsService) *EscrowWorker {
	interval := time.Duration(cfg.Marketplace.EscrowSweepMinutes) * time.Minute
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	return &EscrowWorker{
		escrowService:    escrowService,
		analyticsService: analyticsService,
		interval:         interval,
		stop:             make(chan struct{}),
		done:             make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called or the context ends.
// One sweep runs immediately on startup to catch escrows that came due
// while the service was down.
func (w *EscrowWorker) Start(ctx context.Context) {
	go func() {
		defer close(w.done)

		logrus.WithField("interval", w.interval).Info("Escrow worker started")

		w.sweep()

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		lastSnapshot := time.Now()

		for {
			select {
			case <-ctx.Done():
				logrus.Info("Escrow worker stopping (context cancelled)")
				return
			case <-w.stop:
				logrus.Info("Escrow worker stopping")
				return
			case <-ticker.C:
				w.sweep()

				if time.Now().Day() != lastSnapshot.Day() {
					if err := w.analyticsService.RecordDailySnapshot(); err != nil {
						logrus.WithError(err).Error("Failed to record analytics snapshot")
					}
					lastSnapshot = time.Now()
				}
			}
		}
	}()
}

// Stop signals the loop to exit and waits for the in-flight sweep.
func (w *EscrowWorker) Stop() {
	close(w.stop)
	<-w.done
}

func (w *EscrowWorker) sweep() {
	released, err := w.escrowService.ReleaseDueEscrows()
	if err != nil {
		logrus.WithError(err).Error("Escrow sweep failed")
		return
	}
	if released > 0 {
		logrus.WithField("released", released).Info("Escrow sweep released due escrows")
	}
}
