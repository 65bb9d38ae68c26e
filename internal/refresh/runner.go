package refresh

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/dashboard-feed-service/internal/client"
	"github.com/kjstillabower/dashboard-feed-service/internal/observability"
	"github.com/kjstillabower/dashboard-feed-service/internal/traffic"
)

// Runner executes cycles of one Fetcher and records their outcome in metrics,
// the status registry and the traffic tracker. A cycle that starts while the
// previous one is still running is skipped.
type Runner struct {
	fetcher Fetcher
	status  *StatusRegistry
	logger  *zap.Logger
	running atomic.Bool
}

// NewRunner wraps f. status may be nil.
func NewRunner(f Fetcher, status *StatusRegistry, logger *zap.Logger) *Runner {
	return &Runner{fetcher: f, status: status, logger: loggerOrNop(logger).With(zap.String("fetcher", f.Name()))}
}

// Name returns the wrapped fetcher's name.
func (r *Runner) Name() string { return r.fetcher.Name() }

// Run executes one cycle. Returns false if the cycle was skipped.
func (r *Runner) Run(ctx context.Context) bool {
	name := r.fetcher.Name()
	if !r.running.CompareAndSwap(false, true) {
		observability.FetchCyclesSkippedTotal.WithLabelValues(name).Inc()
		r.logger.Debug("previous cycle still running, skipping")
		return false
	}
	defer r.running.Store(false)

	start := time.Now()
	if r.status != nil {
		r.status.started(name, start)
	}
	r.logger.Debug("fetch cycle started")

	err := r.fetcher.Fetch(ctx)

	end := time.Now()
	observability.FetchCycleDuration.WithLabelValues(name).Observe(end.Sub(start).Seconds())
	observability.FetchCyclesTotal.WithLabelValues(name, cycleResult(err)).Inc()
	traffic.RecordCycle(name, err == nil)
	if r.status != nil {
		r.status.finished(name, end, err)
	}
	if err != nil {
		r.logger.Warn("fetch cycle completed with errors",
			zap.String("result", cycleResult(err)),
			zap.String("category", string(client.CategorizeError(err))),
			zap.Duration("duration", end.Sub(start)),
			zap.Error(err))
		return true
	}
	observability.FetchLastSuccessTimestamp.WithLabelValues(name).Set(float64(end.Unix()))
	r.logger.Debug("fetch cycle completed", zap.Duration("duration", end.Sub(start)))
	return true
}

func cycleResult(err error) string {
	if err == nil {
		return "success"
	}
	var ce *CycleError
	if errors.As(err, &ce) && ce.Partial() {
		return "partial"
	}
	return "error"
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
