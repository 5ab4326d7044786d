package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TenantProvider lists the tenants a sweep should visit
type TenantProvider interface {
	ActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// IntervalTrigger queues a sweep for every active tenant at a fixed interval
type IntervalTrigger struct {
	interval  time.Duration
	kinds     []JobKind
	scheduler *Scheduler
	tenants   TenantProvider
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewIntervalTrigger creates a trigger that sweeps with the given job kinds
func NewIntervalTrigger(interval time.Duration, scheduler *Scheduler, tenants TenantProvider, logger *zap.Logger, kinds ...JobKind) *IntervalTrigger {
	return &IntervalTrigger{
		interval:  interval,
		kinds:     kinds,
		scheduler: scheduler,
		tenants:   tenants,
		logger:    logger,
	}
}

// Start runs a first sweep right away, then one per interval
func (t *IntervalTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.isRunning {
		return nil
	}
	t.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Finance sweep trigger started",
		zap.Duration("interval", t.interval),
		zap.Int("job_kinds", len(t.kinds)),
	)
	return nil
}

// Stop stops the trigger loop
func (t *IntervalTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *IntervalTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	t.Sweep(ctx)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Sweep(ctx)
		}
	}
}

// Sweep queues the configured jobs for every active tenant and returns how many tenants were queued
func (t *IntervalTrigger) Sweep(ctx context.Context) int {
	tenantIDs, err := t.tenants.ActiveTenantIDs(ctx)
	if err != nil {
		t.logger.Error("Failed to list tenants for finance sweep", zap.Error(err))
		return 0
	}

	queued := 0
	for _, tenantID := range tenantIDs {
		if err := t.scheduler.ScheduleSweep(tenantID, t.kinds...); err != nil {
			t.logger.Error("Failed to schedule finance sweep for tenant",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
			continue
		}
		queued++
	}
	t.logger.Debug("Finance sweep queued", zap.Int("tenants", queued))
	return queued
}
