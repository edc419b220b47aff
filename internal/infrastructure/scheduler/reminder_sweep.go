package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appreminder "github.com/retailbill/backend/internal/application/reminder"
)

// TenantProvider provides the tenants to sweep
type TenantProvider interface {
	GetAllActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Sweeper runs one tenant's reminder sweep.
// *appreminder.ReminderService satisfies it.
type Sweeper interface {
	GenerateDueReminders(ctx context.Context, tenantID uuid.UUID) (*appreminder.SweepReport, error)
}

// SweepConfig holds reminder sweep scheduler configuration
type SweepConfig struct {
	Enabled bool
	// Interval is how often the sweep runs across all tenants
	Interval time.Duration
	// TenantTimeout bounds one tenant's sweep
	TenantTimeout time.Duration
}

// DefaultSweepConfig returns default sweep scheduler configuration
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Enabled:       true,
		Interval:      time.Hour,
		TenantTimeout: 2 * time.Minute,
	}
}

// ReminderSweepScheduler periodically runs ReminderService.GenerateDueReminders
// for every active tenant. The sweep itself is idempotent and serialized
// across instances by the Redis job guard, so overlapping schedules on
// separate replicas are safe.
type ReminderSweepScheduler struct {
	config  SweepConfig
	sweeper Sweeper
	tenants TenantProvider
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewReminderSweepScheduler creates a new reminder sweep scheduler
func NewReminderSweepScheduler(
	config SweepConfig,
	sweeper Sweeper,
	tenants TenantProvider,
	logger *zap.Logger,
) *ReminderSweepScheduler {
	return &ReminderSweepScheduler{
		config:  config,
		sweeper: sweeper,
		tenants: tenants,
		logger:  logger,
	}
}

// Start starts the sweep loop
func (s *ReminderSweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Reminder sweep scheduler started",
		zap.Duration("interval", s.config.Interval),
	)
	return nil
}

// Stop gracefully stops the sweep loop
func (s *ReminderSweepScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Reminder sweep scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Reminder sweep scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *ReminderSweepScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce sweeps all active tenants. A tenant failure is logged and the
// sweep moves on; the next interval retries it.
func (s *ReminderSweepScheduler) RunOnce(ctx context.Context) {
	tenantIDs, err := s.tenants.GetAllActiveTenantIDs(ctx)
	if err != nil {
		s.logger.Error("Failed to list tenants for reminder sweep", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		s.sweepTenant(ctx, tenantID)
	}
}

func (s *ReminderSweepScheduler) sweepTenant(ctx context.Context, tenantID uuid.UUID) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.config.TenantTimeout)
	defer cancel()

	report, err := s.sweeper.GenerateDueReminders(sweepCtx, tenantID)
	if err != nil {
		s.logger.Error("Reminder sweep failed for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
		return
	}
	if report.Skipped {
		s.logger.Debug("Reminder sweep skipped, another instance holds the guard",
			zap.String("tenant_id", tenantID.String()),
		)
		return
	}

	s.logger.Info("Reminder sweep completed for tenant",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("scanned", report.Scanned),
		zap.Int("created", report.Created),
		zap.Int("cancelled", report.Cancelled),
	)
}
