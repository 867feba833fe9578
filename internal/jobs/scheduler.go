package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/you/dispatchsvc/domain"
	"github.com/you/dispatchsvc/internal/metrics"
)

// Job names, also used as metric labels
const (
	JobSubscriptionExpiry = "subscription_expiry"
	JobOTPCleanup         = "otp_cleanup"
	JobRetention          = "notification_retention"
)

// Schedules holds the cron specs for each sweep. An empty spec disables that sweep.
type Schedules struct {
	SubscriptionExpiry string
	OTPCleanup         string
	OTPCleanupAge      time.Duration
	Retention          string
	RetentionDays      int
	// Timeout bounds a single run
	Timeout time.Duration
}

// Scheduler runs the periodic maintenance sweeps
type Scheduler struct {
	cron          *cron.Cron
	subscriptions domain.SubscriptionService
	otps          domain.OTPService
	notifications domain.NotificationService
	schedules     Schedules
	log           *zap.Logger
	entries       map[string]cron.EntryID
}

// NewScheduler creates a scheduler. Any service may be nil to skip its sweep.
func NewScheduler(subscriptions domain.SubscriptionService, otps domain.OTPService, notifications domain.NotificationService, schedules Schedules, log *zap.Logger) *Scheduler {
	if schedules.Timeout <= 0 {
		schedules.Timeout = 5 * time.Minute
	}
	if schedules.OTPCleanupAge <= 0 {
		schedules.OTPCleanupAge = 24 * time.Hour
	}
	if schedules.RetentionDays <= 0 {
		schedules.RetentionDays = 90
	}
	return &Scheduler{
		cron:          cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger))),
		subscriptions: subscriptions,
		otps:          otps,
		notifications: notifications,
		schedules:     schedules,
		log:           log.Named("jobs"),
		entries:       make(map[string]cron.EntryID),
	}
}

// Register adds every configured sweep to the cron table
func (s *Scheduler) Register() error {
	if s.subscriptions != nil {
		if err := s.add(JobSubscriptionExpiry, s.schedules.SubscriptionExpiry, s.ExpireSubscriptions); err != nil {
			return err
		}
	}
	if s.otps != nil {
		if err := s.add(JobOTPCleanup, s.schedules.OTPCleanup, s.CleanupOTPs); err != nil {
			return err
		}
	}
	if s.notifications != nil {
		if err := s.add(JobRetention, s.schedules.Retention, s.PurgeNotifications); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) add(name, spec string, run func(ctx context.Context) (int64, error)) error {
	if spec == "" {
		s.log.Info("job disabled", zap.String("job", name))
		return nil
	}
	id, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.schedules.Timeout)
		defer cancel()
		s.execute(ctx, name, run)
	})
	if err != nil {
		return fmt.Errorf("register job %s (%q): %w", name, spec, err)
	}
	s.entries[name] = id
	s.log.Info("registered job", zap.String("job", name), zap.String("schedule", spec))
	return nil
}

func (s *Scheduler) execute(ctx context.Context, name string, run func(ctx context.Context) (int64, error)) {
	start := time.Now()
	n, err := run(ctx)
	metrics.JobRuns.WithLabelValues(name, metrics.Result(err == nil)).Inc()
	if err != nil {
		s.log.Error("job failed", zap.String("job", name), zap.Duration("took", time.Since(start)), zap.Error(err))
		return
	}
	s.log.Info("job finished", zap.String("job", name), zap.Int64("affected", n), zap.Duration("took", time.Since(start)))
}

// Start begins running registered jobs in the background
func (s *Scheduler) Start() {
	s.log.Info("starting job scheduler", zap.Int("jobs", len(s.entries)))
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs until ctx is done
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("job scheduler stop timed out")
	}
}

// Entries reports the registered job names
func (s *Scheduler) Entries() []string {
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	return names
}

// ExpireSubscriptions flips lapsed subscriptions to expired
func (s *Scheduler) ExpireSubscriptions(ctx context.Context) (int64, error) {
	return s.subscriptions.UpdateExpiredSubscriptions(ctx)
}

// CleanupOTPs removes OTP records older than the cleanup age
func (s *Scheduler) CleanupOTPs(ctx context.Context) (int64, error) {
	return s.otps.CleanupExpired(ctx, s.schedules.OTPCleanupAge)
}

// PurgeNotifications applies the notification retention window
func (s *Scheduler) PurgeNotifications(ctx context.Context) (int64, error) {
	return s.notifications.DeleteOldNotifications(ctx, s.schedules.RetentionDays)
}

// RunNow executes a registered job synchronously, outside its schedule
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	var run func(ctx context.Context) (int64, error)
	switch name {
	case JobSubscriptionExpiry:
		run = s.ExpireSubscriptions
	case JobOTPCleanup:
		run = s.CleanupOTPs
	case JobRetention:
		run = s.PurgeNotifications
	}
	if _, ok := s.entries[name]; !ok || run == nil {
		return fmt.Errorf("unknown job %q", name)
	}
	s.execute(ctx, name, run)
	return nil
}
