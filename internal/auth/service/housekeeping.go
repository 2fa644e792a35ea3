package service

import (
	"context"
	"log/slog"
	"time"
)

// HousekeepingService periodically purges expired email OTP entries so the
// durable drivers do not grow without bound. Verification never depends on
// it; expired entries are also rejected and removed on access.
type HousekeepingService struct {
	EmailOTP *EmailOTPService
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping worker. If interval is 0 or
// negative it defaults to 10 minutes.
func NewHousekeepingService(emailOTP *EmailOTPService, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	return &HousekeepingService{
		EmailOTP: emailOTP,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.EmailOTP.PurgeExpired(ctx)
	if err != nil {
		s.Logger.Error("failed to delete expired email otp codes", "error", err)
		return
	}
	s.Logger.Debug("housekeeping cleanup completed", "expired_codes_deleted", n)
}
