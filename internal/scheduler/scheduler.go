package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/conradkoh/jcep-sub000/internal/config"
	"github.com/conradkoh/jcep-sub000/internal/service"
)

// Scheduler runs the periodic background jobs: pending-review reminders
// and expired-session cleanup.
type Scheduler struct {
	cron        *cron.Cron
	formService *service.ReviewFormService
	authService *service.AuthService
	cfg         *config.ReminderConfig
}

// New creates a scheduler with the given services
func New(cfg *config.ReminderConfig, formService *service.ReviewFormService, authService *service.AuthService) *Scheduler {
	return &Scheduler{
		cron:        cron.New(),
		formService: formService,
		authService: authService,
		cfg:         cfg,
	}
}

// Start registers the jobs and starts the cron loop
func (s *Scheduler) Start() error {
	if s.cfg.Enabled {
		if _, err := s.cron.AddFunc(s.cfg.Cron, s.remindPending); err != nil {
			return fmt.Errorf("failed to schedule reminder job: %w", err)
		}
		slog.Info("Reminder job scheduled", "cron", s.cfg.Cron)
	}

	// Session cleanup is cheap and always on.
	if _, err := s.cron.AddFunc("@hourly", s.cleanupSessions); err != nil {
		return fmt.Errorf("failed to schedule session cleanup: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the cron loop, waiting for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) remindPending() {
	sent, err := s.formService.RemindPending()
	if err != nil {
		slog.Error("Pending review reminder run failed", "error", err)
		return
	}
	slog.Info("Pending review reminders sent", "count", sent)
}

func (s *Scheduler) cleanupSessions() {
	if err := s.authService.CleanupExpiredSessions(); err != nil {
		slog.Error("Expired session cleanup failed", "error", err)
	}
}
