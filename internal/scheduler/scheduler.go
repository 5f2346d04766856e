package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/wardstock/stocktake/internal/config"
	"github.com/wardstock/stocktake/internal/domain/models"
	"github.com/wardstock/stocktake/internal/service/counting"
	"github.com/wardstock/stocktake/pkg/clients/notify"
)

// Scheduler manages the recurring progress report.
type Scheduler struct {
	cron     *cron.Cron
	svc      counting.CountingService
	notifier notify.Client
	cfg      config.Config
	logger   *zap.Logger
}

// NewScheduler creates a scheduler running in the configured timezone. An
// unknown timezone falls back to the host's local one.
func NewScheduler(cfg config.Config, svc counting.CountingService, notifier notify.Client, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Report.Timezone)
	if err != nil {
		logger.Warn("unknown report timezone, using local",
			zap.String("timezone", cfg.Report.Timezone), zap.Error(err))
		loc = time.Local
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		svc:      svc,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start registers the progress report job and launches the cron loop.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.Report.CronSchedule))

	if _, err := s.cron.AddFunc(s.cfg.Report.CronSchedule, s.sendProgressReport); err != nil {
		s.logger.Error("failed to schedule progress report", zap.Error(err))
	}

	s.cron.Start()
}

// Stop stops the cron loop. Jobs already running finish on their own.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) sendProgressReport() {
	s.logger.Info("generating progress report")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	summary := s.buildSummary(ctx)
	if summary == "" {
		s.logger.Info("no device progress to report")
		return
	}

	if err := s.notifier.PostSummary(ctx, summary); err != nil {
		s.logger.Error("failed to post progress report", zap.Error(err))
		return
	}
	s.logger.Info("progress report sent")
}

// buildSummary renders one line per configured device. A device whose table
// cannot be read is logged and left out rather than sinking the whole report.
func (s *Scheduler) buildSummary(ctx context.Context) string {
	lines := make([]string, 0, len(s.cfg.Report.Devices))
	for _, device := range s.cfg.Report.Devices {
		p, err := s.svc.Progress(ctx, device)
		if err != nil {
			s.logger.Error("failed to read device progress",
				zap.String("device", device), zap.Error(err))
			continue
		}
		lines = append(lines, formatProgressLine(p))
	}
	return strings.Join(lines, "\n")
}

func formatProgressLine(p models.DeviceProgress) string {
	return fmt.Sprintf("Cart %s (%s): %d/%d counted (%.1f%%)",
		p.Device, p.Table, p.Progress.Done, p.Progress.Total, p.Progress.Percent)
}
