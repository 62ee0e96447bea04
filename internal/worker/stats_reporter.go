package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/observability"
)

const snapshotTimeout = 30 * time.Second

// StatsSource computes the aggregate ticket report.
type StatsSource interface {
	Stats(ctx context.Context) (domain.TicketStats, error)
}

// StatsReporter periodically snapshots ticket stats into logs and gauges.
type StatsReporter struct {
	source  StatsSource
	metrics *observability.Metrics
	logger  *zap.Logger
	cron    *cron.Cron
}

// NewStatsReporter creates a reporter. Nothing runs until Start.
func NewStatsReporter(source StatsSource, metrics *observability.Metrics, logger *zap.Logger) *StatsReporter {
	return &StatsReporter{source: source, metrics: metrics, logger: logger}
}

// Start schedules snapshots on a standard 5-field cron expression. An empty
// schedule disables the reporter.
func (r *StatsReporter) Start(schedule string) error {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		r.logger.Info("stats reporter disabled (WORKER_STATS_CRON not set)")
		return nil
	}

	c := cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)))
	if _, err := c.AddFunc(schedule, func() { r.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("invalid stats schedule %q: %w", schedule, err)
	}
	c.Start()
	r.cron = c
	r.logger.Info("stats reporter scheduled", zap.String("cron", schedule))
	return nil
}

// Stop halts scheduling and waits for a running snapshot to finish.
func (r *StatsReporter) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}

// RunOnce takes a single snapshot.
func (r *StatsReporter) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()

	stats, err := r.source.Stats(ctx)
	if err != nil {
		r.logger.Warn("stats snapshot failed", zap.Error(err))
		return
	}
	r.metrics.SetTicketTotals(stats.TotalTickets, stats.OpenTickets)
	r.logger.Info("stats snapshot",
		zap.Int64("total_tickets", stats.TotalTickets),
		zap.Int64("open_tickets", stats.OpenTickets),
		zap.Float64("avg_tickets_per_day", stats.AvgTicketsPerDay),
		zap.Any("priority_breakdown", stats.PriorityBreakdown),
		zap.Any("category_breakdown", stats.CategoryBreakdown))
}
