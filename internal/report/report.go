// Package report periodically logs parking occupancy and cars that have
// stayed longer than a threshold.
package report

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"parking-queue/internal/parking"
)

var tracer = otel.Tracer("parking-queue-report")

type Source interface {
	Stats() parking.Stats
	Overstays(ctx context.Context, threshold time.Duration) []parking.SlotView
	Now() time.Time
}

// Lookup returns the queue currently owned by the presentation layer, if any.
type Lookup func() (Source, bool)

type Overstay struct {
	CarID    string
	Slot     int
	Duration time.Duration
}

type Report struct {
	GeneratedAt time.Time
	Stats       parking.Stats
	Overstays   []Overstay
}

type Reporter struct {
	lookup    Lookup
	threshold time.Duration
	logger    *slog.Logger
}

func NewReporter(lookup Lookup, threshold time.Duration, logger *slog.Logger) *Reporter {
	return &Reporter{
		lookup:    lookup,
		threshold: threshold,
		logger:    logger,
	}
}

// Run builds and logs one report. It returns false when no queue exists.
func (r *Reporter) Run(ctx context.Context) (Report, bool) {
	ctx, span := tracer.Start(ctx, "report.occupancy")
	defer span.End()

	source, ok := r.lookup()
	if !ok {
		span.AddEvent("parking_queue_not_created")
		return Report{}, false
	}

	now := source.Now()
	rep := Report{
		GeneratedAt: now,
		Stats:       source.Stats(),
	}
	for _, view := range source.Overstays(ctx, r.threshold) {
		rep.Overstays = append(rep.Overstays, Overstay{
			CarID:    view.Car.ID,
			Slot:     view.Index,
			Duration: view.Car.Duration(now),
		})
	}

	span.SetAttributes(
		attribute.Int("occupied", rep.Stats.Occupied),
		attribute.Int("capacity", rep.Stats.Capacity),
		attribute.Int("overstay_count", len(rep.Overstays)),
	)

	r.logger.InfoContext(ctx, "occupancy report",
		slog.Int("occupied", rep.Stats.Occupied),
		slog.Int("capacity", rep.Stats.Capacity),
		slog.Int("free", rep.Stats.Free),
		slog.Int("overstays", len(rep.Overstays)),
	)
	for _, o := range rep.Overstays {
		r.logger.WarnContext(ctx, "car overstaying",
			slog.String("car_id", o.CarID),
			slog.Int("slot", o.Slot),
			slog.Duration("stay", o.Duration),
			slog.Duration("threshold", r.threshold),
		)
	}

	return rep, true
}

type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler runs the reporter on a standard cron spec or a descriptor
// such as "@every 1m".
func NewScheduler(spec string, reporter *Reporter) (*Scheduler, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		reporter.Run(context.Background())
	}); err != nil {
		return nil, err
	}
	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for a running report to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
