package parking

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedParkingQueue serializes access to a ParkingQueue and records
// a span and metrics for every operation. It is safe for concurrent use.
type InstrumentedParkingQueue struct {
	mu        sync.Mutex
	queue     *ParkingQueue
	telemetry *TelemetryProvider

	// Metrics
	operations        metric.Int64Counter
	occupancyGauge    metric.Int64UpDownCounter
	capacityGauge     metric.Int64UpDownCounter
	operationDuration metric.Float64Histogram
	stayDuration      metric.Float64Histogram
}

func NewInstrumentedParkingQueue(capacity int, telemetry *TelemetryProvider, opts ...Option) (*InstrumentedParkingQueue, error) {
	queue, err := NewParkingQueue(capacity, opts...)
	if err != nil {
		return nil, err
	}

	meter := telemetry.Meter()

	operations, err := meter.Int64Counter("parking_operations_total",
		metric.WithDescription("Total number of parking queue operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	occupancyGauge, err := meter.Int64UpDownCounter("parking_queue_occupancy",
		metric.WithDescription("Current number of occupied parking slots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	capacityGauge, err := meter.Int64UpDownCounter("parking_queue_capacity",
		metric.WithDescription("Total number of parking slots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("operation_duration_seconds",
		metric.WithDescription("Duration of parking queue operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	stayDuration, err := meter.Float64Histogram("parking_stay_duration_seconds",
		metric.WithDescription("Time cars spent parked before leaving"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	iq := &InstrumentedParkingQueue{
		queue:             queue,
		telemetry:         telemetry,
		operations:        operations,
		occupancyGauge:    occupancyGauge,
		capacityGauge:     capacityGauge,
		operationDuration: operationDuration,
		stayDuration:      stayDuration,
	}

	capacityGauge.Add(context.Background(), int64(capacity))

	return iq, nil
}

func (iq *InstrumentedParkingQueue) Park(ctx context.Context, id string) (SlotView, error) {
	id = normalizeID(id)
	ctx, span := iq.telemetry.Tracer().Start(ctx, "parking_queue.park",
		trace.WithAttributes(attribute.String("car.id", id)))
	defer span.End()

	iq.mu.Lock()
	defer iq.mu.Unlock()

	start := time.Now()
	span.AddEvent("finding_rear_slot")

	slot, err := iq.queue.Park(id)

	var view SlotView
	if err == nil {
		view = iq.queue.view(slot)
		span.SetAttributes(
			attribute.Int("slot.index", slot),
			attribute.String("car.ticket", view.Car.Ticket),
		)
		span.AddEvent("slot_allocated", trace.WithAttributes(attribute.Int("slot.index", slot)))
		iq.occupancyGauge.Add(ctx, 1)
	}

	iq.record(ctx, span, "park", start, err)
	return view, err
}

func (iq *InstrumentedParkingQueue) Exit(ctx context.Context) (Departure, error) {
	ctx, span := iq.telemetry.Tracer().Start(ctx, "parking_queue.exit")
	defer span.End()

	iq.mu.Lock()
	defer iq.mu.Unlock()

	start := time.Now()
	span.AddEvent("releasing_front_slot")

	dep, err := iq.queue.Exit()
	if err == nil {
		iq.depart(ctx, span, "exit", dep)
	}

	iq.record(ctx, span, "exit", start, err)
	return dep, err
}

func (iq *InstrumentedParkingQueue) Search(ctx context.Context, id string) (SlotView, bool) {
	id = normalizeID(id)
	ctx, span := iq.telemetry.Tracer().Start(ctx, "parking_queue.search",
		trace.WithAttributes(attribute.String("car.id", id)))
	defer span.End()

	iq.mu.Lock()
	defer iq.mu.Unlock()

	start := time.Now()

	view, ok := iq.queue.Search(id)

	labels := []attribute.KeyValue{attribute.String("operation", "search")}
	if ok {
		span.SetAttributes(attribute.Int("slot.index", view.Index))
		span.AddEvent("car_found")
		labels = append(labels, attribute.String("status", "found"))
	} else {
		span.AddEvent("car_not_found")
		labels = append(labels, attribute.String("status", "not_found"))
	}

	iq.operations.Add(ctx, 1, metric.WithAttributes(labels...))
	iq.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(labels...))

	return view, ok
}

func (iq *InstrumentedParkingQueue) Remove(ctx context.Context, id string) (Departure, error) {
	id = normalizeID(id)
	ctx, span := iq.telemetry.Tracer().Start(ctx, "parking_queue.remove",
		trace.WithAttributes(attribute.String("car.id", id)))
	defer span.End()

	iq.mu.Lock()
	defer iq.mu.Unlock()

	start := time.Now()
	span.AddEvent("relinearizing_queue")

	dep, err := iq.queue.Remove(id)
	if err == nil {
		iq.depart(ctx, span, "remove", dep)
	}

	iq.record(ctx, span, "remove", start, err)
	return dep, err
}

func (iq *InstrumentedParkingQueue) Resize(ctx context.Context, capacity int) ([]Departure, error) {
	ctx, span := iq.telemetry.Tracer().Start(ctx, "parking_queue.resize",
		trace.WithAttributes(attribute.Int("capacity.requested", capacity)))
	defer span.End()

	iq.mu.Lock()
	defer iq.mu.Unlock()

	start := time.Now()
	previous := iq.queue.Capacity()

	evicted, err := iq.queue.Resize(capacity)
	if err == nil {
		span.SetAttributes(
			attribute.Int("capacity.previous", previous),
			attribute.Int("evicted_count", len(evicted)),
		)
		iq.capacityGauge.Add(ctx, int64(capacity-previous))
		for _, dep := range evicted {
			iq.depart(ctx, span, "evict", dep)
		}
	}

	iq.record(ctx, span, "resize", start, err)
	return evicted, err
}

func (iq *InstrumentedParkingQueue) Clear(ctx context.Context) int {
	ctx, span := iq.telemetry.Tracer().Start(ctx, "parking_queue.clear")
	defer span.End()

	iq.mu.Lock()
	defer iq.mu.Unlock()

	start := time.Now()
	cleared := iq.queue.Len()

	iq.queue.Clear()

	span.SetAttributes(attribute.Int("cleared_count", cleared))
	iq.occupancyGauge.Add(ctx, -int64(cleared))

	iq.record(ctx, span, "clear", start, nil)
	return cleared
}

func (iq *InstrumentedParkingQueue) Snapshot(ctx context.Context) ([]SlotView, Stats) {
	ctx, span := iq.telemetry.Tracer().Start(ctx, "parking_queue.snapshot")
	defer span.End()

	iq.mu.Lock()
	defer iq.mu.Unlock()

	start := time.Now()

	slots := iq.queue.Snapshot()
	stats := iq.queue.Stats()

	span.SetAttributes(
		attribute.Int("occupied_slots_count", stats.Occupied),
		attribute.Int("total_capacity", stats.Capacity),
	)

	iq.record(ctx, span, "snapshot", start, nil)
	return slots, stats
}

// Stats is the untraced dashboard read used by scrapers and reporters.
func (iq *InstrumentedParkingQueue) Stats() Stats {
	iq.mu.Lock()
	defer iq.mu.Unlock()
	return iq.queue.Stats()
}

func (iq *InstrumentedParkingQueue) Overstays(ctx context.Context, threshold time.Duration) []SlotView {
	_, span := iq.telemetry.Tracer().Start(ctx, "parking_queue.overstays",
		trace.WithAttributes(attribute.String("threshold", threshold.String())))
	defer span.End()

	iq.mu.Lock()
	defer iq.mu.Unlock()

	views := iq.queue.Overstays(threshold)
	span.SetAttributes(attribute.Int("overstay_count", len(views)))
	return views
}

// Now reads the queue's clock so callers can render stay durations
// consistently with the recorded entry times.
func (iq *InstrumentedParkingQueue) Now() time.Time {
	return iq.queue.Now()
}

// Retire zeroes this queue's contribution to the occupancy and capacity
// gauges. Call it when the queue is replaced.
func (iq *InstrumentedParkingQueue) Retire(ctx context.Context) {
	iq.mu.Lock()
	defer iq.mu.Unlock()

	iq.occupancyGauge.Add(ctx, -int64(iq.queue.Len()))
	iq.capacityGauge.Add(ctx, -int64(iq.queue.Capacity()))
}

func (iq *InstrumentedParkingQueue) depart(ctx context.Context, span trace.Span, reason string, dep Departure) {
	span.AddEvent("car_departed", trace.WithAttributes(
		attribute.String("car.id", dep.Car.ID),
		attribute.Int("slot.index", dep.Slot),
		attribute.Float64("stay_seconds", dep.Duration.Seconds()),
	))
	iq.occupancyGauge.Add(ctx, -1)
	iq.stayDuration.Record(ctx, dep.Duration.Seconds(),
		metric.WithAttributes(attribute.String("reason", reason)))
}

func (iq *InstrumentedParkingQueue) record(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{attribute.String("operation", operation)}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels,
			attribute.String("status", "failed"),
			attribute.String("error_kind", ErrorKind(err)),
		)
	} else {
		labels = append(labels, attribute.String("status", "success"))
	}

	iq.operations.Add(ctx, 1, metric.WithAttributes(labels...))
	iq.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))
}
