package parking

import (
	"context"
	"sync"
)

// QueueHolder owns the current parking queue for every front end that
// serves it. Installing a new queue retires the previous one, so all
// readers see the replacement on their next lookup.
type QueueHolder struct {
	telemetry *TelemetryProvider
	opts      []Option

	mu    sync.RWMutex
	queue *InstrumentedParkingQueue
}

// NewQueueHolder returns an empty holder. opts apply to every queue it
// installs.
func NewQueueHolder(telemetry *TelemetryProvider, opts ...Option) *QueueHolder {
	return &QueueHolder{
		telemetry: telemetry,
		opts:      opts,
	}
}

// Queue returns the current queue, if one has been installed.
func (h *QueueHolder) Queue() (*InstrumentedParkingQueue, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.queue, h.queue != nil
}

// Install replaces the current queue with an empty one of the given capacity.
// On error the current queue is left in place.
func (h *QueueHolder) Install(ctx context.Context, capacity int) error {
	queue, err := NewInstrumentedParkingQueue(capacity, h.telemetry, h.opts...)
	if err != nil {
		return err
	}

	h.mu.Lock()
	previous := h.queue
	h.queue = queue
	h.mu.Unlock()

	if previous != nil {
		previous.Retire(ctx)
	}
	return nil
}
