package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"parking-queue/internal/logging"
	"parking-queue/internal/parking"
)

// Handler serves the queue held by queues. The holder may be shared with
// other front ends, so every request looks the queue up again.
type Handler struct {
	serviceName string
	queues      *parking.QueueHolder
}

func NewHandler(serviceName string, queues *parking.QueueHolder) *Handler {
	return &Handler{
		serviceName: serviceName,
		queues:      queues,
	}
}

// Queue returns the current queue, if one has been created.
func (h *Handler) Queue() (*parking.InstrumentedParkingQueue, bool) {
	return h.queues.Queue()
}

func (h *Handler) current() (*parking.InstrumentedParkingQueue, error) {
	queue, ok := h.Queue()
	if !ok {
		return nil, errQueueNotCreated
	}
	return queue, nil
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: h.serviceName,
		Meta:    extractMeta(r.Context()),
	})
}

func (h *Handler) CreateQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CapacityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.queues.Install(ctx, req.Capacity); err != nil {
		h.fail(ctx, w, "create", err)
		return
	}

	logging.Info(ctx, "parking queue created", slog.Int("capacity", req.Capacity))
	WriteSuccess(ctx, w, "Parking queue created successfully", map[string]any{
		"capacity": req.Capacity,
	})
}

func (h *Handler) Park(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	queue, err := h.current()
	if err != nil {
		h.fail(ctx, w, "park", err)
		return
	}

	var req ParkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	view, err := queue.Park(ctx, req.CarID)
	if err != nil {
		h.fail(ctx, w, "park", err)
		return
	}

	WriteSuccess(ctx, w, "Car parked successfully", newCarResponse(view, view.Car.EntryTime))
}

func (h *Handler) Exit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	queue, err := h.current()
	if err != nil {
		h.fail(ctx, w, "exit", err)
		return
	}

	dep, err := queue.Exit(ctx)
	if err != nil {
		h.fail(ctx, w, "exit", err)
		return
	}

	WriteSuccess(ctx, w, "Car exited", newDepartureResponse(dep))
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	queue, err := h.current()
	if err != nil {
		h.fail(ctx, w, "search", err)
		return
	}

	carID := chi.URLParam(r, "carID")
	view, ok := queue.Search(ctx, carID)
	if !ok {
		WriteError(ctx, w, http.StatusNotFound, "Car not found")
		return
	}

	WriteSuccess(ctx, w, "Car found", newCarResponse(view, queue.Now()))
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	queue, err := h.current()
	if err != nil {
		h.fail(ctx, w, "remove", err)
		return
	}

	dep, err := queue.Remove(ctx, chi.URLParam(r, "carID"))
	if err != nil {
		h.fail(ctx, w, "remove", err)
		return
	}

	WriteSuccess(ctx, w, "Car removed", newDepartureResponse(dep))
}

func (h *Handler) Resize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	queue, err := h.current()
	if err != nil {
		h.fail(ctx, w, "resize", err)
		return
	}

	var req CapacityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	evicted, err := queue.Resize(ctx, req.Capacity)
	if err != nil {
		h.fail(ctx, w, "resize", err)
		return
	}

	resp := ResizeResponse{
		Capacity: req.Capacity,
		Evicted:  make([]DepartureResponse, 0, len(evicted)),
	}
	for _, dep := range evicted {
		logging.Warn(ctx, "car evicted by resize",
			slog.String("car_id", dep.Car.ID),
			slog.Int("slot", dep.Slot),
		)
		resp.Evicted = append(resp.Evicted, newDepartureResponse(dep))
	}

	WriteSuccess(ctx, w, "Parking queue resized", resp)
}

func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	queue, err := h.current()
	if err != nil {
		h.fail(ctx, w, "clear", err)
		return
	}

	cleared := queue.Clear(ctx)

	WriteSuccess(ctx, w, "Parking queue cleared", map[string]any{
		"cleared": cleared,
	})
}

func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	queue, err := h.current()
	if err != nil {
		h.fail(ctx, w, "snapshot", err)
		return
	}

	slots, stats := queue.Snapshot(ctx)

	WriteSuccess(ctx, w, "Snapshot retrieved successfully", newSnapshotResponse(slots, stats))
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.Error(ctx, "parking queue operation failed",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
	} else {
		logging.Debug(ctx, "parking queue operation rejected",
			slog.String("operation", operation),
			slog.String("error_kind", parking.ErrorKind(err)),
		)
	}
	WriteError(ctx, w, status, err.Error())
}
