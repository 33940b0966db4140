package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"parking-queue/internal/parking"
)

type Meta struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type CapacityRequest struct {
	Capacity int `json:"capacity"`
}

type ParkRequest struct {
	CarID string `json:"car_id"`
}

type CarResponse struct {
	CarID           string    `json:"car_id"`
	Ticket          string    `json:"ticket"`
	Slot            int       `json:"slot"`
	EntryTime       time.Time `json:"entry_time"`
	DurationSeconds float64   `json:"duration_seconds"`
}

type DepartureResponse struct {
	CarID           string    `json:"car_id"`
	Ticket          string    `json:"ticket"`
	Slot            int       `json:"slot"`
	EntryTime       time.Time `json:"entry_time"`
	ExitTime        time.Time `json:"exit_time"`
	DurationSeconds float64   `json:"duration_seconds"`
	Duration        string    `json:"duration"`
}

type ResizeResponse struct {
	Capacity int                 `json:"capacity"`
	Evicted  []DepartureResponse `json:"evicted"`
}

type SlotStatus struct {
	Slot      int        `json:"slot"`
	Occupied  bool       `json:"occupied"`
	CarID     string     `json:"car_id,omitempty"`
	EntryTime *time.Time `json:"entry_time,omitempty"`
	Front     bool       `json:"front,omitempty"`
	Rear      bool       `json:"rear,omitempty"`
}

type SnapshotResponse struct {
	Capacity  int          `json:"capacity"`
	Occupied  int          `json:"occupied"`
	Available int          `json:"available"`
	Front     *int         `json:"front"`
	Rear      *int         `json:"rear"`
	Slots     []SlotStatus `json:"slots"`
}

func newCarResponse(view parking.SlotView, now time.Time) CarResponse {
	return CarResponse{
		CarID:           view.Car.ID,
		Ticket:          view.Car.Ticket,
		Slot:            view.Index,
		EntryTime:       view.Car.EntryTime,
		DurationSeconds: view.Car.Duration(now).Seconds(),
	}
}

func newDepartureResponse(dep parking.Departure) DepartureResponse {
	return DepartureResponse{
		CarID:           dep.Car.ID,
		Ticket:          dep.Car.Ticket,
		Slot:            dep.Slot,
		EntryTime:       dep.Car.EntryTime,
		ExitTime:        dep.ExitTime,
		DurationSeconds: dep.Duration.Seconds(),
		Duration:        parking.FormatDuration(dep.Duration),
	}
}

func newSnapshotResponse(slots []parking.SlotView, stats parking.Stats) SnapshotResponse {
	resp := SnapshotResponse{
		Capacity:  stats.Capacity,
		Occupied:  stats.Occupied,
		Available: stats.Free,
		Slots:     make([]SlotStatus, 0, len(slots)),
	}
	if stats.Occupied > 0 {
		front, rear := stats.Front, stats.Rear
		resp.Front = &front
		resp.Rear = &rear
	}

	for _, slot := range slots {
		status := SlotStatus{Slot: slot.Index, Occupied: slot.IsOccupied()}
		if slot.IsOccupied() {
			entry := slot.Car.EntryTime
			status.CarID = slot.Car.ID
			status.EntryTime = &entry
			status.Front = slot.IsFront
			status.Rear = slot.IsRear
		}
		resp.Slots = append(resp.Slots, status)
	}

	return resp
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractMeta(ctx context.Context) *Meta {
	meta := &Meta{}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		meta.TraceID = span.SpanContext().TraceID().String()
	}

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		meta.RequestID = reqID
	}

	return meta
}

func WriteSuccess(ctx context.Context, w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    extractMeta(ctx),
	})
}

func WriteError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{
		Success: false,
		Error:   message,
		Meta:    extractMeta(ctx),
	})
}
