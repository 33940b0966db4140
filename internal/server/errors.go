package server

import (
	"errors"
	"net/http"

	"parking-queue/internal/parking"
)

var errQueueNotCreated = errors.New("parking queue not created. Create parking queue first")

// statusFor maps queue errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, parking.ErrCapacityExceeded),
		errors.Is(err, parking.ErrDuplicateID),
		errors.Is(err, parking.ErrEmptyQueue):
		return http.StatusConflict
	case errors.Is(err, parking.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, parking.ErrInvalidCapacity),
		errors.Is(err, parking.ErrInvalidID),
		errors.Is(err, errQueueNotCreated):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
