package parking

import "errors"

var (
	ErrCapacityExceeded = errors.New("parking queue is full")
	ErrDuplicateID      = errors.New("car is already parked")
	ErrEmptyQueue       = errors.New("parking queue is empty")
	ErrNotFound         = errors.New("car not found")
	ErrInvalidCapacity  = errors.New("capacity must be at least 1")
	ErrInvalidID        = errors.New("car id is required")
)

// ErrorKind names the queue error class of err for labels and logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, ErrDuplicateID):
		return "duplicate_id"
	case errors.Is(err, ErrEmptyQueue):
		return "empty_queue"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidCapacity):
		return "invalid_capacity"
	case errors.Is(err, ErrInvalidID):
		return "invalid_id"
	default:
		return "unknown"
	}
}
