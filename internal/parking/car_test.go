package parking

import (
	"testing"
	"time"
)

func TestNewCar(t *testing.T) {
	entry := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	car := NewCar("KA01HH1234", "ticket-1", entry)

	if car.ID != "KA01HH1234" {
		t.Errorf("Expected id KA01HH1234, got %s", car.ID)
	}
	if car.Ticket != "ticket-1" {
		t.Errorf("Expected ticket ticket-1, got %s", car.Ticket)
	}
	if !car.EntryTime.Equal(entry) {
		t.Errorf("Expected entry time %v, got %v", entry, car.EntryTime)
	}
}

func TestCarDuration(t *testing.T) {
	entry := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	car := NewCar("A", "t", entry)

	if got := car.Duration(entry.Add(90 * time.Second)); got != 90*time.Second {
		t.Errorf("Expected 1m30s, got %v", got)
	}

	if got := car.Duration(entry.Add(-time.Minute)); got != 0 {
		t.Errorf("Expected clamped duration 0, got %v", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0m 0s"},
		{59 * time.Second, "0m 59s"},
		{3*time.Minute + 7*time.Second + 400*time.Millisecond, "3m 7s"},
		{2 * time.Hour, "120m 0s"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestErrorKind(t *testing.T) {
	q, _ := NewParkingQueue(1)

	_, err := q.Exit()
	if got := ErrorKind(err); got != "empty_queue" {
		t.Errorf("Expected empty_queue, got %s", got)
	}

	_, _ = q.Park("A")
	_, err = q.Park("B")
	if got := ErrorKind(err); got != "capacity_exceeded" {
		t.Errorf("Expected capacity_exceeded, got %s", got)
	}

	if got := ErrorKind(nil); got != "" {
		t.Errorf("Expected empty kind for nil, got %s", got)
	}
}
