package parking

import "time"

type Car struct {
	ID        string
	Ticket    string
	EntryTime time.Time
}

func NewCar(id, ticket string, entryTime time.Time) *Car {
	return &Car{
		ID:        id,
		Ticket:    ticket,
		EntryTime: entryTime,
	}
}

// Duration reports how long the car has been parked as of now.
// Clock skew never yields a negative stay.
func (c *Car) Duration(now time.Time) time.Duration {
	d := now.Sub(c.EntryTime)
	if d < 0 {
		return 0
	}
	return d
}

// Departure describes a car leaving its slot.
type Departure struct {
	Car      Car
	Slot     int
	ExitTime time.Time
	Duration time.Duration
}

func newDeparture(car *Car, slot int, exitTime time.Time) Departure {
	return Departure{
		Car:      *car,
		Slot:     slot,
		ExitTime: exitTime,
		Duration: car.Duration(exitTime),
	}
}
