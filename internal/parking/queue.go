package parking

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ParkingQueue is a fixed-capacity circular buffer of parking slots.
// Occupied slots always form one contiguous run from front to rear,
// so cars leave in the order they arrived.
//
// ParkingQueue is not safe for concurrent use; see InstrumentedParkingQueue.
type ParkingQueue struct {
	capacity int
	slots    []Slot
	front    int
	rear     int
	size     int

	clock     Clock
	newTicket func() string
}

type Option func(*ParkingQueue)

func WithClock(clock Clock) Option {
	return func(q *ParkingQueue) {
		q.clock = clock
	}
}

func WithTicketer(newTicket func() string) Option {
	return func(q *ParkingQueue) {
		q.newTicket = newTicket
	}
}

// Stats is the dashboard view of a queue. Front and Rear are -1 when
// no car is parked.
type Stats struct {
	Capacity int
	Occupied int
	Free     int
	Front    int
	Rear     int
}

func NewParkingQueue(capacity int, opts ...Option) (*ParkingQueue, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}

	q := &ParkingQueue{
		clock:     wallClock{},
		newTicket: uuid.NewString,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.rebuild(nil, capacity)

	return q, nil
}

func (q *ParkingQueue) Capacity() int {
	return q.capacity
}

func (q *ParkingQueue) Len() int {
	return q.size
}

func (q *ParkingQueue) IsFull() bool {
	return q.size == q.capacity
}

func (q *ParkingQueue) IsEmpty() bool {
	return q.size == 0
}

// Park places a car at the rear of the queue, stamped with the clock's
// current time, and returns the slot index it occupies.
func (q *ParkingQueue) Park(id string) (int, error) {
	return q.ParkAt(id, q.clock.Now())
}

func (q *ParkingQueue) ParkAt(id string, entryTime time.Time) (int, error) {
	id = normalizeID(id)
	if id == "" {
		return 0, ErrInvalidID
	}
	if q.IsFull() {
		return 0, fmt.Errorf("%w: %d of %d slots occupied", ErrCapacityExceeded, q.size, q.capacity)
	}
	if _, ok := q.Search(id); ok {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}

	if q.size == 0 {
		q.front = 0
		q.rear = 0
	} else {
		q.rear = (q.rear + 1) % q.capacity
	}

	q.slots[q.rear].Park(NewCar(id, q.newTicket(), entryTime))
	q.size++

	return q.rear, nil
}

// Exit releases the oldest parked car.
func (q *ParkingQueue) Exit() (Departure, error) {
	if q.IsEmpty() {
		return Departure{}, ErrEmptyQueue
	}

	slot := q.front
	car := q.slots[slot].Leave()
	q.front = (q.front + 1) % q.capacity
	q.size--

	return newDeparture(car, slot, q.clock.Now()), nil
}

// Search scans occupied slots from front to rear and returns the first
// slot holding id.
func (q *ParkingQueue) Search(id string) (SlotView, bool) {
	id = normalizeID(id)
	for i := 0; i < q.size; i++ {
		idx := (q.front + i) % q.capacity
		if q.slots[idx].Car.ID == id {
			return q.view(idx), true
		}
	}
	return SlotView{}, false
}

// Remove takes a car out of the middle of the queue. The remaining cars
// keep their relative order and are packed back starting at slot 0.
func (q *ParkingQueue) Remove(id string) (Departure, error) {
	id = normalizeID(id)
	found, ok := q.Search(id)
	if !ok {
		return Departure{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	cars := q.linearize()
	kept := make([]*Car, 0, len(cars)-1)
	var removed *Car
	for _, car := range cars {
		if removed == nil && car.ID == id {
			removed = car
			continue
		}
		kept = append(kept, car)
	}

	q.rebuild(kept, q.capacity)

	return newDeparture(removed, found.Index, q.clock.Now()), nil
}

// Resize rebuilds the queue with a new capacity, keeping cars in FIFO
// order starting at slot 0. When the new capacity is below the current
// occupancy the oldest cars are evicted and returned.
func (q *ParkingQueue) Resize(capacity int) ([]Departure, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}

	cars := q.linearize()
	var evicted []Departure
	if len(cars) > capacity {
		now := q.clock.Now()
		overflow := len(cars) - capacity
		for i, car := range cars[:overflow] {
			evicted = append(evicted, newDeparture(car, (q.front+i)%q.capacity, now))
		}
		cars = cars[overflow:]
	}

	q.rebuild(cars, capacity)

	return evicted, nil
}

func (q *ParkingQueue) Clear() {
	q.rebuild(nil, q.capacity)
}

// Snapshot returns a copy of every slot in index order.
func (q *ParkingQueue) Snapshot() []SlotView {
	views := make([]SlotView, q.capacity)
	for i := range q.slots {
		views[i] = q.view(i)
	}
	return views
}

func (q *ParkingQueue) Stats() Stats {
	stats := Stats{
		Capacity: q.capacity,
		Occupied: q.size,
		Free:     q.capacity - q.size,
		Front:    -1,
		Rear:     -1,
	}
	if q.size > 0 {
		stats.Front = q.front
		stats.Rear = q.rear
	}
	return stats
}

// Overstays lists, front to rear, the cars parked for at least threshold.
func (q *ParkingQueue) Overstays(threshold time.Duration) []SlotView {
	now := q.clock.Now()

	var views []SlotView
	for i := 0; i < q.size; i++ {
		idx := (q.front + i) % q.capacity
		if q.slots[idx].Car.Duration(now) >= threshold {
			views = append(views, q.view(idx))
		}
	}
	return views
}

func (q *ParkingQueue) Now() time.Time {
	return q.clock.Now()
}

func (q *ParkingQueue) view(idx int) SlotView {
	v := SlotView{Index: idx}
	if car := q.slots[idx].Car; car != nil {
		c := *car
		v.Car = &c
		v.IsFront = idx == q.front
		v.IsRear = idx == q.rear
	}
	return v
}

// normalizeID strips surrounding whitespace; ids are otherwise compared
// exactly.
func normalizeID(id string) string {
	return strings.TrimSpace(id)
}

// linearize returns the parked cars in front-to-rear order.
func (q *ParkingQueue) linearize() []*Car {
	cars := make([]*Car, 0, q.size)
	for i := 0; i < q.size; i++ {
		cars = append(cars, q.slots[(q.front+i)%q.capacity].Car)
	}
	return cars
}

// rebuild replaces the slots with a fresh buffer of the given capacity
// holding cars from index 0. len(cars) must not exceed capacity.
func (q *ParkingQueue) rebuild(cars []*Car, capacity int) {
	slots := make([]Slot, capacity)
	for i := range slots {
		slots[i] = NewSlot(i)
	}
	for i, car := range cars {
		slots[i].Park(car)
	}

	q.capacity = capacity
	q.slots = slots
	q.front = 0
	q.size = len(cars)
	q.rear = 0
	if q.size > 0 {
		q.rear = q.size - 1
	}
}
