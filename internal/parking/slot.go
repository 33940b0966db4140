package parking

type Slot struct {
	Index int
	Car   *Car
}

func NewSlot(index int) Slot {
	return Slot{Index: index}
}

func (s *Slot) IsOccupied() bool {
	return s.Car != nil
}

func (s *Slot) Park(car *Car) {
	s.Car = car
}

func (s *Slot) Leave() *Car {
	car := s.Car
	s.Car = nil
	return car
}

// SlotView is a read-only copy of a slot for rendering.
type SlotView struct {
	Index   int
	Car     *Car
	IsFront bool
	IsRear  bool
}

func (v SlotView) IsOccupied() bool {
	return v.Car != nil
}
