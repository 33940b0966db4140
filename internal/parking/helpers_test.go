package parking

import (
	"fmt"
	"time"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func sequentialTickets() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("ticket-%d", n)
	}
}
