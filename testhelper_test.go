package ioloop

import (
	"fmt"
	"time"
)

// fakeClock is a manually advanced time source. It is only safe for use from
// the goroutine calling Run.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// recorder collects dispatches in order.
type recorder struct {
	calls []string
}

func (r *recorder) add(name string, fd int) {
	r.calls = append(r.calls, fmt.Sprintf("%s(%d)", name, fd))
}

func (r *recorder) count(name string, fd int) (n int) {
	want := fmt.Sprintf("%s(%d)", name, fd)
	for _, c := range r.calls {
		if c == want {
			n++
		}
	}
	return
}
