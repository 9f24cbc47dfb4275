package discovery

import (
	"sync"

	"github.com/lanhound/upnpdisco/internal/ssdp"
)

// resultSlot is a one-shot broadcast future shared by every pending search
// spawned from one batch of parameter sets. The first resolve or cancel
// wins; later calls are no-ops. Waiters observe completion through the
// done channel.
type resultSlot struct {
	once sync.Once
	done chan struct{}

	// reply and err are written once, before done closes, and only read
	// after done closes
	reply *ssdp.Datagram
	err   error
}

func newResultSlot() *resultSlot {
	return &resultSlot{done: make(chan struct{})}
}

// resolve completes the slot with a matched reply
func (s *resultSlot) resolve(reply *ssdp.Datagram) {
	s.once.Do(func() {
		s.reply = reply
		close(s.done)
	})
}

// cancel completes the slot with an error (timeout or caller cancellation)
func (s *resultSlot) cancel(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.done)
	})
}

// resolved reports whether the slot has completed, without blocking
func (s *resultSlot) resolved() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
