package netpath

import "sync"

// Source provides network path updates from some platform facility. A
// Source is inert until subscribed and may be subscribed at most once
// at a time; the Monitor owns that lifecycle.
type Source interface {
	// Subscribe starts delivery of path updates. The returned
	// subscription's channel carries the current path first, then one
	// Path per transition. Subscribe fails if the platform facility
	// cannot be attached.
	Subscribe() (Subscription, error)
}

// Subscription is a live feed of path updates from a Source.
type Subscription interface {
	// Paths returns the update channel. The source closes it after
	// Cancel, or if the underlying facility shuts down.
	Paths() <-chan Path
	// Cancel stops delivery and releases the platform facility. It is
	// safe to call more than once.
	Cancel()
}

// channelSubscription is the Subscription shared by the concrete
// sources: a buffered path channel plus a done channel the delivery
// goroutine watches.
type channelSubscription struct {
	paths    chan Path
	done     chan struct{}
	doneOnce sync.Once
}

func newChannelSubscription(buf int) *channelSubscription {
	return &channelSubscription{
		paths: make(chan Path, buf),
		done:  make(chan struct{}),
	}
}

func (s *channelSubscription) Paths() <-chan Path {
	return s.paths
}

func (s *channelSubscription) Cancel() {
	s.doneOnce.Do(func() { close(s.done) })
}

// send delivers p unless the subscription has been cancelled. It
// returns false once the subscription is done.
func (s *channelSubscription) send(p Path) bool {
	select {
	case <-s.done:
		return false
	case s.paths <- p:
		return true
	}
}
