package netpath

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jmcardle/netpathd/internal/runtime"
	log "github.com/sirupsen/logrus"
)

// ErrAlreadyStarted is returned by StartMonitoring while a previous
// subscription is still active. Stop first, then start again.
var ErrAlreadyStarted = errors.New("network path monitoring already started")

const subscriberBuffer = 8

// Monitor owns one subscription to a path Source and publishes the
// derived connectivity state. The state is swapped atomically as a
// whole, so readers always observe Connected and Kind from the same
// path update, without taking a lock.
type Monitor struct {
	source Source

	state atomic.Pointer[State]

	mu      sync.Mutex
	sub     Subscription
	stopped chan struct{}

	subsMu           sync.Mutex
	subs             map[int]*runtime.SubQueue[StateChange]
	nextSubscriberID int
	closed           bool
}

// NewMonitor creates a monitor reading from the given source. The
// monitor is idle until StartMonitoring; until the first update arrives
// it reports not connected with kind unknown.
func NewMonitor(source Source) *Monitor {
	m := &Monitor{
		source: source,
		subs:   make(map[int]*runtime.SubQueue[StateChange]),
	}
	initial := State{Connected: false, Kind: KindUnknown}
	m.state.Store(&initial)
	return m
}

var (
	sharedMonitor *Monitor
	sharedOnce    sync.Once
)

// Shared returns the process-wide monitor backed by the platform's
// native source, creating it on first use. Code with an injection seam
// should prefer taking a *Monitor and using NewMonitor in tests.
func Shared() *Monitor {
	sharedOnce.Do(func() {
		sharedMonitor = NewMonitor(NewSource())
	})
	return sharedMonitor
}

// StartMonitoring subscribes to the source and begins applying path
// updates. It returns ErrAlreadyStarted if a subscription is already
// active, so two live subscriptions can never coexist.
func (m *Monitor) StartMonitoring() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sub != nil {
		return ErrAlreadyStarted
	}

	sub, err := m.source.Subscribe()
	if err != nil {
		return fmt.Errorf("failed to subscribe to network path source: %w", err)
	}

	stopped := make(chan struct{})
	m.sub = sub
	m.stopped = stopped
	go m.deliver(sub, stopped)

	log.Debug("Network path monitoring started")
	return nil
}

// StopMonitoring cancels the source subscription and waits for the
// delivery loop to exit, so no update received after it returns can
// mutate the published state. The last observed state is retained.
// Calling it while not monitoring is a no-op.
func (m *Monitor) StopMonitoring() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sub == nil {
		return
	}

	m.sub.Cancel()
	<-m.stopped
	m.sub = nil
	m.stopped = nil

	log.Debug("Network path monitoring stopped")
}

// Run ensures monitoring is started and blocks until the context is
// cancelled. A monitor already started during source selection is left
// as is.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.StartMonitoring(); err != nil && !errors.Is(err, ErrAlreadyStarted) {
		return err
	}
	<-ctx.Done()
	return nil
}

// Close stops monitoring and closes all subscriber channels. The
// monitor must not be reused afterwards.
func (m *Monitor) Close() error {
	m.StopMonitoring()

	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for id, q := range m.subs {
		q.Close()
		delete(m.subs, id)
	}
	return nil
}

// State returns the latest published state.
func (m *Monitor) State() State {
	return *m.state.Load()
}

// Connected reports whether the most recent path update carried a
// usable status. False until the first update arrives.
func (m *Monitor) Connected() bool {
	return m.state.Load().Connected
}

// Kind returns the interface kind of the most recent path update.
// Unknown until the first update arrives.
func (m *Monitor) Kind() InterfaceKind {
	return m.state.Load().Kind
}

// CurrentInterface returns the name of the interface carrying the
// active path, or empty if none was reported.
func (m *Monitor) CurrentInterface() string {
	return m.state.Load().Interface
}

// Subscribe registers for state changes. The channel first carries a
// snapshot of the current state (Previous equal to Current), then one
// StateChange per applied path update. The returned function cancels
// the subscription and closes the channel.
func (m *Monitor) Subscribe() (<-chan StateChange, func()) {
	sub := runtime.NewSubQueue[StateChange](subscriberBuffer)

	m.subsMu.Lock()
	if m.closed {
		m.subsMu.Unlock()
		sub.Close()
		return sub.Chan(), func() {}
	}
	cur := *m.state.Load()
	sub.Enqueue(StateChange{Previous: cur, Current: cur})
	id := m.nextSubscriberID
	m.nextSubscriberID++
	m.subs[id] = sub
	m.subsMu.Unlock()

	unsub := func() {
		m.subsMu.Lock()
		if q, ok := m.subs[id]; ok {
			delete(m.subs, id)
			q.Close()
		}
		m.subsMu.Unlock()
	}
	return sub.Chan(), unsub
}

func (m *Monitor) deliver(sub Subscription, stopped chan struct{}) {
	defer close(stopped)
	for path := range sub.Paths() {
		m.handlePath(path)
	}
	log.Trace("Network path feed ended")
}

// handlePath applies one path update. Publishing the new state and
// broadcasting the change happen under subsMu so that a concurrent
// Subscribe sees either the old state plus the change event, or the
// new state and no stale event, never a gap.
func (m *Monitor) handlePath(path Path) {
	next := State{
		Connected: path.Status.Usable(),
		Kind:      path.Kind(),
		Interface: path.Interface,
	}

	m.subsMu.Lock()
	prev := *m.state.Load()
	m.state.Store(&next)
	change := StateChange{Previous: prev, Current: next}
	for _, q := range m.subs {
		q.Enqueue(change)
	}
	m.subsMu.Unlock()

	if prev != next {
		log.WithFields(log.Fields{
			"connected": next.Connected,
			"kind":      next.Kind,
			"interface": next.Interface,
		}).Info("Network path changed")
	} else {
		log.WithFields(log.Fields{
			"connected": next.Connected,
			"kind":      next.Kind,
		}).Trace("Network path update without change")
	}
}
