package runtime

import (
	"sync"
)

// SubQueue buffers events for a single subscriber so that a slow consumer
// never blocks the broadcaster. Events are delivered in enqueue order on
// the channel returned by Chan.
type SubQueue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []T
	closed bool

	outCh chan T        // consumer reads from this
	done  chan struct{} // closed by Close; unblocks a parked send
}

func NewSubQueue[T any](outBuf int) *SubQueue[T] {
	sq := &SubQueue[T]{
		outCh: make(chan T, outBuf),
		done:  make(chan struct{}),
	}
	sq.cond = sync.NewCond(&sq.mu)
	go sq.dispatch()
	return sq
}

// Chan returns the channel the subscriber reads from. It is closed by Close.
func (sq *SubQueue[T]) Chan() <-chan T { return sq.outCh }

// Enqueue appends to the in-memory queue and wakes the dispatcher.
// Enqueue after Close is a silent no-op.
func (sq *SubQueue[T]) Enqueue(ev T) {
	sq.mu.Lock()
	if !sq.closed {
		sq.queue = append(sq.queue, ev)
		sq.cond.Signal()
	}
	sq.mu.Unlock()
}

// Close stops the dispatcher and closes the out channel, even while a
// send is parked on a full buffer. Events not yet handed to the out
// channel are discarded. Safe to call more than once.
func (sq *SubQueue[T]) Close() {
	sq.mu.Lock()
	if !sq.closed {
		sq.closed = true
		close(sq.done)
		sq.cond.Broadcast()
	}
	sq.mu.Unlock()
}

func (sq *SubQueue[T]) dispatch() {
	for {
		sq.mu.Lock()
		for !sq.closed && len(sq.queue) == 0 {
			sq.cond.Wait()
		}
		if sq.closed {
			sq.mu.Unlock()
			close(sq.outCh)
			return
		}
		ev := sq.queue[0]
		copy(sq.queue, sq.queue[1:])
		sq.queue = sq.queue[:len(sq.queue)-1]
		sq.mu.Unlock()

		select {
		case sq.outCh <- ev:
		case <-sq.done:
			close(sq.outCh)
			return
		}
	}
}
