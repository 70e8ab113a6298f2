package engine

import "sync"

// eventQueue is the unbounded FIFO between the run's producers and its single
// subscriber. Pushing never blocks; a pump goroutine delivers in order and
// closes out after the terminal event.
type eventQueue struct {
	runID string

	mu     sync.Mutex
	items  []Event
	seq    uint64
	sealed bool

	notify  chan struct{}
	abandon chan struct{}
	once    sync.Once
	out     chan Event
}

func newEventQueue(runID string) *eventQueue {
	q := &eventQueue{
		runID:   runID,
		notify:  make(chan struct{}, 1),
		abandon: make(chan struct{}),
		out:     make(chan Event),
	}
	go q.pump()
	return q
}

// push stamps and enqueues ev. Events pushed after a terminal event are
// dropped; it reports whether ev was accepted.
func (q *eventQueue) push(ev Event) bool {
	q.mu.Lock()
	if q.sealed {
		q.mu.Unlock()
		return false
	}
	q.seq++
	q.items = append(q.items, withMeta(ev, EventMeta{RunID: q.runID, Seq: q.seq}))
	if IsTerminal(ev) {
		q.sealed = true
	}
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// close stops delivery; the subscriber receives nothing further.
func (q *eventQueue) close() {
	q.once.Do(func() { close(q.abandon) })
}

func (q *eventQueue) pump() {
	defer close(q.out)
	for {
		q.mu.Lock()
		items := q.items
		q.items = nil
		done := q.sealed && len(items) == 0
		q.mu.Unlock()

		if done {
			return
		}
		if len(items) == 0 {
			select {
			case <-q.notify:
				continue
			case <-q.abandon:
				return
			}
		}

		for _, ev := range items {
			select {
			case q.out <- ev:
			case <-q.abandon:
				return
			}
		}
	}
}
