package async

import (
	"container/heap"
	"time"
)

// timerEntry pairs a task with its fire deadline. Entries with equal
// deadlines fire in schedule order (seq breaks ties).
type timerEntry struct {
	deadline time.Time
	task     *Task
	seq      int
}

type timerHeap []timerEntry

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(a, b int) bool {
	if h[a].deadline.Equal(h[b].deadline) {
		return h[a].seq < h[b].seq
	}
	return h[a].deadline.Before(h[b].deadline)
}
func (h timerHeap) Swap(a, b int)       { h[a], h[b] = h[b], h[a] }
func (h *timerHeap) Push(x any)         { *h = append(*h, x.(timerEntry)) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	*h = old[:n-1]
	return entry
}

// Loop is a single-threaded cooperative event loop. Tasks scheduled
// with CallSoon run in FIFO order; timers fire in monotonic-deadline
// order. The loop never preempts a task: control changes hands only
// at the task's own suspension points.
type Loop struct {
	ready   []*Task
	timers  timerHeap
	seq     int
	stopped bool
}

// NewLoop creates an empty event loop.
func NewLoop() *Loop {
	return &Loop{}
}

// NewTask creates a task bound to the loop without scheduling it.
func (l *Loop) NewTask(name string, fn Fn) *Task {
	return &Task{
		name:    name,
		fn:      fn,
		loop:    l,
		resume:  make(chan struct{}),
		yielded: make(chan struct{}),
	}
}

// CallSoon schedules the task to run on the next drain, after all
// previously scheduled tasks.
func (l *Loop) CallSoon(t *Task) {
	l.ready = append(l.ready, t)
}

// CallLater schedules the task to run when the delay elapses.
func (l *Loop) CallLater(delay time.Duration, t *Task) {
	heap.Push(&l.timers, timerEntry{
		deadline: time.Now().Add(delay),
		task:     t,
		seq:      l.seq,
	})
	l.seq++
}

// Await runs the task to completion on the current thread, draining
// ready tasks and due timers between its suspension points, and
// returns its outcome.
func (l *Loop) Await(t *Task) Outcome {
	for {
		if l.stopped {
			return t.Outcome()
		}
		if t.step() {
			return t.Outcome()
		}
		l.drainOnce()
	}
}

// AwaitTimeout runs the task like Await but gives up once the
// deadline passes, returning TimedOut without cancelling the task.
// The caller cancels explicitly if it wants the task gone.
func (l *Loop) AwaitTimeout(t *Task, timeout time.Duration) Outcome {
	deadline := time.Now().Add(timeout)
	for {
		if l.stopped {
			return t.Outcome()
		}
		if t.step() {
			return t.Outcome()
		}
		if time.Now().After(deadline) {
			return TimedOut
		}
		l.drainOnce()
	}
}

// Cancel requests cooperative cancellation: the flag is set now and
// the task observes it at its next suspension point.
func (l *Loop) Cancel(t *Task) {
	t.markCancelled()
}

// Run drains the loop until no ready task or pending timer remains.
func (l *Loop) Run() {
	for !l.stopped && (len(l.ready) > 0 || l.timers.Len() > 0) {
		l.drainOnce()
	}
}

// Stop unwinds the loop: remaining ready tasks and timers are dropped
// without running.
func (l *Loop) Stop() {
	l.stopped = true
	l.ready = nil
	l.timers = nil
}

// drainOnce runs every currently-ready task one step, then fires due
// timers. Tasks that suspend are requeued behind newly scheduled work,
// preserving FIFO order.
func (l *Loop) drainOnce() {
	if l.stopped {
		return
	}

	ready := l.ready
	l.ready = nil
	for _, t := range ready {
		if l.stopped {
			return
		}
		if !t.step() {
			l.ready = append(l.ready, t)
		}
	}

	now := time.Now()
	for l.timers.Len() > 0 {
		next := l.timers[0]
		if next.deadline.After(now) {
			break
		}
		heap.Pop(&l.timers)
		l.ready = append(l.ready, next.task)
	}

	// With nothing ready but timers pending, sleep to the nearest
	// deadline; the loop has the thread to itself.
	if len(l.ready) == 0 && l.timers.Len() > 0 {
		time.Sleep(time.Until(l.timers[0].deadline))
	}
}
