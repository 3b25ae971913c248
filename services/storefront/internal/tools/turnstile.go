package tools

import "sync"

// turnstile admits holders one at a time in the order they took a ticket.
type turnstile struct {
	mu      sync.Mutex
	cond    *sync.Cond
	next    uint64
	serving uint64
}

func newTurnstile() *turnstile {
	t := &turnstile{}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// take reserves the next place in line.
func (t *turnstile) take() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	ticket := t.next
	t.next++
	return ticket
}

// enter blocks until ticket is being served.
func (t *turnstile) enter(ticket uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.serving != ticket {
		t.cond.Wait()
	}
}

// leave hands the turn to the next ticket.
func (t *turnstile) leave() {
	t.mu.Lock()
	t.serving++
	t.mu.Unlock()
	t.cond.Broadcast()
}
