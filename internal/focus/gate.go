package focus

import "sync"

// gate runs at most one operation at a time. While busy, requests wait in two
// FIFO queues and every release prefers a queued stop over a queued start.
type gate struct {
	busy   bool
	starts []func()
	stops  []func()
	mu     sync.Mutex
}

func (g *gate) submitStart(op func()) { g.submit(op, &g.starts) }

func (g *gate) submitStop(op func()) { g.submit(op, &g.stops) }

func (g *gate) submit(op func(), queue *[]func()) {
	g.mu.Lock()
	if g.busy {
		*queue = append(*queue, op)
		g.mu.Unlock()
		return
	}
	g.busy = true
	g.mu.Unlock()

	go g.drain(op)
}

// drain runs op and then every operation queued behind it. Operations must
// not panic; the manager recovers inside each one.
func (g *gate) drain(op func()) {
	for op != nil {
		op()
		op = g.release()
	}
}

// release hands the gate to the next queued operation, or frees it.
func (g *gate) release() func() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if op := pop(&g.stops); op != nil {
		return op
	}
	if op := pop(&g.starts); op != nil {
		return op
	}
	g.busy = false
	return nil
}

func pop(queue *[]func()) func() {
	q := *queue
	if len(q) == 0 {
		return nil
	}
	op := q[0]
	q[0] = nil
	*queue = q[1:]
	return op
}

func (g *gate) state() (busy bool, starts, stops int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy, len(g.starts), len(g.stops)
}
