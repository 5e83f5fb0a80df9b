package focus

import "sync"

// windowPool holds windows not bound to any session. The most recently
// released window is handed out first.
type windowPool struct {
	handles []string
	mu      sync.Mutex
}

func (p *windowPool) put(handle string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handles = append(p.handles, handle)
}

func (p *windowPool) take() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.handles)
	if n == 0 {
		return "", false
	}
	h := p.handles[n-1]
	p.handles = p.handles[:n-1]
	return h, true
}

// retain drops every idle window missing from alive and returns the dropped
// handles.
func (p *windowPool) retain(alive []string) []string {
	live := handleSet(alive)
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.handles[:0]
	var dropped []string
	for _, h := range p.handles {
		if live[h] {
			kept = append(kept, h)
		} else {
			dropped = append(dropped, h)
		}
	}
	p.handles = kept
	return dropped
}

func (p *windowPool) contains(handle string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, h := range p.handles {
		if h == handle {
			return true
		}
	}
	return false
}

func (p *windowPool) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handles)
}

func handleSet(handles []string) map[string]bool {
	set := make(map[string]bool, len(handles))
	for _, h := range handles {
		set[h] = true
	}
	return set
}
