package focus

import "sync"

// registry maps active sessions to their window and every started session to
// the URL it is expected to show.
type registry struct {
	windows map[string]string
	urls    map[string]string
	mu      sync.RWMutex
}

func newRegistry() *registry {
	return &registry{
		windows: make(map[string]string),
		urls:    make(map[string]string),
	}
}

func (r *registry) setURL(id, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls[id] = url
}

func (r *registry) url(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.urls[id]
}

func (r *registry) clearURL(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.urls, id)
}

func (r *registry) bind(id, handle string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows[id] = handle
}

// unbind removes the session's binding and returns the window it held.
func (r *registry) unbind(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.windows[id]
	if ok {
		delete(r.windows, id)
	}
	return h, ok
}

func (r *registry) window(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.windows[id]
	return h, ok
}

func (r *registry) snapshot() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.windows))
	for id, h := range r.windows {
		out[id] = h
	}
	return out
}
