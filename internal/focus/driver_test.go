package focus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// fakeDriver is an in-memory browser. Windows requested through NewWindow
// show up after appearAfter further WindowHandles calls; a negative value
// means they never do.
type fakeDriver struct {
	mu          sync.Mutex
	windows     []string
	urls        map[string]string
	current     string
	nextID      int
	appearAfter int
	burst       int
	pending     int
	countdown   int
	opened      int
	coverage    json.RawMessage
	scriptErr   error
	failSwitch  map[string]bool
	failURL     map[string]bool
	navigations []string

	inFlight    int
	maxInFlight int

	// onNavigate runs outside the lock and may block.
	onNavigate func(url string)
}

func newFakeDriver(initial ...string) *fakeDriver {
	d := &fakeDriver{
		urls:       make(map[string]string),
		failSwitch: make(map[string]bool),
		failURL:    make(map[string]bool),
		burst:      1,
	}
	for _, h := range initial {
		d.windows = append(d.windows, h)
		d.urls[h] = "about:blank"
	}
	return d
}

func (d *fakeDriver) enter() {
	d.mu.Lock()
	d.inFlight++
	if d.inFlight > d.maxInFlight {
		d.maxInFlight = d.inFlight
	}
	d.mu.Unlock()
	time.Sleep(100 * time.Microsecond)
}

func (d *fakeDriver) exit() {
	d.mu.Lock()
	d.inFlight--
	d.mu.Unlock()
}

func (d *fakeDriver) WindowHandles(ctx context.Context) ([]string, error) {
	d.enter()
	defer d.exit()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending > 0 && d.appearAfter >= 0 {
		d.countdown--
		if d.countdown < 0 {
			for ; d.pending > 0; d.pending-- {
				for i := 0; i < d.burst; i++ {
					d.nextID++
					h := fmt.Sprintf("new-%d", d.nextID)
					d.windows = append(d.windows, h)
					d.urls[h] = "about:blank"
					d.opened++
				}
			}
		}
	}
	return append([]string(nil), d.windows...), ctx.Err()
}

func (d *fakeDriver) NewWindow(ctx context.Context) error {
	d.enter()
	defer d.exit()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending++
	d.countdown = d.appearAfter
	return nil
}

func (d *fakeDriver) SwitchToWindow(ctx context.Context, handle string) error {
	d.enter()
	defer d.exit()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failSwitch[handle] {
		return fmt.Errorf("no such window: %s", handle)
	}
	if _, ok := d.urls[handle]; !ok {
		return fmt.Errorf("no such window: %s", handle)
	}
	d.current = handle
	return nil
}

func (d *fakeDriver) Navigate(ctx context.Context, url string) error {
	d.enter()
	defer d.exit()
	d.mu.Lock()
	hook := d.onNavigate
	d.mu.Unlock()
	if hook != nil {
		hook(url)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failURL[url] {
		return fmt.Errorf("navigation to %s failed", url)
	}
	d.urls[d.current] = url
	d.navigations = append(d.navigations, url)
	return nil
}

func (d *fakeDriver) CurrentURL(ctx context.Context) (string, error) {
	d.enter()
	defer d.exit()
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.urls[d.current], nil
}

func (d *fakeDriver) ExecuteScript(ctx context.Context, script string) (json.RawMessage, error) {
	d.enter()
	defer d.exit()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.scriptErr != nil {
		return nil, d.scriptErr
	}
	if d.coverage == nil {
		return json.RawMessage("null"), nil
	}
	return d.coverage, nil
}

// setURL simulates the page under test navigating on its own.
func (d *fakeDriver) setURL(handle, url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls[handle] = url
}

// closeWindow simulates a page closing its own window.
func (d *fakeDriver) closeWindow(handle string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, h := range d.windows {
		if h == handle {
			d.windows = append(d.windows[:i], d.windows[i+1:]...)
			break
		}
	}
	delete(d.urls, handle)
}

func (d *fakeDriver) urlOf(handle string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.urls[handle]
}

func (d *fakeDriver) navigationLog() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.navigations...)
}

func (d *fakeDriver) stats() (opened, maxInFlight int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened, d.maxInFlight
}
