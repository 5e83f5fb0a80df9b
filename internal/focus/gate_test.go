package focus

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestGateDrainsStopsFirst(t *testing.T) {
	var g gate
	var mu sync.Mutex
	var order []string
	record := func(name string) func() {
		return func() {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}

	hold := make(chan struct{})
	done := make(chan struct{})
	g.submitStart(func() { <-hold })
	g.submitStart(record("start1"))
	g.submitStop(record("stop1"))
	g.submitStart(record("start2"))
	g.submitStop(record("stop2"))
	g.submitStart(func() { close(done) })

	busy, starts, stops := g.state()
	if !busy || starts != 3 || stops != 2 {
		t.Fatalf("state = %v/%d/%d", busy, starts, stops)
	}

	close(hold)
	<-done

	want := "stop1,stop2,start1,start2"
	mu.Lock()
	got := strings.Join(order, ",")
	mu.Unlock()
	if got != want {
		t.Errorf("order = %s, want %s", got, want)
	}
}

func TestGateFreesWhenEmpty(t *testing.T) {
	var g gate
	ran := make(chan struct{})
	g.submitStop(func() { close(ran) })
	<-ran

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if busy, _, _ := g.state(); !busy {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("gate still busy with nothing queued")
}
