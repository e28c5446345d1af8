package discord

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, expire func(context.Context, string) bool) *Client {
	t.Helper()
	c, err := New(Config{Token: "test-token"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.ctx = context.Background()
	c.routes = Routes{Expire: expire}
	return c
}

func waitShutdown(t *testing.T, c *Client) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		c.shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not return")
	}
}

func TestShutdown_WaitsForHandlersAndRefusesNewOnes(t *testing.T) {
	c := newTestClient(t, nil)

	release := make(chan struct{})
	var finished atomic.Bool
	if !c.spawn(func(context.Context) {
		<-release
		finished.Store(true)
	}) {
		t.Fatal("spawn refused before shutdown")
	}

	done := make(chan struct{})
	go func() {
		c.shutdown()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("shutdown returned while a handler was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-done
	if !finished.Load() {
		t.Error("handler did not finish before shutdown returned")
	}
	if c.spawn(func(context.Context) { t.Error("handler ran after shutdown") }) {
		t.Error("spawn accepted work after shutdown")
	}
}

func TestShutdown_CancelsPendingTimers(t *testing.T) {
	var expired atomic.Int32
	c := newTestClient(t, func(context.Context, string) bool {
		expired.Add(1)
		return false
	})

	c.scheduleExpiry("a", "1", "2", "prompt", time.Hour)
	c.scheduleExpiry("b", "1", "3", "prompt", time.Hour)
	waitShutdown(t, c)

	if n := len(c.timers); n != 0 {
		t.Errorf("timers left after shutdown: %d", n)
	}
	if expired.Load() != 0 {
		t.Errorf("expiry ran %d times, want 0", expired.Load())
	}

	c.scheduleExpiry("c", "1", "4", "prompt", time.Millisecond)
	if n := len(c.timers); n != 0 {
		t.Errorf("timer scheduled after shutdown")
	}
}

func TestShutdown_WaitsForFiringTimer(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var returned atomic.Bool
	c := newTestClient(t, func(context.Context, string) bool {
		close(entered)
		<-release
		returned.Store(true)
		return false
	})

	c.scheduleExpiry("a", "1", "2", "prompt", time.Millisecond)
	<-entered

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()
	waitShutdown(t, c)
	if !returned.Load() {
		t.Error("shutdown returned before the expiry callback finished")
	}
}

func TestStopTimer_ReleasesTracking(t *testing.T) {
	c := newTestClient(t, func(context.Context, string) bool { return false })

	c.scheduleExpiry("a", "1", "2", "prompt", time.Hour)
	c.stopTimer("a")
	c.stopTimer("a")
	waitShutdown(t, c)
}
