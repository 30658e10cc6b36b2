package debounce

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestClamp(t *testing.T) {
	cases := map[time.Duration]time.Duration{
		0:                      DefaultInterval,
		-time.Second:           DefaultInterval,
		100 * time.Millisecond: MinInterval,
		350 * time.Millisecond: 350 * time.Millisecond,
		2 * time.Second:        MaxInterval,
	}
	for in, want := range cases {
		if got := Clamp(in); got != want {
			t.Errorf("Clamp(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestTriggerRunsOnlyLastCall(t *testing.T) {
	d := New(20 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	done := make(chan uint64, 4)
	run := func(gen uint64) {
		calls.Add(1)
		done <- gen
	}

	d.Trigger(run)
	d.Trigger(run)
	last := d.Trigger(run)

	select {
	case gen := <-done:
		if gen != last {
			t.Fatalf("expected generation %d, got %d", last, gen)
		}
	case <-time.After(time.Second):
		t.Fatal("debounced function did not run")
	}

	time.Sleep(60 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected exactly one call, got %d", got)
	}
	if !d.IsCurrent(last) {
		t.Fatal("expected last generation to be current")
	}
}

func TestStaleGenerationDetectedAfterNewTrigger(t *testing.T) {
	d := New(10 * time.Millisecond)
	defer d.Stop()

	started := make(chan uint64, 1)
	release := make(chan struct{})
	d.Trigger(func(gen uint64) {
		started <- gen
		<-release
	})

	var first uint64
	select {
	case first = <-started:
	case <-time.After(time.Second):
		t.Fatal("first trigger did not fire")
	}

	second := d.Trigger(func(uint64) {})
	close(release)

	if d.IsCurrent(first) {
		t.Fatal("in-flight generation should be stale after a new trigger")
	}
	if !d.IsCurrent(second) {
		t.Fatal("expected newest generation to be current")
	}
}

func TestStopCancelsPending(t *testing.T) {
	d := New(20 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger(func(uint64) { calls.Add(1) })
	d.Stop()
	d.Trigger(func(uint64) { calls.Add(1) })

	time.Sleep(80 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Fatalf("expected no calls after Stop, got %d", got)
	}
}
