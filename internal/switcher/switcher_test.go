package switcher

import (
	"testing"
	"time"
)

func TestNoSwitchOnSingleSighting(t *testing.T) {
	p := New(0, time.Millisecond)
	now := time.Now()

	if _, ok := p.MaybeSwitch(now, 0); ok {
		t.Fatal("unexpected switch while pending on no sighting")
	}
	now = now.Add(time.Millisecond)
	if idx, ok := p.MaybeSwitch(now, 1); ok {
		t.Fatalf("switched on first sighting of display %d, want no switch", idx)
	}
	if p.Current() != 0 {
		t.Fatalf("current = %d, want 0", p.Current())
	}
}

func TestSwitchesAfterTwoConsecutiveSightings(t *testing.T) {
	p := New(0, time.Millisecond)
	now := time.Now()

	now = now.Add(time.Millisecond)
	if _, ok := p.MaybeSwitch(now, 1); ok {
		t.Fatal("switched too early")
	}
	now = now.Add(time.Millisecond)
	idx, ok := p.MaybeSwitch(now, 1)
	if !ok || idx != 1 {
		t.Fatalf("got (%d, %v), want (1, true)", idx, ok)
	}
	if p.Current() != 1 {
		t.Fatalf("current = %d, want 1", p.Current())
	}
}

func TestFlickerResetsPending(t *testing.T) {
	p := New(0, time.Millisecond)
	now := time.Now()

	now = now.Add(time.Millisecond)
	p.MaybeSwitch(now, 1)
	now = now.Add(time.Millisecond)
	// cursor flickers back to current display — pending should reset
	if _, ok := p.MaybeSwitch(now, 0); ok {
		t.Fatal("unexpected switch")
	}
	now = now.Add(time.Millisecond)
	if _, ok := p.MaybeSwitch(now, 1); ok {
		t.Fatal("switch committed after flicker reset pending count")
	}
}

func TestCheckIntervalGatesDecisionRate(t *testing.T) {
	p := New(0, time.Second)
	now := time.Now()

	p.MaybeSwitch(now, 1)
	if _, ok := p.MaybeSwitch(now.Add(time.Millisecond), 1); ok {
		t.Fatal("decision made before check interval elapsed")
	}
}
