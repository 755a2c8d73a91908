// Copyright 2026 Caisho
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeNowAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := Fake(start)

	if got := clk.Now(); !got.Equal(start) {
		t.Fatalf("Now() = %v, want %v", got, start)
	}

	clk.Advance(90 * time.Second)
	want := start.Add(90 * time.Second)
	if got := clk.Now(); !got.Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFakeAfterFiresOnAdvance(t *testing.T) {
	clk := Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	ch := clk.After(5 * time.Second)
	select {
	case <-ch:
		t.Fatal("After fired before Advance")
	default:
	}

	clk.Advance(4 * time.Second)
	select {
	case <-ch:
		t.Fatal("After fired before its deadline")
	default:
	}

	clk.Advance(1 * time.Second)
	select {
	case fired := <-ch:
		want := time.Date(2026, 1, 1, 0, 0, 5, 0, time.UTC)
		if !fired.Equal(want) {
			t.Fatalf("fire time = %v, want %v", fired, want)
		}
	default:
		t.Fatal("After did not fire at its deadline")
	}
}

func TestFakeAfterNonPositiveFiresImmediately(t *testing.T) {
	clk := Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	select {
	case <-clk.After(0):
	default:
		t.Fatal("After(0) did not fire immediately")
	}
	if clk.PendingCount() != 0 {
		t.Fatalf("PendingCount = %d, want 0", clk.PendingCount())
	}
}

func TestFakeSleepBlocksUntilAdvance(t *testing.T) {
	clk := Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	done := make(chan struct{})
	go func() {
		clk.Sleep(10 * time.Second)
		close(done)
	}()

	clk.WaitForTimers(1)
	select {
	case <-done:
		t.Fatal("Sleep returned before Advance")
	default:
	}

	clk.Advance(10 * time.Second)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Sleep did not return after Advance")
	}
}

func TestFakeAdvanceFiresAllExpiredWaiters(t *testing.T) {
	clk := Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	first := clk.After(1 * time.Second)
	second := clk.After(3 * time.Second)
	third := clk.After(10 * time.Second)

	clk.Advance(5 * time.Second)

	for name, ch := range map[string]<-chan time.Time{"first": first, "second": second} {
		select {
		case <-ch:
		default:
			t.Fatalf("%s waiter did not fire", name)
		}
	}
	select {
	case <-third:
		t.Fatal("third waiter fired before its deadline")
	default:
	}
	if clk.PendingCount() != 1 {
		t.Fatalf("PendingCount = %d, want 1", clk.PendingCount())
	}
}
