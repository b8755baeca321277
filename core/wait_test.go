package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestBoundedGivesUp(t *testing.T) {
	calls := 0
	err := Bounded{Limit: 5}.Until("nothing", func() bool {
		calls++
		return false
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
	if calls != 5 {
		t.Errorf("Expected 5 polls, got %d", calls)
	}
	var werr *WaitError
	if !errors.As(err, &werr) || werr.What != "nothing" {
		t.Errorf("Expected WaitError naming the condition, got %v", err)
	}
	if !strings.Contains(err.Error(), "after 5 polls") {
		t.Errorf("Unexpected message: %s", err)
	}
}

func TestBoundedPollsAtLeastOnce(t *testing.T) {
	for _, limit := range []int{0, -3} {
		calls := 0
		err := Bounded{Limit: limit}.Until("ready", func() bool {
			calls++
			return true
		})
		if err != nil {
			t.Errorf("Limit %d: expected a holding condition to pass, got %v", limit, err)
		}
		if calls != 1 {
			t.Errorf("Limit %d: expected 1 poll, got %d", limit, calls)
		}

		err = Bounded{Limit: limit}.Until("never", func() bool { return false })
		if !strings.Contains(fmt.Sprint(err), "after 1 polls") {
			t.Errorf("Limit %d: expected a timeout after 1 poll, got %v", limit, err)
		}
	}
}

func TestWaitersReturnOnCondition(t *testing.T) {
	for _, w := range []Waiter{Forever{}, Bounded{Limit: 10}} {
		n := 0
		if err := w.Until("count", func() bool { n++; return n == 3 }); err != nil {
			t.Errorf("%T: unexpected error %v", w, err)
		}
		if n != 3 {
			t.Errorf("%T: expected 3 polls, got %d", w, n)
		}
	}
}

func TestCountingWaiter(t *testing.T) {
	c := &countingWaiter{next: Forever{}}
	n := 0
	c.Until("a", func() bool { n++; return n == 4 })
	if c.polls != 4 {
		t.Errorf("Expected 4 polls, got %d", c.polls)
	}
	c.Until("b", func() bool { return true })
	if c.polls != 1 {
		t.Errorf("Expected counter reset to 1 poll, got %d", c.polls)
	}
}

func TestStrutil(t *testing.T) {
	if got := utoa(4294967295); got != "4294967295" {
		t.Errorf("utoa: got %s", got)
	}
	if got := itoa(-42); got != "-42" {
		t.Errorf("itoa: got %s", got)
	}
	if got := hex32(0x40048238); got != "0x40048238" {
		t.Errorf("hex32: got %s", got)
	}
	if got := hex32(0xABCDEF); got != "0x00ABCDEF" {
		t.Errorf("hex32: got %s", got)
	}
}

func TestBootRingWraps(t *testing.T) {
	ClearBootTrace()
	defer ClearBootTrace()

	for i := 0; i < BootRingSize+3; i++ {
		RecordBootEvent(BootEvent{Stage: StageOscillatorOn, Value: uint32(i)})
	}
	events := BootEvents()
	if len(events) != BootRingSize {
		t.Fatalf("Expected %d events, got %d", BootRingSize, len(events))
	}
	if events[0].Value != 3 {
		t.Errorf("Expected oldest event value 3, got %d", events[0].Value)
	}
	if events[BootRingSize-1].Value != BootRingSize+2 {
		t.Errorf("Expected newest event value %d, got %d", BootRingSize+2, events[BootRingSize-1].Value)
	}
}

func TestDumpBootTrace(t *testing.T) {
	ClearBootTrace()
	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	defer func() {
		SetDebugWriter(func(string) {})
		ClearBootTrace()
	}()

	RecordBootEvent(BootEvent{Stage: StagePLLLocked, Addr: 0x4004800C, Value: 0x25, Polls: 3})
	if len(lines) != 0 {
		t.Errorf("Expected no output with debug disabled, got %v", lines)
	}

	DumpBootTrace()
	if len(lines) != 3 {
		t.Fatalf("Expected header, event and footer, got %v", lines)
	}
	want := "[BOOT] pll-locked reg=0x4004800C val=0x00000025 polls=3"
	if lines[1] != want {
		t.Errorf("Expected %q, got %q", want, lines[1])
	}
}
