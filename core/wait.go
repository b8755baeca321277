package core

import "errors"

// ErrTimeout is matched by errors returned from a bounded wait
var ErrTimeout = errors.New("wait timed out")

// Waiter polls a hardware condition until it holds. Every busy-wait in this
// package (PLL lock, clock update acknowledge, timer expiry, UART transmit)
// goes through one, so the policy can be swapped without touching call sites.
type Waiter interface {
	// Until polls cond until it returns true. what names the condition for
	// error reports.
	Until(what string, cond func() bool) error
}

// Forever waits without limit. A condition that never holds stalls the
// caller, exactly as the hardware would.
type Forever struct{}

func (Forever) Until(what string, cond func() bool) error {
	for !cond() {
	}
	return nil
}

// Bounded gives up after Limit polls. The condition is always polled at
// least once, so a condition that already holds never times out.
type Bounded struct {
	Limit int
}

func (b Bounded) Until(what string, cond func() bool) error {
	limit := b.Limit
	if limit < 1 {
		limit = 1
	}
	for i := 0; i < limit; i++ {
		if cond() {
			return nil
		}
	}
	return &WaitError{What: what, Polls: limit}
}

// WaitError reports a condition that did not hold within a bounded wait
type WaitError struct {
	What  string
	Polls int
}

func (e *WaitError) Error() string {
	return "timed out waiting for " + e.What + " after " + itoa(e.Polls) + " polls"
}

func (e *WaitError) Unwrap() error {
	return ErrTimeout
}

// countingWaiter forwards to another Waiter and counts condition polls
type countingWaiter struct {
	next  Waiter
	polls int
}

func (c *countingWaiter) Until(what string, cond func() bool) error {
	c.polls = 0
	return c.next.Until(what, func() bool {
		c.polls++
		return cond()
	})
}
