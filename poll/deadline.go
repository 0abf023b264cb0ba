package poll

import "time"

type attemptResult struct {
	ok  bool
	err error
}

// UntilWithDeadline is a stricter Until that caps the wall-clock time of each
// attempt at interval. Attempts run on their own goroutine; an attempt still
// running when its slot ends is abandoned, and its eventual result and error
// are discarded. A new attempt starts at the beginning of each slot, so the
// loop keeps a fixed cadence of one attempt per interval regardless of how
// long individual attempts take.
//
// Abandoned attempts are not awaited: pred must eventually return on its own
// or its goroutine is leaked. Only completed attempts count for the
// throwOnTimeout rule: if the most recent completed attempt returned an error
// it is returned on timeout, otherwise false and a nil error are returned.
//
// A non-positive interval leaves every attempt uncapped, which makes this
// function equivalent to Until with a zero interval.
func UntilWithDeadline(pred func() (bool, error), interval, timeout time.Duration, throwOnTimeout bool) (bool, error) {
	if interval <= 0 {
		return Until(pred, 0, timeout, throwOnTimeout)
	}
	if timeout < 0 {
		timeout = 0
	}
	deadline := time.Now().Add(timeout)
	var last error

	for {
		slotStart := time.Now()
		slot := interval
		if remaining := time.Until(deadline); remaining > 0 && remaining < slot {
			slot = remaining
		}

		done := make(chan attemptResult, 1)
		go func() {
			ok, err := guardPredicate(pred)
			done <- attemptResult{ok: ok, err: err}
		}()

		timer := time.NewTimer(slot)
		select {
		case res := <-done:
			timer.Stop()
			if res.err == nil && res.ok {
				return true, nil
			}
			last = res.err
			// Hold the cadence: the next attempt starts when this slot ends.
			if wait := slot - time.Since(slotStart); wait > 0 && time.Now().Add(wait).Before(deadline) {
				time.Sleep(wait)
			}
		case <-timer.C:
			// Overran its slot; the buffered channel lets the goroutine finish
			// and exit without a reader.
		}

		if !time.Now().Before(deadline) {
			break
		}
	}

	if throwOnTimeout && last != nil {
		return false, last
	}
	return false, nil
}

func guardPredicate(pred func() (bool, error)) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, &PanicError{Value: r}
		}
	}()
	return pred()
}
