// Package poll provides generic retry loops that know nothing about UI
// semantics. Every function blocks the calling goroutine, sleeping between
// attempts, and stops only when an attempt succeeds or its timeout window is
// exhausted; there is no external cancellation.
//
// At least one attempt is always made, so a zero timeout means "check once".
// The final sleep is shortened to the time remaining in the window, so a last
// attempt happens at the deadline instead of after it.
package poll

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/multierr"
)

// State is the state of a single attempt or of a finished loop.
type State int

const (
	// NotYetReady means the attempt did not succeed and may be retried.
	NotYetReady State = iota
	// Success means the attempt produced its value.
	Success
	// TimedOut means the loop exhausted its window without a success.
	TimedOut
)

func (s State) String() string {
	switch s {
	case NotYetReady:
		return "not-yet-ready"
	case Success:
		return "success"
	case TimedOut:
		return "timed-out"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Outcome is the tagged result of an attempt or a loop.
// Err is the reason an attempt was not ready, or the last such reason when
// the loop timed out; it may be nil.
type Outcome[T any] struct {
	State State
	Value T
	Err   error
}

// Ready returns a successful outcome.
func Ready[T any](v T) Outcome[T] {
	return Outcome[T]{State: Success, Value: v}
}

// Pending returns a not-yet-ready outcome with an optional reason.
func Pending[T any](reason error) Outcome[T] {
	return Outcome[T]{State: NotYetReady, Err: reason}
}

// OK reports whether the outcome is a success.
func (o Outcome[T]) OK() bool { return o.State == Success }

// ErrTimeout is matched by every timeout error produced by this package.
var ErrTimeout = errors.New("poll: timed out")

// TimeoutError reports an exhausted polling window.
type TimeoutError struct {
	Label    string
	Timeout  time.Duration
	Attempts int
	Last     error
}

func (e *TimeoutError) Error() string {
	label := e.Label
	if label == "" {
		label = "condition"
	}
	msg := fmt.Sprintf("poll: %s: timed out after %v (%d attempts)", label, e.Timeout, e.Attempts)
	if e.Last != nil {
		msg += ": " + e.Last.Error()
	}
	return msg
}

func (e *TimeoutError) Unwrap() error { return e.Last }

// Is reports true for ErrTimeout.
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// PanicError wraps a value recovered from a panicking attempt.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("poll: attempt panicked: %v", e.Value)
}

type loop struct {
	interval time.Duration
	deadline time.Time
	attempts int
}

func newLoop(interval, timeout time.Duration) *loop {
	if interval < 0 {
		interval = 0
	}
	if timeout < 0 {
		timeout = 0
	}
	return &loop{interval: interval, deadline: time.Now().Add(timeout)}
}

// next sleeps until the next attempt is due. It reports false once the
// window is exhausted.
func (l *loop) next() bool {
	remaining := time.Until(l.deadline)
	if remaining <= 0 {
		return false
	}
	if l.interval < remaining {
		remaining = l.interval
	}
	time.Sleep(remaining)
	return true
}

// Poll calls check until it reports Success or the timeout elapses, sleeping
// interval between attempts. On timeout it returns a TimedOut outcome carrying
// the reason reported by the last attempt.
func Poll[T any](check func() Outcome[T], interval, timeout time.Duration) Outcome[T] {
	out, _ := PollCounted(check, interval, timeout)
	return out
}

// PollCounted is Poll that also returns the number of attempts made.
func PollCounted[T any](check func() Outcome[T], interval, timeout time.Duration) (Outcome[T], int) {
	l := newLoop(interval, timeout)
	var last error
	for {
		l.attempts++
		out := guard(check)
		if out.State == Success {
			return out, l.attempts
		}
		last = out.Err
		if !l.next() {
			return Outcome[T]{State: TimedOut, Err: last}, l.attempts
		}
	}
}

// guard runs one attempt, converting a panic into a not-ready outcome.
func guard[T any](check func() Outcome[T]) (out Outcome[T]) {
	defer func() {
		if r := recover(); r != nil {
			out = Pending[T](&PanicError{Value: r})
		}
	}()
	return check()
}

// Until calls pred until it returns true or the timeout elapses. Errors from
// individual attempts are swallowed. On timeout it returns false; if
// throwOnTimeout is set and the most recent attempt returned an error, that
// error is returned instead (the last error wins, not the first).
func Until(pred func() (bool, error), interval, timeout time.Duration, throwOnTimeout bool) (bool, error) {
	out := Poll(predicateCheck(pred), interval, timeout)
	if out.OK() {
		return true, nil
	}
	if throwOnTimeout && out.Err != nil {
		return false, out.Err
	}
	return false, nil
}

func predicateCheck(pred func() (bool, error)) func() Outcome[struct{}] {
	return func() Outcome[struct{}] {
		ok, err := pred()
		if err != nil {
			return Pending[struct{}](err)
		}
		if !ok {
			return Pending[struct{}](nil)
		}
		return Ready(struct{}{})
	}
}

// For calls producer until it returns a nil error and returns its value. On
// timeout it returns a *TimeoutError wrapping the last error.
func For[T any](producer func() (T, error), interval, timeout time.Duration) (T, error) {
	out, attempts := PollCounted(func() Outcome[T] {
		v, err := producer()
		if err != nil {
			return Pending[T](err)
		}
		return Ready(v)
	}, interval, timeout)
	if out.OK() {
		return out.Value, nil
	}
	var zero T
	return zero, &TimeoutError{Timeout: timeout, Attempts: attempts, Last: out.Err}
}

// UntilMatch polls producer until its value equals target (per cmp.Equal)
// or the timeout elapses, and returns the latest produced value whether or
// not it matched. Callers must inspect the value themselves. Attempts that
// return an error produce no value; if every attempt failed, the zero value
// is returned.
func UntilMatch[T any](producer func() (T, error), target T, interval, timeout time.Duration) T {
	v, _, _ := matchLoop(producer, target, interval, timeout)
	return v
}

// ForMatch is like UntilMatch but returns a *TimeoutError when no produced
// value matched target within the window. The latest produced value is
// returned in both cases.
func ForMatch[T any](producer func() (T, error), target T, interval, timeout time.Duration) (T, error) {
	v, out, attempts := matchLoop(producer, target, interval, timeout)
	if out.OK() {
		return v, nil
	}
	return v, &TimeoutError{
		Label:    fmt.Sprintf("match %v", target),
		Timeout:  timeout,
		Attempts: attempts,
		Last:     out.Err,
	}
}

func matchLoop[T any](producer func() (T, error), target T, interval, timeout time.Duration) (T, Outcome[T], int) {
	var latest T
	out, attempts := PollCounted(func() Outcome[T] {
		v, err := producer()
		if err != nil {
			return Pending[T](err)
		}
		latest = v
		if !cmp.Equal(v, target) {
			return Pending[T](fmt.Errorf("got %v", v))
		}
		return Ready(v)
	}, interval, timeout)
	return latest, out, attempts
}

// ForAny tries every producer in order on each cycle and returns the first
// value produced without error. On timeout it returns a *TimeoutError whose
// cause aggregates every error observed across all cycles and producers.
func ForAny[T any](label string, interval, timeout time.Duration, producers ...func() (T, error)) (T, error) {
	var all error
	out, attempts := PollCounted(func() Outcome[T] {
		for i, p := range producers {
			v, err := guardProducer(p)
			if err == nil {
				return Ready(v)
			}
			all = multierr.Append(all, fmt.Errorf("%s[%d]: %w", label, i, err))
		}
		return Pending[T](nil)
	}, interval, timeout)
	if out.OK() {
		return out.Value, nil
	}
	if len(producers) == 0 {
		all = errors.New("no producers")
	}
	var zero T
	return zero, &TimeoutError{Label: label, Timeout: timeout, Attempts: attempts, Last: all}
}

func guardProducer[T any](p func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return p()
}
