package lazynode

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cboone/lazynode/poll"
	"github.com/cboone/lazynode/ui"
)

var (
	// ErrNotFound is matched by every *NotFoundError.
	ErrNotFound = errors.New("lazynode: not found")
	// ErrInvalidState is matched by every *InvalidStateError.
	ErrInvalidState = errors.New("lazynode: invalid state")
	// ErrActionFailed is matched by every *ActionError.
	ErrActionFailed = errors.New("lazynode: action failed")
)

// NotFoundError reports that a handle did not resolve within its root's
// timeout. It matches both ErrNotFound and poll.ErrTimeout.
type NotFoundError struct {
	Op       string
	Chain    string
	Name     string
	Want     string
	Timeout  time.Duration
	Attempts int
	// Message is the diagnostic note recorded on the root's policy.
	Message string
	Last    error
}

func (e *NotFoundError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "lazynode: %s: %q not %s after %v (%d attempts)", e.Op, e.Name, e.Want, e.Timeout, e.Attempts)
	fmt.Fprintf(&b, "\n    handle: %s", e.Chain)
	if e.Last != nil {
		fmt.Fprintf(&b, "\n    last error: %v", e.Last)
	}
	if e.Message != "" && (e.Last == nil || e.Message != e.Last.Error()) {
		fmt.Fprintf(&b, "\n    note: %s", e.Message)
	}
	return b.String()
}

func (e *NotFoundError) Unwrap() error { return e.Last }

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound || target == poll.ErrTimeout
}

// InvalidStateError reports that the node at an indexed handle's position
// is missing or fails the state the call requires. Inside a resolve it is
// transient and ends up as the Last cause of a NotFoundError; a negative
// index is reported directly.
type InvalidStateError struct {
	Chain  string
	Index  int
	Size   int
	Reason error
}

func (e *InvalidStateError) Error() string {
	if e.Reason == nil {
		return fmt.Sprintf("lazynode: invalid state: %s: index %d of %d", e.Chain, e.Index, e.Size)
	}
	return fmt.Sprintf("lazynode: invalid state: %s: index %d of %d: %v", e.Chain, e.Index, e.Size, e.Reason)
}

func (e *InvalidStateError) Unwrap() error { return e.Reason }

func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }

// ActionError reports that a mutating operation or getter failed on a
// resolved node.
type ActionError struct {
	Action string
	Chain  string
	Name   string
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("lazynode: %s: %q (%s): %v", e.Action, e.Name, e.Chain, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

func (e *ActionError) Is(target error) bool { return target == ErrActionFailed }

var (
	// An index past the end of the set means nothing is there yet.
	errIndexRange = fmt.Errorf("index out of range: %w", ui.ErrNoSuchNode)
	errNegative   = errors.New("negative index")
)
