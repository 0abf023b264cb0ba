package lazynode

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/cboone/lazynode/poll"
)

// Outcome classifies how a public handle call ended.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeTimeout Outcome = "timeout"
	OutcomeInvalid Outcome = "invalid"
	OutcomeFailed  Outcome = "failed"
)

// Event describes one public resolve, action or getter call.
type Event struct {
	Session string
	Op      string
	Chain   string
	Name    string
	Outcome Outcome
	Err     error
	Elapsed time.Duration
}

// A Hook observes every public handle call. It runs synchronously on the
// calling goroutine after the call completes.
type Hook func(Event)

// LogHook returns a hook that logs successes at debug level and failures
// at warn level.
func LogHook(logger *zap.Logger) Hook {
	return func(ev Event) {
		fields := []zap.Field{
			zap.String("session", ev.Session),
			zap.String("op", ev.Op),
			zap.String("handle", ev.Chain),
			zap.String("name", ev.Name),
			zap.String("outcome", string(ev.Outcome)),
			zap.Duration("elapsed", ev.Elapsed),
		}
		if ev.Err == nil {
			logger.Debug("lazynode call", fields...)
			return
		}
		logger.Warn("lazynode call failed", append(fields, zap.Error(ev.Err))...)
	}
}

func outcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, poll.ErrTimeout):
		return OutcomeTimeout
	case errors.Is(err, ErrInvalidState):
		return OutcomeInvalid
	default:
		return OutcomeFailed
	}
}
