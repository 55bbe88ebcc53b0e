// Package operation models one round of a scripted step and the bounded
// retry loop that interprets it.
package operation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Kind is the outcome of a single round.
type Kind int

const (
	KindSuccess Kind = iota
	KindRetry
	KindFail
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "Success"
	case KindRetry:
		return "Retry"
	case KindFail:
		return "Fail"
	default:
		return "Unknown"
	}
}

// Result is what a round hands back to the control loop.
type Result struct {
	Kind    Kind
	Status  string        // optional label on success, used to pick the next state
	Reason  string        // why a retry or a failure happened
	Delay   time.Duration // wait before the next round
	Payload any
	Err     error // sentinel carried by Retry / Fail, may be nil
}

// ErrFailed is returned when a round fails without a more specific error.
var ErrFailed = errors.New("operation failed")

// ErrRetryExhausted is returned when a step keeps asking to retry.
var ErrRetryExhausted = errors.New("retries exhausted")

func Success(payload any) Result {
	return Result{Kind: KindSuccess, Payload: payload}
}

func SuccessStatus(status string, payload any) Result {
	return Result{Kind: KindSuccess, Status: status, Payload: payload}
}

// SuccessWait succeeds and asks the loop to wait before the next step,
// modelling the game's reaction time.
func SuccessWait(payload any, delay time.Duration) Result {
	return Result{Kind: KindSuccess, Payload: payload, Delay: delay}
}

func Retry(reason string, delay time.Duration) Result {
	return Result{Kind: KindRetry, Reason: reason, Delay: delay}
}

// RetryErr is Retry carrying a sentinel, e.g. a transient NotFound.
func RetryErr(err error, delay time.Duration) Result {
	return Result{Kind: KindRetry, Reason: err.Error(), Delay: delay, Err: err}
}

func Fail(reason string) Result {
	return Result{Kind: KindFail, Reason: reason}
}

func FailErr(err error) Result {
	return Result{Kind: KindFail, Reason: err.Error(), Err: err}
}

// FromError turns a nested step's error into a Result: nil succeeds with
// payload, anything else fails carrying the error.
func FromError(payload any, err error) Result {
	if err != nil {
		return FailErr(err)
	}
	return Success(payload)
}

// Round is one attempt of a step.
type Round func(ctx context.Context) Result

// Run calls round until it succeeds or fails, allowing at most maxRetries
// Retry results. It honours Delay between rounds and stops early when ctx
// is cancelled. The returned Result is the final successful round.
func Run(ctx context.Context, name string, maxRetries int, round Round) (Result, error) {
	retries := 0
	for {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("%s: %w", name, err)
		}

		r := round(ctx)
		switch r.Kind {
		case KindSuccess:
			if r.Delay > 0 {
				if err := Sleep(ctx, r.Delay); err != nil {
					return r, fmt.Errorf("%s: %w", name, err)
				}
			}
			return r, nil

		case KindFail:
			log.Debug().Str("op", name).Str("reason", r.Reason).Msg("[Operation] round failed")
			if r.Err != nil {
				return r, fmt.Errorf("%s: %w", name, r.Err)
			}
			return r, fmt.Errorf("%s: %s: %w", name, r.Reason, ErrFailed)

		case KindRetry:
			retries++
			log.Debug().
				Str("op", name).
				Str("reason", r.Reason).
				Int("retry", retries).
				Int("max", maxRetries).
				Msg("[Operation] retry")
			if retries > maxRetries {
				if r.Err != nil {
					return r, fmt.Errorf("%s: %w: %w", name, ErrRetryExhausted, r.Err)
				}
				return r, fmt.Errorf("%s: %s: %w", name, r.Reason, ErrRetryExhausted)
			}
			if err := Sleep(ctx, r.Delay); err != nil {
				return r, fmt.Errorf("%s: %w", name, err)
			}

		default:
			return r, fmt.Errorf("%s: unexpected result kind %d: %w", name, r.Kind, ErrFailed)
		}
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
