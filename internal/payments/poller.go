package payments

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailed
	OutcomeTimedOut
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	case OutcomeTimedOut:
		return "timed_out"
	default:
		return "cancelled"
	}
}

type PollResult struct {
	Outcome  Outcome
	Attempts int
	Reason   string
}

type StatusFunc func(ctx context.Context, txRef string) (*VerifyResult, error)

// Poller repeatedly asks whether a transaction is resolved until it reaches a
// terminal state or the attempt budget runs out. Checks are timer-driven and
// never overlap: the next one is scheduled only after the previous returns.
// A transport error backs off to ErrInterval instead of counting as a payment
// failure.
type Poller struct {
	Check       StatusFunc
	Interval    time.Duration // between checks, default 2s
	ErrInterval time.Duration // after a transport error, default 5s
	MaxAttempts int           // default 15
	Log         *zap.Logger
	OnSuccess   func(ctx context.Context, res *VerifyResult) // e.g. clear the cart
}

// Watch polls until terminal, budget exhausted, or ctx cancelled. Budget
// exhaustion is reported as its own outcome, distinct from a gateway-reported
// failure: the payment may still resolve later.
func (p *Poller) Watch(ctx context.Context, txRef string) PollResult {
	interval := p.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	errInterval := p.ErrInterval
	if errInterval <= 0 {
		errInterval = 5 * time.Second
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 15
	}
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}

	for attempt := 1; ; attempt++ {
		delay := interval
		res, err := p.Check(ctx, txRef)
		if err != nil {
			if ctx.Err() != nil {
				return PollResult{Outcome: OutcomeCancelled, Attempts: attempt}
			}
			log.Warn("payment status check failed",
				zap.String("tx_ref", txRef),
				zap.Int("attempt", attempt),
				zap.Error(err))
			delay = errInterval
		} else {
			switch res.Status {
			case StatusSuccess:
				if p.OnSuccess != nil {
					p.OnSuccess(ctx, res)
				}
				return PollResult{Outcome: OutcomeSuccess, Attempts: attempt}
			case StatusFailed:
				return PollResult{Outcome: OutcomeFailed, Attempts: attempt, Reason: res.Reason}
			}
		}

		if attempt >= maxAttempts {
			return PollResult{Outcome: OutcomeTimedOut, Attempts: attempt, Reason: "attempt budget exhausted"}
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return PollResult{Outcome: OutcomeCancelled, Attempts: attempt}
		case <-timer.C:
		}
	}
}
