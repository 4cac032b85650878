package client

import (
	"net/http"
	"time"
)

// Outcome is the poller's reaction to one status response.
type Outcome int

const (
	OutcomeProceed Outcome = iota
	OutcomeRetry
	OutcomeTerminal
	OutcomeRetryCounted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProceed:
		return "proceed"
	case OutcomeRetry:
		return "retry"
	case OutcomeTerminal:
		return "terminal"
	default:
		return "retry_counted"
	}
}

type RetryPolicy struct {
	MinDelay time.Duration
	MaxDelay time.Duration
	// TerminalStatuses stop the poll loop without retrying.
	TerminalStatuses map[int]bool
	// MaxAttempts bounds consecutive counted failures. Zero means unbounded.
	MaxAttempts int
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MinDelay: 1500 * time.Millisecond,
		MaxDelay: 3500 * time.Millisecond,
		TerminalStatuses: map[int]bool{
			http.StatusForbidden: true,
			http.StatusNotFound:  true,
		},
	}
}

// Classify maps a broker status code to an Outcome.
func (p RetryPolicy) Classify(status int) Outcome {
	switch {
	case status == http.StatusOK:
		return OutcomeProceed
	case status == http.StatusUnauthorized:
		return OutcomeRetry
	case p.TerminalStatuses[status]:
		return OutcomeTerminal
	default:
		return OutcomeRetryCounted
	}
}

// Delay maps u in [0, 1) onto [MinDelay, MaxDelay].
func (p RetryPolicy) Delay(u float64) time.Duration {
	if u < 0 {
		u = 0
	}
	if u > 1 {
		u = 1
	}
	span := p.MaxDelay - p.MinDelay
	if span < 0 {
		span = 0
	}
	return p.MinDelay + time.Duration(u*float64(span))
}

// Exhausted reports whether failCount counted failures end the loop.
func (p RetryPolicy) Exhausted(failCount int) bool {
	return p.MaxAttempts > 0 && failCount >= p.MaxAttempts
}
