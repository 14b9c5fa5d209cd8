package model

import (
	"fmt"
	"time"
)

// Kind classifies a failed strategy attempt. The classification drives the
// backoff policy, so getting AntiBotBlock vs NotFound right matters more than
// anything else in this package.
type Kind string

const (
	// KindNetworkError covers connection-level failures and timeouts.
	KindNetworkError Kind = "network_error"
	// KindAntiBotBlock is a nominally successful response with an empty or
	// challenge-page body, attributed to automated-traffic detection.
	KindAntiBotBlock Kind = "anti_bot_block"
	// KindNotFound is a well-formed response saying no captions exist.
	KindNotFound Kind = "not_found"
	// KindParseError means a body was present but unusable.
	KindParseError Kind = "parse_error"
	// KindRateLimited is an explicit throttling signal (429, Retry-After).
	KindRateLimited Kind = "rate_limited"
)

// informativeness ranks kinds for aggregate-error reporting. Higher wins.
// AntiBotBlock and NotFound are the most actionable for a caller; a generic
// network failure says the least.
func (k Kind) informativeness() int {
	switch k {
	case KindAntiBotBlock:
		return 5
	case KindNotFound:
		return 4
	case KindRateLimited:
		return 3
	case KindParseError:
		return 2
	case KindNetworkError:
		return 1
	default:
		return 0
	}
}

// MoreInformativeThan reports whether k should be preferred over other as the
// dominant reason of an aggregate failure.
func (k Kind) MoreInformativeThan(other Kind) bool {
	return k.informativeness() > other.informativeness()
}

// AttemptError is the typed failure of a single strategy attempt. Strategies
// return these as values; they are never panicked or thrown.
type AttemptError struct {
	Strategy string
	Kind     Kind
	Detail   string
	// RetryAfter carries an upstream throttling hint, if one was provided.
	RetryAfter time.Duration
}

func (e *AttemptError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Strategy, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Strategy, e.Kind, e.Detail)
}

// NewAttemptError builds an AttemptError for the given strategy and kind.
func NewAttemptError(strategy string, kind Kind, detail string) *AttemptError {
	return &AttemptError{Strategy: strategy, Kind: kind, Detail: detail}
}

// AggregateError reports the outcome of an exhausted fetch: every eligible
// strategy was tried (or skipped by backoff) and none produced a transcript.
type AggregateError struct {
	VideoID   string
	Attempted int
	Attempts  []*AttemptError
}

func (e *AggregateError) Error() string {
	dom := e.Dominant()
	if dom == "" {
		return fmt.Sprintf("transcript fetch failed for %s: no eligible strategies", e.VideoID)
	}
	return fmt.Sprintf("transcript fetch failed for %s: %s (%d strategies attempted)", e.VideoID, dom, e.Attempted)
}

// Dominant returns the most informative failure kind among all attempts,
// or "" if nothing was attempted.
func (e *AggregateError) Dominant() Kind {
	var dom Kind
	for _, a := range e.Attempts {
		if dom == "" || a.Kind.MoreInformativeThan(dom) {
			dom = a.Kind
		}
	}
	return dom
}

// ByStrategy returns the per-strategy breakdown keyed by strategy name.
func (e *AggregateError) ByStrategy() map[string]*AttemptError {
	out := make(map[string]*AttemptError, len(e.Attempts))
	for _, a := range e.Attempts {
		out[a.Strategy] = a
	}
	return out
}
