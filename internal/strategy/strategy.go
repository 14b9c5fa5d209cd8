// Package strategy implements the five independent caption fetchers.
package strategy

import (
	"context"

	"github.com/vidlib/transcript-engine/internal/model"
	"github.com/vidlib/transcript-engine/internal/normalize"
)

// Outcome is the tagged result of one strategy attempt. Exactly one of
// Payload or Err is meaningful. Expected failure modes are values here,
// never panics or returned errors.
type Outcome struct {
	Payload  []byte
	Format   normalize.Format
	Language string
	Err      *model.AttemptError
}

// OK reports whether the attempt produced raw caption data.
func (o *Outcome) OK() bool {
	return o.Err == nil
}

// Strategy is one self-contained method of obtaining caption data. The
// video id is validated once at the engine boundary, not per strategy.
type Strategy interface {
	// Name returns the unique strategy identifier (e.g. "pagescrape").
	Name() string

	// Fetch attempts to obtain raw caption data for the video. The context
	// carries the per-strategy timeout; implementations must honor it.
	Fetch(ctx context.Context, videoID string) *Outcome
}

func success(payload []byte, format normalize.Format, language string) *Outcome {
	return &Outcome{Payload: payload, Format: format, Language: language}
}

func failure(strategy string, kind model.Kind, detail string) *Outcome {
	return &Outcome{Err: model.NewAttemptError(strategy, kind, detail)}
}

func failureErr(err *model.AttemptError) *Outcome {
	return &Outcome{Err: err}
}

// keepMoreInformative merges failures from multiple sub-requests within one
// attempt, preferring the kind that says more to the caller.
func keepMoreInformative(prev, next *model.AttemptError) *model.AttemptError {
	if prev == nil {
		return next
	}
	if next != nil && next.Kind.MoreInformativeThan(prev.Kind) {
		return next
	}
	return prev
}
