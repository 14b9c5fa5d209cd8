package engine

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vidlib/transcript-engine/internal/model"
)

// BatchResult is the per-video outcome of a batch fetch. Exactly one of
// Transcript or Err is set.
type BatchResult struct {
	VideoID    string
	Transcript *model.Transcript
	Err        error
}

// BatchFetch fetches many videos with at most concurrency in flight. One
// video failing never aborts the rest; results are returned in input order.
// A canceled context stops scheduling new videos and marks the remainder
// with the context error.
func (e *Engine) BatchFetch(ctx context.Context, videoIDs []string, concurrency int) []BatchResult {
	if concurrency <= 0 {
		concurrency = 4
	}

	results := make([]BatchResult, len(videoIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, id := range videoIDs {
		i, id := i, id
		results[i] = BatchResult{VideoID: id}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			t, err := e.Fetch(gctx, id)
			results[i].Transcript = t
			results[i].Err = err
			// Failures are recorded per result, never propagated: returning
			// an error here would cancel the sibling fetches.
			return nil
		})
	}
	_ = g.Wait()

	ok := 0
	for _, r := range results {
		if r.Err == nil {
			ok++
		}
	}
	e.log.Info("batch complete",
		zap.Int("total", len(videoIDs)),
		zap.Int("succeeded", ok),
		zap.Int("concurrency", concurrency),
	)
	return results
}
