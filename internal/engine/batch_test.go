package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidlib/transcript-engine/internal/model"
	"github.com/vidlib/transcript-engine/internal/normalize"
	"github.com/vidlib/transcript-engine/internal/strategy"
)

func TestBatchFetch_ResultsInInputOrder(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, ModeSequential, succeeding("a", "text"))
	ids := []string{"aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc"}

	results := e.BatchFetch(context.Background(), ids, 2)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, ids[i], r.VideoID)
		require.NoError(t, r.Err)
		assert.Equal(t, ids[i], r.Transcript.VideoID)
	}
}

func TestBatchFetch_OneFailureDoesNotAbortOthers(t *testing.T) {
	t.Parallel()

	picky := &stubStrategy{name: "picky", fn: func(_ context.Context, videoID string) *strategy.Outcome {
		if videoID == "bbbbbbbbbbb" {
			return &strategy.Outcome{Err: model.NewAttemptError("picky", model.KindNotFound, "no captions")}
		}
		return &strategy.Outcome{
			Payload: []byte(`<transcript><text start="0" dur="1">ok</text></transcript>`),
			Format:  normalize.FormatTimedText,
		}
	}}
	e := newTestEngine(t, ModeSequential, picky)

	results := e.BatchFetch(context.Background(), []string{"aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc"}, 3)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
}

func TestBatchFetch_RespectsConcurrencyLimit(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	var mu sync.Mutex
	slow := &stubStrategy{name: "slow", fn: func(context.Context, string) *strategy.Outcome {
		n := inFlight.Add(1)
		mu.Lock()
		if n > peak.Load() {
			peak.Store(n)
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return &strategy.Outcome{
			Payload: []byte(`<transcript><text start="0" dur="1">ok</text></transcript>`),
			Format:  normalize.FormatTimedText,
		}
	}}
	e := newTestEngine(t, ModeSequential, slow)

	ids := []string{"aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc", "ddddddddddd", "eeeeeeeeeee", "fffffffffff"}
	results := e.BatchFetch(context.Background(), ids, 2)
	require.Len(t, results, len(ids))
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestBatchFetch_InvalidIDFailsOnlyThatItem(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, ModeSequential, succeeding("a", "text"))

	results := e.BatchFetch(context.Background(), []string{"aaaaaaaaaaa", "bad id"}, 2)
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
}

func TestBatchFetch_DefaultConcurrency(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, ModeSequential, succeeding("a", "text"))
	results := e.BatchFetch(context.Background(), []string{"aaaaaaaaaaa"}, 0)
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
}
