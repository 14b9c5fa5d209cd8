// Package engine orchestrates the caption strategies: ordering, fallback,
// racing, and the per-(video, strategy) failure cache.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/vidlib/transcript-engine/internal/backoff"
	"github.com/vidlib/transcript-engine/internal/model"
	"github.com/vidlib/transcript-engine/internal/normalize"
	"github.com/vidlib/transcript-engine/internal/strategy"
)

// Mode selects how the engine runs its strategies.
type Mode string

const (
	// ModeSequential tries strategies in priority order, stopping at the
	// first success. This is the default: it minimizes upstream traffic.
	ModeSequential Mode = "sequential"
	// ModeRace runs all eligible strategies concurrently and takes the
	// first success, preferring higher-priority strategies on ties.
	ModeRace Mode = "race"
)

// Options configures an Engine.
type Options struct {
	// Strategies in priority order. Position zero is tried (or preferred) first.
	Strategies []strategy.Strategy
	// Cache holds failure records; nil means a fresh in-memory cache.
	Cache *backoff.Cache
	Mode  Mode
	// PerStrategyTimeout bounds each individual attempt. Zero means 30s.
	PerStrategyTimeout time.Duration
}

// Engine fetches transcripts by running strategies against the failure cache.
type Engine struct {
	strategies []strategy.Strategy
	cache      *backoff.Cache
	mode       Mode
	timeout    time.Duration
	now        func() time.Time
	log        *zap.Logger
}

// New creates an Engine. At least one strategy is required.
func New(opts Options) (*Engine, error) {
	if len(opts.Strategies) == 0 {
		return nil, eris.New("engine: at least one strategy required")
	}
	seen := make(map[string]bool, len(opts.Strategies))
	for _, s := range opts.Strategies {
		if seen[s.Name()] {
			return nil, eris.Errorf("engine: duplicate strategy %q", s.Name())
		}
		seen[s.Name()] = true
	}
	if opts.Cache == nil {
		opts.Cache = backoff.NewCache(backoff.DefaultPolicyConfig())
	}
	if opts.Mode == "" {
		opts.Mode = ModeSequential
	}
	if opts.Mode != ModeSequential && opts.Mode != ModeRace {
		return nil, eris.Errorf("engine: unknown mode %q", opts.Mode)
	}
	if opts.PerStrategyTimeout == 0 {
		opts.PerStrategyTimeout = 30 * time.Second
	}
	return &Engine{
		strategies: opts.Strategies,
		cache:      opts.Cache,
		mode:       opts.Mode,
		timeout:    opts.PerStrategyTimeout,
		now:        time.Now,
		log:        zap.L().With(zap.String("component", "engine")),
	}, nil
}

// Cache exposes the failure cache for inspection.
func (e *Engine) Cache() *backoff.Cache { return e.cache }

// Fetch obtains a transcript for one video. On exhaustion it returns a
// *model.AggregateError carrying every attempt's failure.
func (e *Engine) Fetch(ctx context.Context, videoID string) (*model.Transcript, error) {
	if err := model.ValidateVideoID(videoID); err != nil {
		return nil, err
	}

	eligible, skipped := e.partition(videoID)
	if len(eligible) == 0 {
		e.log.Debug("all strategies in backoff",
			zap.String("video_id", videoID),
			zap.Int("skipped", len(skipped)),
		)
		return nil, &model.AggregateError{VideoID: videoID, Attempted: 0, Attempts: skipped}
	}

	switch e.mode {
	case ModeRace:
		return e.fetchRace(ctx, videoID, eligible, skipped)
	default:
		return e.fetchSequential(ctx, videoID, eligible, skipped)
	}
}

// partition splits strategies into those eligible to run now and synthetic
// attempt errors for those still inside a backoff window.
func (e *Engine) partition(videoID string) ([]strategy.Strategy, []*model.AttemptError) {
	var eligible []strategy.Strategy
	var skipped []*model.AttemptError
	for _, s := range e.strategies {
		ok, until := e.cache.Eligible(videoID, s.Name())
		if ok {
			eligible = append(eligible, s)
			continue
		}
		skipped = append(skipped, model.NewAttemptError(s.Name(), model.KindRateLimited,
			"in backoff until "+until.Format(time.RFC3339)))
	}
	return eligible, skipped
}

func (e *Engine) fetchSequential(ctx context.Context, videoID string, eligible []strategy.Strategy, skipped []*model.AttemptError) (*model.Transcript, error) {
	attempts := append([]*model.AttemptError(nil), skipped...)
	attempted := 0

	for _, s := range eligible {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "engine: fetch canceled")
		}
		attempted++
		t, aerr := e.runOne(ctx, s, videoID)
		if aerr == nil {
			return t, nil
		}
		attempts = append(attempts, aerr)
		e.log.Debug("strategy failed, falling back",
			zap.String("video_id", videoID),
			zap.String("strategy", s.Name()),
			zap.String("kind", string(aerr.Kind)),
		)
	}

	return nil, &model.AggregateError{VideoID: videoID, Attempted: attempted, Attempts: attempts}
}

// fetchRace runs every eligible strategy at once. The first success cancels
// the rest; if several succeed before cancellation lands, the one earliest in
// priority order wins. Losers' failures are still recorded in the cache.
func (e *Engine) fetchRace(ctx context.Context, videoID string, eligible []strategy.Strategy, skipped []*model.AttemptError) (*model.Transcript, error) {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type raced struct {
		priority   int
		transcript *model.Transcript
		err        *model.AttemptError
	}

	results := make(chan raced, len(eligible))
	var wg sync.WaitGroup
	for i, s := range eligible {
		wg.Add(1)
		go func(priority int, s strategy.Strategy) {
			defer wg.Done()
			t, aerr := e.runOne(raceCtx, s, videoID)
			results <- raced{priority: priority, transcript: t, err: aerr}
		}(i, s)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var winner *raced
	attempts := append([]*model.AttemptError(nil), skipped...)
	for r := range results {
		r := r
		if r.err != nil {
			attempts = append(attempts, r.err)
			continue
		}
		if winner == nil {
			winner = &r
			cancel()
			continue
		}
		if r.priority < winner.priority {
			winner = &r
		}
	}

	if winner != nil {
		return winner.transcript, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "engine: fetch canceled")
	}
	return nil, &model.AggregateError{VideoID: videoID, Attempted: len(eligible), Attempts: attempts}
}

// runOne executes a single strategy attempt end to end: timeout, fetch,
// normalize, and cache bookkeeping. A payload that fails normalization counts
// as a ParseError against the strategy that produced it.
func (e *Engine) runOne(ctx context.Context, s strategy.Strategy, videoID string) (*model.Transcript, *model.AttemptError) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out := s.Fetch(attemptCtx, videoID)
	if !out.OK() {
		e.cache.RecordFailure(videoID, s.Name(), out.Err.Kind, out.Err.RetryAfter)
		return nil, out.Err
	}

	segments, err := normalize.Normalize(out.Payload, out.Format)
	if err != nil {
		aerr := model.NewAttemptError(s.Name(), model.KindParseError, err.Error())
		e.cache.RecordFailure(videoID, s.Name(), aerr.Kind, 0)
		return nil, aerr
	}

	t, err := model.NewTranscript(videoID, segments, model.NormalizeLanguage(out.Language), s.Name(), e.now())
	if err != nil {
		aerr := model.NewAttemptError(s.Name(), model.KindParseError, err.Error())
		e.cache.RecordFailure(videoID, s.Name(), aerr.Kind, 0)
		return nil, aerr
	}

	e.cache.RecordSuccess(videoID, s.Name())
	e.log.Info("transcript fetched",
		zap.String("video_id", videoID),
		zap.String("strategy", s.Name()),
		zap.Int("segments", len(t.Segments)),
		zap.String("language", t.Language),
	)
	return t, nil
}
