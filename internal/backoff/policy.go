// Package backoff tracks recently failed (video, strategy) pairs and decides
// when a retry is allowed again.
package backoff

import (
	"math"
	"math/rand"
	"time"

	"github.com/vidlib/transcript-engine/internal/model"
)

// PolicyConfig holds the per-kind backoff windows. Exponential kinds double
// per consecutive failure up to their cap; fixed kinds ignore the attempt count.
type PolicyConfig struct {
	AntiBotBase    time.Duration
	AntiBotCap     time.Duration
	RateLimitBase  time.Duration
	RateLimitCap   time.Duration
	NotFoundWindow time.Duration
	NetworkWindow  time.Duration
	ParseWindow    time.Duration
	// JitterFraction spreads exponential windows by ±fraction to keep retries
	// from aligning across videos. 0 disables jitter (useful in tests).
	JitterFraction float64
}

// DefaultPolicyConfig returns the standard backoff windows. AntiBotBlock gets
// the longest exponential window since it signals systemic blocking rather
// than a per-video problem; NotFound is a stable negative cached for a day.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		AntiBotBase:    2 * time.Minute,
		AntiBotCap:     time.Hour,
		RateLimitBase:  30 * time.Second,
		RateLimitCap:   15 * time.Minute,
		NotFoundWindow: 24 * time.Hour,
		NetworkWindow:  15 * time.Second,
		ParseWindow:    5 * time.Minute,
		JitterFraction: 0.2,
	}
}

// Policy computes the retry-after window for a failure kind and consecutive
// attempt count. attempt is 1-based; every returned window is finite.
func (c PolicyConfig) Policy(kind model.Kind, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	switch kind {
	case model.KindAntiBotBlock:
		return c.exponential(c.AntiBotBase, c.AntiBotCap, attempt)
	case model.KindRateLimited:
		return c.exponential(c.RateLimitBase, c.RateLimitCap, attempt)
	case model.KindNotFound:
		return c.NotFoundWindow
	case model.KindParseError:
		return c.ParseWindow
	default:
		return c.NetworkWindow
	}
}

func (c PolicyConfig) exponential(base, cap time.Duration, attempt int) time.Duration {
	d := float64(base) * math.Pow(2, float64(attempt-1))
	if d > float64(cap) {
		d = float64(cap)
	}
	if c.JitterFraction > 0 {
		jitter := (rand.Float64()*2 - 1) * d * c.JitterFraction
		d += jitter
		if d > float64(cap) {
			d = float64(cap)
		}
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}
