package backoff

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/vidlib/transcript-engine/internal/model"
)

const shardCount = 16

// Record is one (video, strategy) failure entry.
type Record struct {
	VideoID     string
	Strategy    string
	Kind        model.Kind
	Attempts    int
	AttemptedAt time.Time
	RetryAfter  time.Time
}

// Cache is the process-wide failure/backoff state. It exists purely to avoid
// amplifying provider-side blocking within a single running instance; nothing
// survives a restart. Entries for different keys update without contention.
type Cache struct {
	policy PolicyConfig
	now    func() time.Time
	shards [shardCount]*shard
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*Record
}

// NewCache creates a Cache using the given policy.
func NewCache(policy PolicyConfig) *Cache {
	c := &Cache{policy: policy, now: time.Now}
	for i := range c.shards {
		c.shards[i] = &shard{entries: make(map[string]*Record)}
	}
	return c
}

// WithClock overrides the time source. Test hook.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

func (c *Cache) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%shardCount]
}

func key(videoID, strategy string) string {
	return videoID + "|" + strategy
}

// Eligible reports whether the (video, strategy) pair may be attempted now,
// and when it next becomes eligible if not. Expired entries are pruned.
func (c *Cache) Eligible(videoID, strategy string) (bool, time.Time) {
	k := key(videoID, strategy)
	s := c.shardFor(k)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.entries[k]
	if !ok {
		return true, time.Time{}
	}
	if !c.now().Before(rec.RetryAfter) {
		delete(s.entries, k)
		return true, time.Time{}
	}
	return false, rec.RetryAfter
}

// RecordFailure updates the entry for the pair. Consecutive failures of the
// same kind grow the window; a kind change resets the attempt count. A positive
// hint (e.g. an upstream Retry-After) wins when longer than the policy window.
func (c *Cache) RecordFailure(videoID, strategy string, kind model.Kind, hint time.Duration) {
	k := key(videoID, strategy)
	s := c.shardFor(k)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := c.now()
	rec, ok := s.entries[k]
	if !ok || rec.Kind != kind {
		rec = &Record{VideoID: videoID, Strategy: strategy, Kind: kind}
		s.entries[k] = rec
	}
	rec.Attempts++
	rec.AttemptedAt = now

	window := c.policy.Policy(kind, rec.Attempts)
	if hint > window {
		window = hint
	}
	rec.RetryAfter = now.Add(window)
}

// RecordSuccess clears any failure entry for the pair.
func (c *Cache) RecordSuccess(videoID, strategy string) {
	k := key(videoID, strategy)
	s := c.shardFor(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, k)
}

// Snapshot returns copies of all live (non-expired) records, for operator
// diagnostics. AntiBotBlock entries piling up across videos mean the blocking
// is systemic, not per-video.
func (c *Cache) Snapshot() []Record {
	now := c.now()
	var out []Record
	for _, s := range c.shards {
		s.mu.Lock()
		for k, rec := range s.entries {
			if !now.Before(rec.RetryAfter) {
				delete(s.entries, k)
				continue
			}
			out = append(out, *rec)
		}
		s.mu.Unlock()
	}
	return out
}
