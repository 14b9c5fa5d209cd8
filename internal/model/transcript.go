package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Segment is one timed caption entry.
type Segment struct {
	Start    time.Duration `json:"start"`
	Duration time.Duration `json:"duration"`
	Text     string        `json:"text"`
}

// End returns the offset at which the segment stops.
func (s Segment) End() time.Duration {
	return s.Start + s.Duration
}

// Transcript is the normalized result of a successful strategy attempt.
// Immutable after construction; the engine keeps no reference once returned.
type Transcript struct {
	VideoID        string    `json:"video_id"`
	Segments       []Segment `json:"segments"`
	Language       string    `json:"language"`
	SourceStrategy string    `json:"source_strategy"`
	FetchedAt      time.Time `json:"fetched_at"`
}

// NewTranscript validates segment ordering and builds a Transcript.
// An empty segment sequence is a failure, not an empty transcript.
func NewTranscript(videoID string, segments []Segment, language, source string, fetchedAt time.Time) (*Transcript, error) {
	if len(segments) == 0 {
		return nil, eris.Errorf("transcript: no segments for %s", videoID)
	}
	var prev time.Duration
	for i, seg := range segments {
		if seg.Start < 0 || seg.Duration < 0 {
			return nil, eris.Errorf("transcript: negative timing at segment %d for %s", i, videoID)
		}
		if seg.Start < prev {
			return nil, eris.Errorf("transcript: out-of-order segment %d for %s", i, videoID)
		}
		prev = seg.Start
	}
	if language == "" {
		language = "unknown"
	}
	return &Transcript{
		VideoID:        videoID,
		Segments:       segments,
		Language:       language,
		SourceStrategy: source,
		FetchedAt:      fetchedAt,
	}, nil
}

// FullText joins all segment texts with single spaces.
func (t *Transcript) FullText() string {
	parts := make([]string, 0, len(t.Segments))
	for _, seg := range t.Segments {
		if seg.Text != "" {
			parts = append(parts, seg.Text)
		}
	}
	return strings.Join(parts, " ")
}
