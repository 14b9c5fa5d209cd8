// Package store persists fetched transcripts and the per-attempt fetch log.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/vidlib/transcript-engine/internal/model"
)

// ErrNotFound is returned when a requested transcript does not exist.
var ErrNotFound = eris.New("store: not found")

// FetchLogEntry is one recorded strategy attempt, success or failure.
type FetchLogEntry struct {
	ID          string     `json:"id"`
	VideoID     string     `json:"video_id"`
	Strategy    string     `json:"strategy"`
	Success     bool       `json:"success"`
	FailureKind model.Kind `json:"failure_kind,omitempty"`
	Detail      string     `json:"detail,omitempty"`
	AttemptedAt time.Time  `json:"attempted_at"`
}

// TranscriptFilter specifies criteria for listing stored transcripts.
type TranscriptFilter struct {
	Language       string `json:"language,omitempty"`
	SourceStrategy string `json:"source_strategy,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	Offset         int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the transcript engine.
type Store interface {
	// Transcripts
	SaveTranscript(ctx context.Context, t *model.Transcript) error
	GetTranscript(ctx context.Context, videoID string) (*model.Transcript, error)
	ListTranscripts(ctx context.Context, filter TranscriptFilter) ([]model.Transcript, error)
	DeleteTranscript(ctx context.Context, videoID string) error

	// Fetch log
	LogAttempt(ctx context.Context, entry FetchLogEntry) error
	ListFetchLog(ctx context.Context, videoID string, limit int) ([]FetchLogEntry, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
