package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/vidlib/transcript-engine/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS transcripts (
	id              TEXT PRIMARY KEY,
	video_id        TEXT NOT NULL UNIQUE,
	language        TEXT NOT NULL,
	source_strategy TEXT NOT NULL,
	segments        TEXT NOT NULL,
	fetched_at      DATETIME NOT NULL,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS fetch_log (
	id           TEXT PRIMARY KEY,
	video_id     TEXT NOT NULL,
	strategy     TEXT NOT NULL,
	success      INTEGER NOT NULL,
	failure_kind TEXT,
	detail       TEXT,
	attempted_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transcripts_language ON transcripts(language);
CREATE INDEX IF NOT EXISTS idx_transcripts_source ON transcripts(source_strategy);
CREATE INDEX IF NOT EXISTS idx_fetch_log_video_id ON fetch_log(video_id);
CREATE INDEX IF NOT EXISTS idx_fetch_log_attempted_at ON fetch_log(attempted_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveTranscript upserts by video id: refetching a video replaces its
// transcript rather than accumulating duplicates.
func (s *SQLiteStore) SaveTranscript(ctx context.Context, t *model.Transcript) error {
	segmentsJSON, err := json.Marshal(t.Segments)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal segments")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transcripts (id, video_id, language, source_strategy, segments, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(video_id) DO UPDATE SET
			language = excluded.language,
			source_strategy = excluded.source_strategy,
			segments = excluded.segments,
			fetched_at = excluded.fetched_at`,
		uuid.New().String(), t.VideoID, t.Language, t.SourceStrategy,
		string(segmentsJSON), t.FetchedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: save transcript %s", t.VideoID)
}

func (s *SQLiteStore) GetTranscript(ctx context.Context, videoID string) (*model.Transcript, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT video_id, language, source_strategy, segments, fetched_at
		FROM transcripts WHERE video_id = ?`,
		videoID,
	)
	return scanTranscript(row)
}

func (s *SQLiteStore) ListTranscripts(ctx context.Context, filter TranscriptFilter) ([]model.Transcript, error) {
	query := `SELECT video_id, language, source_strategy, segments, fetched_at FROM transcripts WHERE 1=1`
	var args []any
	if filter.Language != "" {
		query += ` AND language = ?`
		args = append(args, filter.Language)
	}
	if filter.SourceStrategy != "" {
		query += ` AND source_strategy = ?`
		args = append(args, filter.SourceStrategy)
	}
	query += ` ORDER BY fetched_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list transcripts")
	}
	defer rows.Close()

	var out []model.Transcript
	for rows.Next() {
		t, err := scanTranscript(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate transcripts")
}

func (s *SQLiteStore) DeleteTranscript(ctx context.Context, videoID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transcripts WHERE video_id = ?`, videoID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete transcript %s", videoID)
	}
	return checkRowsAffected(res, "transcript", videoID)
}

func (s *SQLiteStore) LogAttempt(ctx context.Context, entry FetchLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.AttemptedAt.IsZero() {
		entry.AttemptedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fetch_log (id, video_id, strategy, success, failure_kind, detail, attempted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.VideoID, entry.Strategy, entry.Success,
		string(entry.FailureKind), entry.Detail, entry.AttemptedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: log attempt %s/%s", entry.VideoID, entry.Strategy)
}

func (s *SQLiteStore) ListFetchLog(ctx context.Context, videoID string, limit int) ([]FetchLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, video_id, strategy, success, failure_kind, detail, attempted_at
		FROM fetch_log WHERE video_id = ?
		ORDER BY attempted_at DESC LIMIT ?`,
		videoID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list fetch log")
	}
	defer rows.Close()

	var out []FetchLogEntry
	for rows.Next() {
		var e FetchLogEntry
		var kind string
		if err := rows.Scan(&e.ID, &e.VideoID, &e.Strategy, &e.Success, &kind, &e.Detail, &e.AttemptedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan fetch log")
		}
		e.FailureKind = model.Kind(kind)
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate fetch log")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTranscript(row scannable) (*model.Transcript, error) {
	var t model.Transcript
	var segmentsJSON string
	err := row.Scan(&t.VideoID, &t.Language, &t.SourceStrategy, &segmentsJSON, &t.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan transcript")
	}
	if err := json.Unmarshal([]byte(segmentsJSON), &t.Segments); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal segments")
	}
	return &t, nil
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}
