package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidlib/transcript-engine/internal/backoff"
	"github.com/vidlib/transcript-engine/internal/engine"
	"github.com/vidlib/transcript-engine/internal/model"
	"github.com/vidlib/transcript-engine/internal/normalize"
	"github.com/vidlib/transcript-engine/internal/store"
	"github.com/vidlib/transcript-engine/internal/strategy"
)

// scriptedStrategy returns a canned outcome per video id.
type scriptedStrategy struct {
	name     string
	outcomes map[string]*strategy.Outcome
}

func (s *scriptedStrategy) Name() string { return s.name }

func (s *scriptedStrategy) Fetch(_ context.Context, videoID string) *strategy.Outcome {
	if out, ok := s.outcomes[videoID]; ok {
		return out
	}
	return &strategy.Outcome{Err: model.NewAttemptError(s.name, model.KindNotFound, "unscripted")}
}

func captionOutcome(text string) *strategy.Outcome {
	return &strategy.Outcome{
		Payload:  []byte(`<transcript><text start="1.0" dur="2.0">` + text + `</text></transcript>`),
		Format:   normalize.FormatTimedText,
		Language: "en",
	}
}

func newTestServer(t *testing.T, outcomes map[string]*strategy.Outcome) (*Server, store.Store) {
	t.Helper()

	cfg := backoff.DefaultPolicyConfig()
	cfg.JitterFraction = 0
	eng, err := engine.New(engine.Options{
		Strategies: []strategy.Strategy{&scriptedStrategy{name: "scripted", outcomes: outcomes}},
		Cache:      backoff.NewCache(cfg),
	})
	require.NoError(t, err)

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	return New(eng, st), st
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, nil)
	rec := doRequest(t, srv.Router(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_GetTranscript_FetchesAndPersists(t *testing.T) {
	t.Parallel()

	srv, st := newTestServer(t, map[string]*strategy.Outcome{
		"dQw4w9WgXcQ": captionOutcome("Hello"),
	})
	router := srv.Router()

	rec := doRequest(t, router, http.MethodGet, "/transcript/dQw4w9WgXcQ", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp transcriptResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "dQw4w9WgXcQ", resp.VideoID)
	assert.Equal(t, "scripted", resp.SourceStrategy)
	assert.Equal(t, "Hello", resp.Text)

	// Persisted: a second request is served from the store even though the
	// strategy would still answer.
	saved, err := st.GetTranscript(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "Hello", saved.FullText())

	rec = doRequest(t, router, http.MethodGet, "/transcript/dQw4w9WgXcQ", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_GetTranscript_InvalidID(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, nil)
	rec := doRequest(t, srv.Router(), http.MethodGet, "/transcript/short", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_GetTranscript_NotFound(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, nil)
	rec := doRequest(t, srv.Router(), http.MethodGet, "/transcript/aaaaaaaaaaa", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(model.KindNotFound), resp["failure_kind"])
}

func TestServer_GetTranscript_BlockedIsUnavailable(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, map[string]*strategy.Outcome{
		"bbbbbbbbbbb": {Err: model.NewAttemptError("scripted", model.KindAntiBotBlock, "challenge page")},
	})
	rec := doRequest(t, srv.Router(), http.MethodGet, "/transcript/bbbbbbbbbbb", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_Batch(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, map[string]*strategy.Outcome{
		"aaaaaaaaaaa": captionOutcome("first"),
		"ccccccccccc": captionOutcome("third"),
	})

	body, _ := json.Marshal(batchRequest{
		VideoIDs:    []string{"aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc"},
		Concurrency: 2,
	})
	rec := doRequest(t, srv.Router(), http.MethodPost, "/batch", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var items []batchItemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 3)

	assert.Equal(t, "first", items[0].Transcript.Text)
	assert.Nil(t, items[1].Transcript)
	assert.Equal(t, model.KindNotFound, items[1].FailureKind)
	assert.Equal(t, "third", items[2].Transcript.Text)
}

func TestServer_BatchValidation(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, nil)
	router := srv.Router()

	rec := doRequest(t, router, http.MethodPost, "/batch", []byte("not json"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, _ := json.Marshal(batchRequest{})
	rec = doRequest(t, router, http.MethodPost, "/batch", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_CacheSnapshot(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, map[string]*strategy.Outcome{
		"bbbbbbbbbbb": {Err: model.NewAttemptError("scripted", model.KindAntiBotBlock, "blocked")},
	})
	router := srv.Router()

	doRequest(t, router, http.MethodGet, "/transcript/bbbbbbbbbbb", nil)

	rec := doRequest(t, router, http.MethodGet, "/cache", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var records []backoff.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "bbbbbbbbbbb", records[0].VideoID)
	assert.Equal(t, model.KindAntiBotBlock, records[0].Kind)
}

func TestServer_ListAndDelete(t *testing.T) {
	t.Parallel()

	srv, st := newTestServer(t, nil)
	router := srv.Router()

	tr, err := model.NewTranscript("dQw4w9WgXcQ", []model.Segment{
		{Start: 0, Duration: time.Second, Text: "stored"},
	}, "en", "pagescrape", time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, st.SaveTranscript(context.Background(), tr))

	rec := doRequest(t, router, http.MethodGet, "/transcripts?language=en", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []transcriptResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = doRequest(t, router, http.MethodDelete, "/transcript/dQw4w9WgXcQ", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/transcript/dQw4w9WgXcQ", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
