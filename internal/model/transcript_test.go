package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTranscript_Valid(t *testing.T) {
	t.Parallel()

	segs := []Segment{
		{Start: 1 * time.Second, Duration: 2 * time.Second, Text: "Hello"},
		{Start: 3 * time.Second, Duration: 2 * time.Second, Text: "World"},
	}
	tr, err := NewTranscript("dQw4w9WgXcQ", segs, "en", "pagescrape", time.Now())

	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", tr.VideoID)
	assert.Equal(t, "en", tr.Language)
	assert.Equal(t, "pagescrape", tr.SourceStrategy)
	assert.Len(t, tr.Segments, 2)
}

func TestNewTranscript_EmptySegmentsIsFailure(t *testing.T) {
	t.Parallel()

	tr, err := NewTranscript("dQw4w9WgXcQ", nil, "en", "pagescrape", time.Now())

	assert.Error(t, err)
	assert.Nil(t, tr)
}

func TestNewTranscript_RejectsOutOfOrder(t *testing.T) {
	t.Parallel()

	segs := []Segment{
		{Start: 3 * time.Second, Duration: time.Second, Text: "b"},
		{Start: 1 * time.Second, Duration: time.Second, Text: "a"},
	}
	_, err := NewTranscript("dQw4w9WgXcQ", segs, "en", "pagescrape", time.Now())
	assert.Error(t, err)
}

func TestNewTranscript_RejectsNegativeTiming(t *testing.T) {
	t.Parallel()

	segs := []Segment{{Start: -time.Second, Duration: time.Second, Text: "a"}}
	_, err := NewTranscript("dQw4w9WgXcQ", segs, "en", "pagescrape", time.Now())
	assert.Error(t, err)
}

func TestNewTranscript_DefaultsLanguageUnknown(t *testing.T) {
	t.Parallel()

	segs := []Segment{{Start: 0, Duration: time.Second, Text: "hi"}}
	tr, err := NewTranscript("dQw4w9WgXcQ", segs, "", "timedtext", time.Now())

	require.NoError(t, err)
	assert.Equal(t, "unknown", tr.Language)
}

func TestTranscript_FullText(t *testing.T) {
	t.Parallel()

	segs := []Segment{
		{Start: 0, Duration: time.Second, Text: "never gonna"},
		{Start: time.Second, Duration: time.Second, Text: ""},
		{Start: 2 * time.Second, Duration: time.Second, Text: "give you up"},
	}
	tr, err := NewTranscript("dQw4w9WgXcQ", segs, "en", "ytdlp", time.Now())

	require.NoError(t, err)
	assert.Equal(t, "never gonna give you up", tr.FullText())
}
