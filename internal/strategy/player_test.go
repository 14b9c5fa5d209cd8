package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPlayerResponse(t *testing.T) {
	t.Parallel()

	page := []byte(`<html><script>var ytInitialPlayerResponse = {"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[{"baseUrl":"https://example.com/tt","languageCode":"en"}]}},"playabilityStatus":{"status":"OK"}};</script></html>`)

	pr, err := extractPlayerResponse(page)
	require.NoError(t, err)
	require.Len(t, pr.Captions.Renderer.CaptionTracks, 1)
	assert.Equal(t, "en", pr.Captions.Renderer.CaptionTracks[0].LanguageCode)
}

func TestExtractPlayerResponse_NotPresent(t *testing.T) {
	t.Parallel()

	_, err := extractPlayerResponse([]byte("<html>nothing here</html>"))
	assert.Error(t, err)
}

func TestPickTrack_PreferenceOrder(t *testing.T) {
	t.Parallel()

	manualFR := captionTrack{BaseURL: "fr", LanguageCode: "fr"}
	autoEN := captionTrack{BaseURL: "auto-en", LanguageCode: "en", Kind: "asr"}
	manualEN := captionTrack{BaseURL: "manual-en", LanguageCode: "en-US"}

	// Manual English beats auto English and manual other-language.
	got, ok := pickTrack([]captionTrack{manualFR, autoEN, manualEN}, false)
	require.True(t, ok)
	assert.Equal(t, "manual-en", got.BaseURL)

	// Without manual English, auto English wins over manual French.
	got, ok = pickTrack([]captionTrack{manualFR, autoEN}, false)
	require.True(t, ok)
	assert.Equal(t, "auto-en", got.BaseURL)

	// Without any English, a manual track wins over nothing.
	got, ok = pickTrack([]captionTrack{manualFR}, false)
	require.True(t, ok)
	assert.Equal(t, "fr", got.BaseURL)
}

func TestPickTrack_AsrOnly(t *testing.T) {
	t.Parallel()

	manualEN := captionTrack{BaseURL: "manual-en", LanguageCode: "en"}
	autoDE := captionTrack{BaseURL: "auto-de", LanguageCode: "de", Kind: "asr"}

	got, ok := pickTrack([]captionTrack{manualEN, autoDE}, true)
	require.True(t, ok)
	assert.Equal(t, "auto-de", got.BaseURL)

	_, ok = pickTrack([]captionTrack{manualEN}, true)
	assert.False(t, ok, "no auto-generated tracks available")
}

func TestPickTrack_Empty(t *testing.T) {
	t.Parallel()

	_, ok := pickTrack(nil, false)
	assert.False(t, ok)
}

func TestSniffFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "xml", sniffFormat([]byte("  <?xml version=\"1.0\"?>")))
	assert.Equal(t, "json", sniffFormat([]byte("\n{\"events\":[]}")))
	assert.Equal(t, "text", sniffFormat([]byte("WEBVTT")))
	assert.Equal(t, "empty", sniffFormat([]byte("   ")))
}
