package strategy

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidlib/transcript-engine/internal/model"
	"github.com/vidlib/transcript-engine/internal/normalize"
)

// writeStub drops an executable shell script standing in for the real tool.
func writeStub(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub executables are shell scripts")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

// stubWritingVTT emits a script that finds its --output template argument and
// writes a subtitle file next to it, the way the real tool does.
const stubWritingVTT = `
out=""
prev=""
for arg in "$@"; do
  if [ "$prev" = "--output" ]; then out="$arg"; fi
  prev="$arg"
done
dir=$(dirname "$out")
cat > "$dir/dQw4w9WgXcQ.en.vtt" <<'EOF'
WEBVTT

00:00:01.000 --> 00:00:03.000
Hello from the tool

00:00:03.000 --> 00:00:05.000
Second cue
EOF
exit 0
`

func TestYtdlp_Fetch(t *testing.T) {
	t.Parallel()

	s := NewYtdlp(writeStub(t, stubWritingVTT), t.TempDir())
	out := s.Fetch(context.Background(), "dQw4w9WgXcQ")

	require.True(t, out.OK(), "unexpected failure: %v", out.Err)
	assert.Equal(t, normalize.FormatVTT, out.Format)
	assert.Equal(t, "en", out.Language)

	segs, err := normalize.Normalize(out.Payload, out.Format)
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, "Hello from the tool", segs[0].Text)
	assert.Equal(t, time.Second, segs[0].Start)
}

func TestYtdlp_CleansUpWorkDir(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	s := NewYtdlp(writeStub(t, stubWritingVTT), tempDir)
	out := s.Fetch(context.Background(), "dQw4w9WgXcQ")
	require.True(t, out.OK())

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "per-fetch work dir should be removed")
}

func TestYtdlp_NoSubtitleFileIsNotFound(t *testing.T) {
	t.Parallel()

	s := NewYtdlp(writeStub(t, "exit 0\n"), t.TempDir())
	out := s.Fetch(context.Background(), "dQw4w9WgXcQ")

	require.False(t, out.OK())
	assert.Equal(t, model.KindNotFound, out.Err.Kind)
}

func TestYtdlp_BotCheckStderrIsAntiBot(t *testing.T) {
	t.Parallel()

	script := `echo "ERROR: [youtube] dQw4w9WgXcQ: Sign in to confirm you're not a bot." >&2
exit 1
`
	s := NewYtdlp(writeStub(t, script), t.TempDir())
	out := s.Fetch(context.Background(), "dQw4w9WgXcQ")

	require.False(t, out.OK())
	assert.Equal(t, model.KindAntiBotBlock, out.Err.Kind)
	assert.Contains(t, out.Err.Detail, "Sign in to confirm")
}

func TestYtdlp_UnavailableStderrIsNotFound(t *testing.T) {
	t.Parallel()

	script := `echo "ERROR: [youtube] dQw4w9WgXcQ: Video unavailable" >&2
exit 1
`
	s := NewYtdlp(writeStub(t, script), t.TempDir())
	out := s.Fetch(context.Background(), "dQw4w9WgXcQ")

	require.False(t, out.OK())
	assert.Equal(t, model.KindNotFound, out.Err.Kind)
}

func TestYtdlp_RateLimitStderr(t *testing.T) {
	t.Parallel()

	script := `echo "ERROR: unable to download: HTTP Error 429: Too Many Requests" >&2
exit 1
`
	s := NewYtdlp(writeStub(t, script), t.TempDir())
	out := s.Fetch(context.Background(), "dQw4w9WgXcQ")

	require.False(t, out.OK())
	assert.Equal(t, model.KindRateLimited, out.Err.Kind)
}

func TestYtdlp_ContextTimeout(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s := NewYtdlp(writeStub(t, "sleep 5\n"), t.TempDir())
	out := s.Fetch(ctx, "dQw4w9WgXcQ")

	require.False(t, out.OK())
	assert.Equal(t, model.KindNetworkError, out.Err.Kind)
}

func TestClassifyToolFailure_EmptyStderrUsesExitError(t *testing.T) {
	t.Parallel()

	aerr := classifyToolFailure("ytdlp", "", os.ErrDeadlineExceeded)
	assert.Equal(t, model.KindNetworkError, aerr.Kind)
	assert.NotEmpty(t, aerr.Detail)
}
