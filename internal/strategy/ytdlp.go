package strategy

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/vidlib/transcript-engine/internal/model"
	"github.com/vidlib/transcript-engine/internal/normalize"
)

// Ytdlp delegates caption extraction to the yt-dlp binary, which maintains
// its own defenses against upstream blocking. It writes subtitle files to a
// temp dir and never downloads media.
type Ytdlp struct {
	binPath string
	tempDir string
	langs   string
}

// NewYtdlp creates the external-downloader strategy. An empty binPath means
// "yt-dlp" on PATH; an empty tempDir uses the system default.
func NewYtdlp(binPath, tempDir string) *Ytdlp {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Ytdlp{
		binPath: binPath,
		tempDir: tempDir,
		langs:   "en,en-US,en-GB",
	}
}

func (s *Ytdlp) Name() string { return "ytdlp" }

// Fetch implements Strategy.
func (s *Ytdlp) Fetch(ctx context.Context, videoID string) *Outcome {
	workDir, err := os.MkdirTemp(s.tempDir, "captions-"+videoID+"-*")
	if err != nil {
		return failure(s.Name(), model.KindNetworkError, "temp dir: "+err.Error())
	}
	defer os.RemoveAll(workDir)

	outTmpl := filepath.Join(workDir, "%(id)s.%(ext)s")
	cmd := exec.CommandContext(ctx, s.binPath,
		"--quiet",
		"--no-warnings",
		"--skip-download",
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", s.langs,
		"--sub-format", "vtt",
		"--output", outTmpl,
		"https://www.youtube.com/watch?v="+videoID,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return failure(s.Name(), model.KindNetworkError, "timeout: "+ctx.Err().Error())
		}
		return failureErr(classifyToolFailure(s.Name(), stderr.String(), err))
	}

	path, lang, found := findSubtitleFile(workDir, videoID)
	if !found {
		return failure(s.Name(), model.KindNotFound, "tool produced no subtitle file")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return failure(s.Name(), model.KindParseError, "read subtitle file: "+err.Error())
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return failure(s.Name(), model.KindAntiBotBlock, "empty subtitle file")
	}

	zap.L().Debug("yt-dlp produced subtitles",
		zap.String("video_id", videoID),
		zap.String("file", filepath.Base(path)),
	)
	return success(data, normalize.FormatVTT, lang)
}

// findSubtitleFile locates the downloaded track. yt-dlp names files
// <id>.<lang>.vtt; the caller's language preference already shaped what got
// written, so the first match wins.
func findSubtitleFile(dir, videoID string) (path, lang string, found bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", "", false
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, videoID+".") || !strings.HasSuffix(name, ".vtt") {
			continue
		}
		lang = strings.TrimSuffix(strings.TrimPrefix(name, videoID+"."), ".vtt")
		return filepath.Join(dir, name), lang, true
	}
	return "", "", false
}

// classifyToolFailure maps yt-dlp's exit chatter onto the failure taxonomy.
func classifyToolFailure(strategy, stderr string, err error) *model.AttemptError {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "video unavailable"),
		strings.Contains(lower, "private video"),
		strings.Contains(lower, "no subtitles"),
		strings.Contains(lower, "there are no subtitles"):
		return model.NewAttemptError(strategy, model.KindNotFound, firstLine(stderr))
	case strings.Contains(lower, "http error 429"),
		strings.Contains(lower, "too many requests"):
		return model.NewAttemptError(strategy, model.KindRateLimited, firstLine(stderr))
	case strings.Contains(lower, "sign in to confirm"),
		strings.Contains(lower, "not a bot"),
		strings.Contains(lower, "unable to extract"):
		return model.NewAttemptError(strategy, model.KindAntiBotBlock, firstLine(stderr))
	default:
		detail := firstLine(stderr)
		if detail == "" {
			detail = err.Error()
		}
		return model.NewAttemptError(strategy, model.KindNetworkError, detail)
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
