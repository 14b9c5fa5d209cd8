package strategy

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/vidlib/transcript-engine/internal/fetcher"
	"github.com/vidlib/transcript-engine/internal/model"
	"github.com/vidlib/transcript-engine/internal/normalize"
)

// PageScrape loads the public watch page with browser-like headers, extracts
// the embedded caption-track URL, and fetches it.
type PageScrape struct {
	client  fetcher.Client
	baseURL string
	name    string
	asrOnly bool
}

// NewPageScrape creates the watch-page scraping strategy. baseURL defaults to
// the public site and exists for tests.
func NewPageScrape(client fetcher.Client, baseURL string) *PageScrape {
	return newPageStrategy(client, baseURL, "pagescrape", false)
}

// NewAutoCaption narrows PageScrape to automatically generated tracks only.
// Same transport, different selection heuristic.
func NewAutoCaption(client fetcher.Client, baseURL string) *PageScrape {
	return newPageStrategy(client, baseURL, "autocaption", true)
}

func newPageStrategy(client fetcher.Client, baseURL, name string, asrOnly bool) *PageScrape {
	if baseURL == "" {
		baseURL = "https://www.youtube.com"
	}
	return &PageScrape{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		name:    name,
		asrOnly: asrOnly,
	}
}

func (s *PageScrape) Name() string { return s.name }

// Fetch implements Strategy.
func (s *PageScrape) Fetch(ctx context.Context, videoID string) *Outcome {
	log := zap.L().With(zap.String("strategy", s.name), zap.String("video_id", videoID))

	resp, err := s.client.Get(ctx, s.baseURL+"/watch?v="+videoID)
	if err != nil {
		return failureErr(classifyTransport(s.name, err))
	}
	if aerr := classifyResponse(s.name, resp); aerr != nil {
		return failureErr(aerr)
	}

	page := string(resp.Body)
	if strings.Contains(page, "Video unavailable") || strings.Contains(page, "This video is not available") {
		return failure(s.name, model.KindNotFound, "video unavailable")
	}

	pr, err := extractPlayerResponse(resp.Body)
	if err != nil {
		// A watch page without the player JSON is a soft block: the upstream
		// served a shell page to a client it didn't trust.
		return failure(s.name, model.KindAntiBotBlock, "no player response in page")
	}

	tracks := pr.Captions.Renderer.CaptionTracks
	if len(tracks) == 0 {
		return failure(s.name, model.KindNotFound, "no caption tracks")
	}

	track, ok := pickTrack(tracks, s.asrOnly)
	if !ok {
		return failure(s.name, model.KindNotFound, "no matching caption track")
	}
	log.Debug("fetching caption track",
		zap.String("language", track.LanguageCode),
		zap.Bool("auto_generated", track.isAutoGenerated()),
	)

	trackResp, err := s.client.Get(ctx, track.BaseURL)
	if err != nil {
		return failureErr(classifyTransport(s.name, err))
	}
	if aerr := classifyResponse(s.name, trackResp); aerr != nil {
		return failureErr(aerr)
	}

	format := normalize.FormatTimedText
	if sniffFormat(trackResp.Body) == "json" {
		format = normalize.FormatJSON3
	}
	return success(trackResp.Body, format, track.LanguageCode)
}
