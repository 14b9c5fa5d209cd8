package strategy

import (
	"context"
	"net/url"
	"strings"

	"github.com/vidlib/transcript-engine/internal/fetcher"
	"github.com/vidlib/transcript-engine/internal/model"
	"github.com/vidlib/transcript-engine/internal/normalize"
)

// TimedText calls the caption-delivery endpoint directly with constructed
// parameters, bypassing the watch page entirely.
type TimedText struct {
	client  fetcher.Client
	baseURL string
	langs   []string
}

// NewTimedText creates the direct-endpoint strategy.
func NewTimedText(client fetcher.Client, baseURL string) *TimedText {
	if baseURL == "" {
		baseURL = "https://www.youtube.com"
	}
	return &TimedText{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		langs:   englishCodes,
	}
}

func (s *TimedText) Name() string { return "timedtext" }

// Fetch tries each language, manual track first then the auto-generated one.
// The endpoint answers 200 with an empty body both when blocking and when a
// track is missing; the empty case classifies as AntiBotBlock per the shared
// rule, so the last seen failure is what gets reported.
func (s *TimedText) Fetch(ctx context.Context, videoID string) *Outcome {
	var lastErr *model.AttemptError

	for _, lang := range s.langs {
		for _, asr := range []bool{false, true} {
			q := url.Values{}
			q.Set("v", videoID)
			q.Set("lang", lang)
			q.Set("fmt", "json3")
			if asr {
				q.Set("kind", "asr")
			}

			resp, err := s.client.Get(ctx, s.baseURL+"/api/timedtext?"+q.Encode())
			if err != nil {
				lastErr = keepMoreInformative(lastErr, classifyTransport(s.Name(), err))
				continue
			}
			if aerr := classifyResponse(s.Name(), resp); aerr != nil {
				lastErr = keepMoreInformative(lastErr, aerr)
				continue
			}
			return success(resp.Body, normalize.FormatJSON3, lang)
		}
	}

	if lastErr == nil {
		lastErr = model.NewAttemptError(s.Name(), model.KindNotFound, "no timedtext for any language")
	}
	return failureErr(lastErr)
}
