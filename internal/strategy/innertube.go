package strategy

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/vidlib/transcript-engine/internal/fetcher"
	"github.com/vidlib/transcript-engine/internal/model"
	"github.com/vidlib/transcript-engine/internal/normalize"
)

// Innertube calls the internal API surface the provider's own web client
// uses. The request/response shape is unrelated to the public endpoints: a
// JSON POST with a client context, answered by a nested renderer tree.
type Innertube struct {
	client  fetcher.Client
	baseURL string
}

// NewInnertube creates the internal-API strategy.
func NewInnertube(client fetcher.Client, baseURL string) *Innertube {
	if baseURL == "" {
		baseURL = "https://www.youtube.com"
	}
	return &Innertube{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *Innertube) Name() string { return "innertube" }

type innertubeRequest struct {
	Context innertubeContext `json:"context"`
	Params  string           `json:"params,omitempty"`
	VideoID string           `json:"videoId,omitempty"`
}

type innertubeContext struct {
	Client innertubeClient `json:"client"`
}

type innertubeClient struct {
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
	HL            string `json:"hl"`
}

// transcriptParams encodes the video id the way the web client does: a
// protobuf field-1 string, base64 encoded.
func transcriptParams(videoID string) string {
	buf := append([]byte{0x0a, byte(len(videoID))}, videoID...)
	return base64.StdEncoding.EncodeToString(buf)
}

// Fetch implements Strategy.
func (s *Innertube) Fetch(ctx context.Context, videoID string) *Outcome {
	body, err := json.Marshal(innertubeRequest{
		Context: innertubeContext{
			Client: innertubeClient{
				ClientName:    "WEB",
				ClientVersion: "2.20260101.00.00",
				HL:            "en",
			},
		},
		Params: transcriptParams(videoID),
	})
	if err != nil {
		return failure(s.Name(), model.KindParseError, "marshal request: "+err.Error())
	}

	resp, err := s.client.Post(ctx, s.baseURL+"/youtubei/v1/get_transcript?prettyPrint=false", body)
	if err != nil {
		return failureErr(classifyTransport(s.Name(), err))
	}
	if aerr := classifyResponse(s.Name(), resp); aerr != nil {
		return failureErr(aerr)
	}

	// The language is buried deep in the renderer tree; leave it unknown and
	// let the engine's tag normalization handle it.
	return success(resp.Body, normalize.FormatInnertube, "")
}
