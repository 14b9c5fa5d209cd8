package strategy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/vidlib/transcript-engine/internal/fetcher"
	"github.com/vidlib/transcript-engine/internal/model"
)

// challengeSignatures mark a body that is a bot wall rather than content.
// A page carrying one of these with little else is a block, whatever the
// status code said.
var challengeSignatures = []string{
	"checking your browser",
	"enable javascript",
	"please enable cookies",
	"access denied",
	"just a moment",
	"attention required",
	"unusual traffic",
	"sign in to confirm you're not a bot",
	"consent.youtube.com",
}

// classifyResponse maps an upstream reply to a typed failure, or nil when the
// body is worth parsing. The one decision that matters most: a nominal 200
// with an empty body is AntiBotBlock, never NotFound and never a success.
func classifyResponse(strategy string, resp *fetcher.Response) *model.AttemptError {
	switch {
	case resp.StatusCode == http.StatusOK:
		if resp.IsEmpty() {
			return model.NewAttemptError(strategy, model.KindAntiBotBlock, "200 with empty body")
		}
		if sig := challengeSignature(resp.Body); sig != "" {
			return model.NewAttemptError(strategy, model.KindAntiBotBlock, "challenge page: "+sig)
		}
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		err := model.NewAttemptError(strategy, model.KindRateLimited, "429 from upstream")
		if secs := resp.RetryAfter(); secs > 0 {
			err.RetryAfter = time.Duration(secs) * time.Second
		}
		return err
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return model.NewAttemptError(strategy, model.KindNotFound, fmt.Sprintf("http %d", resp.StatusCode))
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		// The upstream answers 403 to clients it has flagged, not to valid
		// requests for missing captions.
		return model.NewAttemptError(strategy, model.KindAntiBotBlock, fmt.Sprintf("http %d", resp.StatusCode))
	default:
		return model.NewAttemptError(strategy, model.KindNetworkError, fmt.Sprintf("http %d", resp.StatusCode))
	}
}

// challengeSignature returns the matched block marker, or "". Long bodies
// containing a signature somewhere are treated as real content.
func challengeSignature(body []byte) string {
	if len(body) > 100_000 {
		return ""
	}
	lower := strings.ToLower(string(body))
	for _, sig := range challengeSignatures {
		if strings.Contains(lower, sig) {
			return sig
		}
	}
	return ""
}

// classifyTransport maps a transport-level error (no response at all) to a
// typed failure. Timeouts and connection drops are NetworkError.
func classifyTransport(strategy string, err error) *model.AttemptError {
	detail := err.Error()

	if errors.Is(err, context.DeadlineExceeded) {
		return model.NewAttemptError(strategy, model.KindNetworkError, "timeout: "+detail)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.NewAttemptError(strategy, model.KindNetworkError, "timeout: "+detail)
	}
	return model.NewAttemptError(strategy, model.KindNetworkError, detail)
}
