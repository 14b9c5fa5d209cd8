package strategy

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// playerResponse is the slice of the embedded player JSON we care about.
type playerResponse struct {
	Captions struct {
		Renderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	// Kind is "asr" for automatically generated tracks.
	Kind string `json:"kind"`
	Name struct {
		SimpleText string `json:"simpleText"`
	} `json:"name"`
}

func (t captionTrack) isAutoGenerated() bool {
	return t.Kind == "asr"
}

// The player JSON is embedded in several shapes depending on the page variant.
var playerResponsePatterns = []*regexp.Regexp{
	regexp.MustCompile(`var ytInitialPlayerResponse = (\{.+?\});`),
	regexp.MustCompile(`window\["ytInitialPlayerResponse"\] = (\{.+?\});`),
	regexp.MustCompile(`ytInitialPlayerResponse\s*=\s*(\{.+?\});`),
}

// extractPlayerResponse locates and decodes the embedded player JSON from a
// watch-page body.
func extractPlayerResponse(page []byte) (*playerResponse, error) {
	for _, p := range playerResponsePatterns {
		m := p.FindSubmatch(page)
		if m == nil {
			continue
		}
		var pr playerResponse
		if err := json.Unmarshal(m[1], &pr); err != nil {
			continue
		}
		return &pr, nil
	}
	return nil, eris.New("player response not found in page")
}

// englishCodes are tried first when picking a track.
var englishCodes = []string{"en", "en-US", "en-GB"}

// pickTrack selects a caption track: manual English, then auto-generated
// English, then manual any, then anything. asrOnly narrows the pool to
// auto-generated tracks.
func pickTrack(tracks []captionTrack, asrOnly bool) (captionTrack, bool) {
	pool := tracks
	if asrOnly {
		pool = nil
		for _, t := range tracks {
			if t.isAutoGenerated() {
				pool = append(pool, t)
			}
		}
	}
	if len(pool) == 0 {
		return captionTrack{}, false
	}

	isEnglish := func(t captionTrack) bool {
		for _, c := range englishCodes {
			if t.LanguageCode == c || strings.HasPrefix(t.LanguageCode, c+"-") {
				return true
			}
		}
		return false
	}

	for _, t := range pool {
		if isEnglish(t) && !t.isAutoGenerated() {
			return t, true
		}
	}
	for _, t := range pool {
		if isEnglish(t) {
			return t, true
		}
	}
	for _, t := range pool {
		if !t.isAutoGenerated() {
			return t, true
		}
	}
	return pool[0], true
}

// sniffFormat guesses the wire format of a caption payload from its first
// meaningful byte.
func sniffFormat(payload []byte) string {
	for _, b := range payload {
		switch b {
		case ' ', '\t', '\n', '\r', 0xEF, 0xBB, 0xBF:
			continue
		case '<':
			return "xml"
		case '{', '[':
			return "json"
		default:
			return "text"
		}
	}
	return "empty"
}
