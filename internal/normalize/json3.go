package normalize

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/vidlib/transcript-engine/internal/model"
)

type json3Doc struct {
	Events []json3Event `json:"events"`
}

type json3Event struct {
	StartMs    int64      `json:"tStartMs"`
	DurationMs int64      `json:"dDurationMs"`
	Segs       []json3Seg `json:"segs"`
}

type json3Seg struct {
	UTF8 string `json:"utf8"`
}

// parseJSON3 decodes the json3 shape: events carrying millisecond offsets and
// a list of utf8 text runs. Events without segs (window styling) are skipped.
func parseJSON3(payload []byte) ([]model.Segment, error) {
	var doc json3Doc
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, eris.Wrap(err, "json3: unmarshal")
	}
	return json3Segments(doc.Events), nil
}

func json3Segments(events []json3Event) []model.Segment {
	segs := make([]model.Segment, 0, len(events))
	for _, ev := range events {
		if len(ev.Segs) == 0 {
			continue
		}
		var text string
		for _, s := range ev.Segs {
			text += s.UTF8
		}
		text = cleanText(text)
		if text == "" {
			continue
		}
		segs = append(segs, model.Segment{
			Start:    time.Duration(ev.StartMs) * time.Millisecond,
			Duration: time.Duration(ev.DurationMs) * time.Millisecond,
			Text:     text,
		})
	}
	return segs
}

// innertubeDoc covers the transcript renderer tree returned by the internal
// player API. Only the fields on the cue path are decoded.
type innertubeDoc struct {
	Events  []json3Event      `json:"events"`
	Actions []innertubeAction `json:"actions"`
}

type innertubeAction struct {
	UpdatePanel struct {
		Content struct {
			TranscriptRenderer struct {
				Body struct {
					BodyRenderer struct {
						CueGroups []innertubeCueGroup `json:"cueGroups"`
					} `json:"transcriptBodyRenderer"`
				} `json:"body"`
			} `json:"transcriptRenderer"`
		} `json:"content"`
	} `json:"updateEngagementPanelAction"`
}

type innertubeCueGroup struct {
	Renderer struct {
		Cues []struct {
			CueRenderer struct {
				Cue struct {
					SimpleText string `json:"simpleText"`
				} `json:"cue"`
				StartOffsetMs string `json:"startOffsetMs"`
				DurationMs    string `json:"durationMs"`
			} `json:"transcriptCueRenderer"`
		} `json:"cues"`
	} `json:"transcriptCueGroupRenderer"`
}

// parseInnertube extracts cues from the nested transcript renderer. When the
// renderer tree is absent but the response carries plain json3 events, those
// are used instead.
func parseInnertube(payload []byte) ([]model.Segment, error) {
	var doc innertubeDoc
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, eris.Wrap(err, "innertube: unmarshal")
	}

	var segs []model.Segment
	for _, action := range doc.Actions {
		for _, group := range action.UpdatePanel.Content.TranscriptRenderer.Body.BodyRenderer.CueGroups {
			for _, cue := range group.Renderer.Cues {
				r := cue.CueRenderer
				startMs, err1 := parseMs(r.StartOffsetMs)
				durMs, err2 := parseMs(r.DurationMs)
				if err1 != nil || err2 != nil {
					continue
				}
				text := cleanText(r.Cue.SimpleText)
				if text == "" {
					continue
				}
				segs = append(segs, model.Segment{
					Start:    startMs,
					Duration: durMs,
					Text:     text,
				})
			}
		}
	}
	if len(segs) > 0 {
		return segs, nil
	}
	if len(doc.Events) > 0 {
		return json3Segments(doc.Events), nil
	}
	return nil, eris.New("innertube: no transcript renderer or events in response")
}

// parseMs converts a millisecond offset that arrives as a quoted string.
func parseMs(s string) (time.Duration, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, eris.Errorf("innertube: bad offset %q", s)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
