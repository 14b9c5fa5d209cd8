package normalize

import (
	"encoding/xml"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/vidlib/transcript-engine/internal/model"
)

type timedTextDoc struct {
	XMLName xml.Name       `xml:"transcript"`
	Texts   []timedTextCue `xml:"text"`
}

type timedTextCue struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Body  string `xml:",chardata"`
}

// parseTimedText decodes the timedtext XML shape: <transcript><text start=".."
// dur="..">..</text></transcript>. Cues with unparsable attributes are dropped.
func parseTimedText(payload []byte) ([]model.Segment, error) {
	var doc timedTextDoc
	if err := xml.Unmarshal(payload, &doc); err != nil {
		return nil, eris.Wrap(err, "timedtext: unmarshal")
	}

	segs := make([]model.Segment, 0, len(doc.Texts))
	for _, cue := range doc.Texts {
		start, err := strconv.ParseFloat(cue.Start, 64)
		if err != nil {
			continue
		}
		dur, err := strconv.ParseFloat(cue.Dur, 64)
		if err != nil {
			// dur is optional upstream; a missing value means zero-length cue.
			if cue.Dur != "" {
				continue
			}
			dur = 0
		}
		text := cleanText(cue.Body)
		if text == "" {
			continue
		}
		segs = append(segs, model.Segment{
			Start:    time.Duration(start * float64(time.Second)),
			Duration: time.Duration(dur * float64(time.Second)),
			Text:     text,
		})
	}
	return segs, nil
}
