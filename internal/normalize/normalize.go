// Package normalize converts raw caption payloads into canonical segments.
package normalize

import (
	"html"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/vidlib/transcript-engine/internal/model"
)

// Format identifies the wire shape of a raw caption payload.
type Format string

const (
	// FormatVTT is WebVTT subtitle-track markup with cue headers.
	FormatVTT Format = "vtt"
	// FormatTimedText is the timedtext XML shape with explicit start/dur attributes.
	FormatTimedText Format = "timedtext"
	// FormatJSON3 is the json3 shape with events/segs and millisecond offsets.
	FormatJSON3 Format = "json3"
	// FormatInnertube is the nested innertube transcript response; cue data is
	// extracted from the renderer tree, falling back to json3 events if present.
	FormatInnertube Format = "innertube"
)

var (
	markupTags    = regexp.MustCompile(`<[^>]*>`)
	alignmentTags = regexp.MustCompile(`\{[^}]*\}`)
)

// Normalize parses a raw payload into an ordered, monotonic segment sequence.
// Malformed cues are skipped as long as at least one valid segment remains;
// a payload that yields nothing usable is an error.
func Normalize(payload []byte, format Format) ([]model.Segment, error) {
	if len(strings.TrimSpace(string(payload))) == 0 {
		return nil, eris.New("normalize: empty payload")
	}

	var (
		segs []model.Segment
		err  error
	)
	switch format {
	case FormatVTT:
		segs, err = parseVTT(payload)
	case FormatTimedText:
		segs, err = parseTimedText(payload)
	case FormatJSON3:
		segs, err = parseJSON3(payload)
	case FormatInnertube:
		segs, err = parseInnertube(payload)
	default:
		return nil, eris.Errorf("normalize: unknown format %q", format)
	}
	if err != nil {
		return nil, err
	}

	segs = dropNonMonotonic(segs)
	segs = mergeDuplicateCues(segs)
	if len(segs) == 0 {
		return nil, eris.Errorf("normalize: no usable segments in %s payload", format)
	}
	return segs, nil
}

// cleanText strips markup and alignment tags, unescapes entities, and
// collapses redundant whitespace.
func cleanText(s string) string {
	s = markupTags.ReplaceAllString(s, "")
	s = alignmentTags.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// dropNonMonotonic removes segments with negative timing or a start offset
// earlier than the previous kept segment.
func dropNonMonotonic(segs []model.Segment) []model.Segment {
	out := segs[:0]
	var prev int64 = -1
	for _, seg := range segs {
		if seg.Start < 0 || seg.Duration < 0 {
			continue
		}
		if int64(seg.Start) < prev {
			continue
		}
		prev = int64(seg.Start)
		out = append(out, seg)
	}
	return out
}

// mergeDuplicateCues collapses consecutive cues carrying identical text, a
// common artifact of auto-generated captions where each cue repeats the tail
// of the previous one. The merged cue spans from the first start to the last end.
func mergeDuplicateCues(segs []model.Segment) []model.Segment {
	if len(segs) < 2 {
		return segs
	}
	out := segs[:1]
	for _, seg := range segs[1:] {
		last := &out[len(out)-1]
		if seg.Text == last.Text {
			if seg.End() > last.End() {
				last.Duration = seg.End() - last.Start
			}
			continue
		}
		out = append(out, seg)
	}
	return out
}
