package normalize

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/vidlib/transcript-engine/internal/model"
)

// parseVTT walks WebVTT cue blocks: a `start --> end` header line followed by
// one or more text lines. Header, NOTE, and STYLE blocks are skipped. Cues
// with an unparsable timestamp line are dropped individually.
func parseVTT(payload []byte) ([]model.Segment, error) {
	sc := bufio.NewScanner(bytes.NewReader(payload))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var segs []model.Segment
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "WEBVTT") ||
			strings.HasPrefix(line, "NOTE") || strings.HasPrefix(line, "STYLE") {
			continue
		}
		if !strings.Contains(line, "-->") {
			continue
		}

		start, end, err := parseCueTiming(line)
		if err != nil {
			// Skip this cue's text lines and move on.
			for sc.Scan() && strings.TrimSpace(sc.Text()) != "" {
			}
			continue
		}

		var textLines []string
		for sc.Scan() {
			t := strings.TrimSpace(sc.Text())
			if t == "" {
				break
			}
			textLines = append(textLines, t)
		}

		text := cleanText(strings.Join(textLines, " "))
		if text == "" {
			continue
		}
		segs = append(segs, model.Segment{
			Start:    start,
			Duration: end - start,
			Text:     text,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "vtt: scan")
	}
	return segs, nil
}

// parseCueTiming splits a `start --> end` line, tolerating cue settings after
// the end timestamp (`align:start position:0%`).
func parseCueTiming(line string) (start, end time.Duration, err error) {
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return 0, 0, eris.Errorf("vtt: malformed timing line %q", line)
	}
	start, err = parseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	endField := strings.Fields(strings.TrimSpace(parts[1]))
	if len(endField) == 0 {
		return 0, 0, eris.Errorf("vtt: missing end timestamp in %q", line)
	}
	end, err = parseTimestamp(endField[0])
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, eris.Errorf("vtt: cue ends before it starts in %q", line)
	}
	return start, end, nil
}

// parseTimestamp handles HH:MM:SS.mmm and MM:SS.mmm.
func parseTimestamp(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	var h, m int
	var sec float64
	var err error
	switch len(parts) {
	case 3:
		if h, err = strconv.Atoi(parts[0]); err != nil {
			return 0, eris.Errorf("vtt: bad hours in %q", s)
		}
		if m, err = strconv.Atoi(parts[1]); err != nil {
			return 0, eris.Errorf("vtt: bad minutes in %q", s)
		}
		if sec, err = strconv.ParseFloat(parts[2], 64); err != nil {
			return 0, eris.Errorf("vtt: bad seconds in %q", s)
		}
	case 2:
		if m, err = strconv.Atoi(parts[0]); err != nil {
			return 0, eris.Errorf("vtt: bad minutes in %q", s)
		}
		if sec, err = strconv.ParseFloat(parts[1], 64); err != nil {
			return 0, eris.Errorf("vtt: bad seconds in %q", s)
		}
	default:
		return 0, eris.Errorf("vtt: bad timestamp %q", s)
	}
	total := float64(h)*3600 + float64(m)*60 + sec
	return time.Duration(total * float64(time.Second)), nil
}
