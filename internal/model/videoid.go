package model

import (
	"regexp"

	"github.com/rotisserie/eris"
)

var (
	videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

	// Watch, short-link, and embed URL shapes.
	urlPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/|youtube\.com/shorts/)([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/watch\?.*v=([A-Za-z0-9_-]{11})`),
	}
)

// ValidateVideoID checks the syntactic shape of an external video identifier.
// Invalid syntax is a caller contract violation, reported without retry.
func ValidateVideoID(id string) error {
	if !videoIDPattern.MatchString(id) {
		return eris.Errorf("invalid video id: %q", id)
	}
	return nil
}

// ExtractVideoID pulls a video id out of a watch URL, or validates a bare id.
func ExtractVideoID(raw string) (string, error) {
	if videoIDPattern.MatchString(raw) {
		return raw, nil
	}
	for _, p := range urlPatterns {
		if m := p.FindStringSubmatch(raw); m != nil {
			return m[1], nil
		}
	}
	return "", eris.Errorf("no video id found in %q", raw)
}
