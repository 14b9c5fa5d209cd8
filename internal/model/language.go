package model

import (
	"strings"

	"golang.org/x/text/language"
)

// NormalizeLanguage canonicalizes a caption-track language code to a BCP 47
// tag. Upstream sources disagree on casing and region subtags ("en-us",
// "EN_GB", "en"); storing one canonical form keeps lookups and dedup sane.
// Unparseable or empty input normalizes to "unknown".
func NormalizeLanguage(code string) string {
	code = strings.TrimSpace(strings.ReplaceAll(code, "_", "-"))
	if code == "" {
		return "unknown"
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "unknown"
	}
	return tag.String()
}

// IsEnglish reports whether a normalized or raw code is an English variant.
func IsEnglish(code string) bool {
	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return false
	}
	base, _ := tag.Base()
	return base.String() == "en"
}
