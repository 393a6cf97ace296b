package helper

import (
	"regexp"
	"strings"
)

var controlChars = regexp.MustCompile(`[\x{0000}-\x{001F}\x{007F}-\x{009F}]`)

// CleanString removes C0/C1 control characters and surrounding whitespace.
// Labels coming from the knowledge graph occasionally carry line breaks or
// NULs which break JSON consumers downstream.
func CleanString(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}

// LastPathSegment returns the part after the last slash of an URI,
// e.g. "Q42" for "http://www.wikidata.org/entity/Q42".
func LastPathSegment(uri string) string {
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}
