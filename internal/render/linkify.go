package render

import (
	"regexp"
	"strings"
)

var (
	urlPattern       = regexp.MustCompile(`https?://[^\s,]+`)
	lineBreakPattern = regexp.MustCompile(`\n+`)
	httpPattern      = regexp.MustCompile(`(?i)^https?://`)
)

// Segment is a run of plain text, a link, or a line break.
type Segment struct {
	Text      string `json:"text,omitempty"`
	URL       string `json:"url,omitempty"`
	LineBreak bool   `json:"lineBreak,omitempty"`
}

// Linkify splits free text into lines and turns bare http(s) URLs into link segments.
// Consecutive newlines collapse into one break.
func Linkify(text string) []Segment {
	segments := make([]Segment, 0)
	lines := lineBreakPattern.Split(text, -1)
	for i, line := range lines {
		last := 0
		for _, loc := range urlPattern.FindAllStringIndex(line, -1) {
			if loc[0] > last {
				segments = append(segments, Segment{Text: line[last:loc[0]]})
			}
			link := line[loc[0]:loc[1]]
			segments = append(segments, Segment{Text: link, URL: link})
			last = loc[1]
		}
		if last < len(line) {
			segments = append(segments, Segment{Text: line[last:]})
		}
		if i < len(lines)-1 {
			segments = append(segments, Segment{LineBreak: true})
		}
	}
	return segments
}

const (
	ActionOpen = "open"
	ActionCopy = "copy"
)

// Action says how a release location is offered: http(s) URLs open, anything else
// (tracker-relative paths) is copied.
type Action struct {
	Kind   string `json:"kind"`
	Target string `json:"target"`
}

func ReleaseAction(location string) Action {
	location = strings.TrimSpace(location)
	if location == "" {
		return Action{}
	}
	if httpPattern.MatchString(location) {
		return Action{Kind: ActionOpen, Target: location}
	}
	return Action{Kind: ActionCopy, Target: location}
}
