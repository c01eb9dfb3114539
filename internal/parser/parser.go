// Package parser reads the labelled sections requested by internal/prompt
// back out of free-form model output. Every field degrades to a typed
// default on its own; no input makes a Parse function fail.
package parser

import (
	"regexp"
	"strings"
)

var (
	emphasisRe   = regexp.MustCompile(`\*\*`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	lineSpaceRe  = regexp.MustCompile(`[ \t\r\f\v]+`)
	lineBreakRe  = regexp.MustCompile(`\s*\n\s*`)
)

// Normalize strips markdown emphasis and collapses whitespace runs.
func Normalize(text string) string {
	text = emphasisRe.ReplaceAllString(text, "")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// layout is Normalize that keeps single line breaks, so headers can be
// recognised by their position at the start of a line.
func layout(text string) string {
	text = emphasisRe.ReplaceAllString(text, "")
	text = lineSpaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(lineBreakRe.ReplaceAllString(text, "\n"))
}

// header matches a section label followed by a colon. At the start of a
// line (after an optional bullet or number) any case is accepted; inside a
// line only the Title Case spelling counts, so prose such as "stick to your
// schedule:" is not taken for a header.
type header struct {
	leading *regexp.Regexp
	inline  *regexp.Regexp
	loose   *regexp.Regexp
}

func newHeader(labels string) header {
	return header{
		leading: regexp.MustCompile(`(?im)^[ \t]*(?:(?:[-#>]+|\d+\.)[ \t]*)?(?:` + labels + `)[ \t]*:`),
		inline:  regexp.MustCompile(`\b(?:` + labels + `)\s*:`),
		loose:   regexp.MustCompile(`(?i)(?:` + labels + `)\s*:`),
	}
}

// start finds where a section's label ends, preferring a line-leading
// header, then a Title Case one. Text flattened to a single line also
// accepts any spelling.
func (h header) start(text string) (int, bool) {
	res := []*regexp.Regexp{h.leading, h.inline}
	if !strings.Contains(text, "\n") {
		res = append(res, h.loose)
	}
	for _, re := range res {
		if loc := re.FindStringIndex(text); loc != nil {
			return loc[1], true
		}
	}
	return 0, false
}

// boundary is the offset of the first leading or Title Case header at or
// after from, or len(text).
func (h header) boundary(text string, from int) int {
	end := len(text)
	for _, re := range []*regexp.Regexp{h.leading, h.inline} {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if loc[0] >= from {
				end = min(end, loc[0])
				break
			}
		}
	}
	return end
}

// sectionSet finds labelled spans. A span starts after its label and ends
// at the next header of the set or at end of text. Spans are returned with
// whitespace collapsed.
type sectionSet struct {
	headers header
}

func newSectionSet(labels ...string) sectionSet {
	return sectionSet{headers: newHeader(strings.Join(labels, "|"))}
}

// span returns the text following the first header matching label. text
// may be flat (Normalize) or line-preserving (layout).
func (s sectionSet) span(text string, label header) (string, bool) {
	from, ok := label.start(text)
	if !ok {
		return "", false
	}
	end := s.headers.boundary(text, from)
	value := strings.TrimSpace(whitespaceRe.ReplaceAllString(text[from:end], " "))
	return value, value != ""
}
