package textutil

import (
	"regexp"
	"strings"

	"github.com/google/shlex"
)

var spaceRuns = regexp.MustCompile(`  +`)
var blankLineRuns = regexp.MustCompile(`\n(?:[ \t]*\n)+`)

// SplitTerms splits a user-supplied filter string into lowercase terms,
// honoring shell-style quoting so multi-word phrases stay intact.
func SplitTerms(input string) ([]string, error) {
	parts, err := shlex.Split(input)
	if err != nil {
		return nil, err
	}
	terms := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.ToLower(p))
		if p != "" {
			terms = append(terms, p)
		}
	}
	return terms, nil
}

// ContainsAnyFold reports whether s contains any of the given lowercase
// terms, ignoring the case of s.
func ContainsAnyFold(s string, terms []string) bool {
	s = strings.ToLower(s)
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// Reflow removes hard line wraps from cable text while keeping
// paragraph breaks. Bodies come hard-wrapped at roughly 65 columns;
// paragraph breaks appear as blank or whitespace-only lines.
func Reflow(text string) string {
	text = blankLineRuns.ReplaceAllString(text, "\n\n")
	paragraphs := strings.Split(text, "\n\n")
	reflowed := make([]string, len(paragraphs))
	for i, para := range paragraphs {
		lines := strings.Split(para, "\n")
		for j, line := range lines {
			lines[j] = strings.TrimSpace(line)
		}
		joined := spaceRuns.ReplaceAllString(strings.Join(lines, " "), " ")
		reflowed[i] = strings.TrimSpace(joined)
	}
	return strings.Join(reflowed, "\n\n")
}
