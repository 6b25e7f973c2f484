package scrape

import (
	"regexp"
	"strings"
)

// Section is one titled chunk of a job description.
type Section struct {
	Heading string
	Body    string
}

// headingRE matches short standalone lines that introduce a section, like
// "Responsibilities" or "What you'll do:".
var headingRE = regexp.MustCompile(`(?i)^(about (the )?(job|role|company|us)|responsibilities|requirements|qualifications|what you.ll do|what we offer|benefits|nice to have|who you are|skills)\b.{0,40}:?$`)

// SplitSections breaks a description into titled sections. Text before the
// first recognized heading lands in a section with an empty heading. The
// whole text comes back as one section when no headings are found.
func SplitSections(text string) []Section {
	lines := strings.Split(text, "\n")

	var (
		out     []Section
		current Section
		body    []string
	)
	flush := func() {
		current.Body = strings.TrimSpace(strings.Join(body, "\n"))
		if current.Heading != "" || current.Body != "" {
			out = append(out, current)
		}
		body = body[:0]
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if headingRE.MatchString(trimmed) {
			flush()
			current = Section{Heading: strings.TrimSuffix(trimmed, ":")}
			continue
		}
		body = append(body, line)
	}
	flush()

	return out
}
