package chunker

import (
	"bufio"
	"strings"

	"github.com/luisromp/personarag/internal/kb"
)

// section is a heading-delimited slice of a markdown document.
type section struct {
	breadcrumb string
	text       string
}

// SplitMarkdown chunks a markdown document heading-first: the text is cut
// into sections at #/##/### headings, each section is prefixed with its
// "[h1 > h2]" breadcrumb so chunks keep their place in the document, and
// oversized sections are windowed like plain text. Ordinals stay
// contiguous across sections. Documents without headings fall back to
// plain windowing.
func (s *Splitter) SplitMarkdown(doc kb.Document) []kb.Chunk {
	sections := splitSections(doc.Text)
	if len(sections) == 0 {
		return s.Split(doc)
	}

	var pieces []string
	for _, sec := range sections {
		for _, w := range s.windows(sec.text) {
			if sec.breadcrumb != "" {
				w = "[" + sec.breadcrumb + "]\n\n" + w
			}
			pieces = append(pieces, w)
		}
	}

	return s.assemble(doc, pieces)
}

// splitSections scans markdown line by line and cuts at heading levels
// one through three, tracking the heading path for breadcrumbs. Returns
// nil when the text has no headings.
func splitSections(text string) []section {
	const maxLevel = 3

	var sections []section
	var body strings.Builder
	path := make([]string, 0, maxLevel)
	sawHeading := false

	flush := func() {
		content := strings.TrimSpace(body.String())
		body.Reset()
		if content == "" {
			return
		}
		sections = append(sections, section{
			breadcrumb: strings.Join(path, " > "),
			text:       content,
		})
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		level, title := headingLine(line)
		if level == 0 || level > maxLevel {
			body.WriteString(line)
			body.WriteString("\n")
			continue
		}

		flush()
		sawHeading = true

		// Truncate the path to the parent level, then descend.
		if level-1 < len(path) {
			path = path[:level-1]
		}
		for len(path) < level-1 {
			path = append(path, "")
		}
		path = append(path, title)
	}
	flush()

	if !sawHeading {
		return nil
	}
	return sections
}

// headingLine reports the ATX heading level of a markdown line, or 0.
func headingLine(line string) (level int, title string) {
	trimmed := strings.TrimLeft(line, "#")
	level = len(line) - len(trimmed)
	if level == 0 || level > 6 || (trimmed != "" && !strings.HasPrefix(trimmed, " ")) {
		return 0, ""
	}
	return level, strings.TrimSpace(trimmed)
}
