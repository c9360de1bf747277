// Package sections parses a markdown draft into its ordered heading tree
// in one pass. Extraction and display both query the result by label
// instead of re-scanning the text.
package sections

import (
	"regexp"
	"strings"

	"github.com/hpungsan/mahader/internal/persona"
)

// Section represents a parsed section boundary.
type Section struct {
	Level        int    // Number of hash marks
	Header       string // Full header line "## الأطراف:"
	Name         string // Normalized name "الأطراف"
	HeaderStart  int    // Byte offset of header start
	HeaderEnd    int    // Byte offset after header text (before \n)
	ContentStart int    // Byte offset where content starts
	ContentEnd   int    // Byte offset where content ends (before next heading or EOF)
}

// Content returns the section body within text.
func (s Section) Content(text string) string {
	if s.ContentStart >= s.ContentEnd {
		return ""
	}
	return text[s.ContentStart:s.ContentEnd]
}

// headerPattern matches markdown headers (h1-h6) at the start of a line.
// Drafts from the generator sometimes omit the space after the hashes.
var headerPattern = regexp.MustCompile(`(?m)^(#{1,6})[ \t]*([^\n#][^\n]*?)[ \t]*\r?$`)

// fencePattern matches fenced code block delimiters (``` or ~~~) at the start
// of a line, allowing 0-3 spaces of indentation.
var fencePattern = regexp.MustCompile("(?m)^[ ]{0,3}(`{3,}|~{3,})")

// fencedRanges returns byte offset ranges [start, end) for fenced code blocks.
// A closing fence must use the same character and be at least as long as the
// opening one.
func fencedRanges(text string) [][2]int {
	matches := fencePattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) < 2 {
		return nil
	}

	var ranges [][2]int
	var openChar byte
	var openLen, openStart int
	inFence := false

	for _, match := range matches {
		fenceChars := text[match[2]:match[3]]
		char := fenceChars[0]
		fenceLen := len(fenceChars)

		if !inFence {
			openChar = char
			openLen = fenceLen
			openStart = match[0]
			inFence = true
		} else if char == openChar && fenceLen >= openLen {
			ranges = append(ranges, [2]int{openStart, match[1]})
			inFence = false
		}
	}
	return ranges
}

func insideFence(pos int, ranges [][2]int) bool {
	for _, r := range ranges {
		if pos >= r[0] && pos < r[1] {
			return true
		}
	}
	return false
}

// Parse finds all headings and their boundaries. A section ends right before
// the next heading of any level, or at EOF. Headers inside fenced code blocks
// are ignored. Returns nil when text has no headings.
func Parse(text string) []Section {
	all := headerPattern.FindAllStringSubmatchIndex(text, -1)
	if len(all) == 0 {
		return nil
	}

	fences := fencedRanges(text)
	matches := all[:0:0]
	for _, m := range all {
		if !insideFence(m[0], fences) {
			matches = append(matches, m)
		}
	}
	if len(matches) == 0 {
		return nil
	}

	out := make([]Section, len(matches))
	for i, m := range matches {
		headerEnd := m[1]
		if headerEnd > m[0] && text[headerEnd-1] == '\r' {
			headerEnd--
		}
		contentStart := m[1]
		if contentStart < len(text) && text[contentStart] == '\n' {
			contentStart++
		}
		contentEnd := len(text)
		if i+1 < len(matches) {
			contentEnd = matches[i+1][0]
		}

		out[i] = Section{
			Level:        m[3] - m[2],
			Header:       text[m[0]:headerEnd],
			Name:         Normalize(text[m[4]:m[5]]),
			HeaderStart:  m[0],
			HeaderEnd:    headerEnd,
			ContentStart: contentStart,
			ContentEnd:   contentEnd,
		}
	}
	return out
}

// Normalize reduces a header text to its comparable form: emphasis markers,
// a trailing colon and surrounding space removed, lowercased.
func Normalize(name string) string {
	n := strings.TrimSpace(name)
	n = strings.Trim(n, "*_")
	n = strings.TrimSpace(n)
	n = strings.TrimRight(n, ":：")
	n = strings.Trim(n, "*_")
	return strings.ToLower(strings.TrimSpace(n))
}

// Find returns the first section named by label, or nil.
func Find(list []Section, label persona.Label) *Section {
	for i := range list {
		if label.Matches(list[i].Name) {
			return &list[i]
		}
	}
	return nil
}

// FindField returns the first section holding field f of kind k, or nil.
func FindField(list []Section, k persona.Kind, f persona.Field) *Section {
	label, ok := persona.LabelFor(k, f)
	if !ok {
		return nil
	}
	return Find(list, label)
}

// FindName finds a section by exact normalized name.
func FindName(list []Section, name string) *Section {
	want := Normalize(name)
	for i := range list {
		if list[i].Name == want {
			return &list[i]
		}
	}
	return nil
}

// Names returns the header names of parsed sections.
func Names(list []Section) []string {
	names := make([]string, len(list))
	for i, s := range list {
		names[i] = s.Name
	}
	return names
}
