package report

import (
	"regexp"
	"sort"
	"strings"

	"github.com/hpungsan/mahader/internal/persona"
	"github.com/hpungsan/mahader/internal/sections"
	"github.com/hpungsan/mahader/internal/title"
)

// Table header cells.
const (
	ItemHeader    = "البند"
	DetailsHeader = "التفاصيل"
)

var (
	bulletLine = regexp.MustCompile(`^[ \t]*[-*•][ \t]+(.*?)[ \t\r]*$`)
	// pairSeparator is the first colon, or a dash surrounded by spaces.
	pairSeparator = regexp.MustCompile(`[ \t]*[:：][ \t]*|[ \t]+[-–—][ \t]+`)
)

type replacement struct {
	start, end int
	text       string
}

// Display rewrites the bullet sections of a draft as two-column item/details
// tables for reading. Text outside the rewritten sections is returned
// byte-for-byte.
//
// Display is not idempotent: running it on its own output re-tabulates the
// general information section.
func Display(markdown string, p persona.Persona) string {
	kind := p.Kind()
	list := sections.Parse(markdown)
	if len(list) == 0 {
		return markdown
	}

	seen := map[int]bool{}
	var reps []replacement

	add := func(s *sections.Section, rows [][2]string) {
		if s == nil || len(rows) == 0 || seen[s.HeaderStart] {
			return
		}
		seen[s.HeaderStart] = true
		eol := lineEnding(markdown, s)
		reps = append(reps, replacement{
			start: s.HeaderStart,
			end:   s.ContentEnd,
			text:  s.Header + eol + eol + table(rows, eol) + trailingSpace(s.Content(markdown)),
		})
	}

	if kind == persona.KindLegal {
		s := sections.FindField(list, kind, persona.FieldGeneral)
		if s != nil {
			add(s, generalRows(s.Content(markdown)))
		}
	}
	for _, f := range persona.TableFields(kind) {
		s := sections.FindField(list, kind, f)
		if s != nil {
			add(s, bulletRows(s.Content(markdown)))
		}
	}

	if len(reps) == 0 {
		return markdown
	}

	// Apply back to front so earlier offsets stay valid.
	sort.Slice(reps, func(i, j int) bool { return reps[i].start > reps[j].start })
	out := markdown
	for _, r := range reps {
		out = out[:r.start] + r.text + out[r.end:]
	}
	return out
}

// bulletRows splits every bullet line of content into a row. Non-bullet
// lines are dropped; no bullets means no table.
func bulletRows(content string) [][2]string {
	var rows [][2]string
	for _, line := range strings.Split(content, "\n") {
		m := bulletLine.FindStringSubmatch(line)
		if m == nil || m[1] == "" {
			continue
		}
		k, v := splitPair(m[1])
		rows = append(rows, [2]string{k, v})
	}
	return rows
}

// generalRows splits every non-empty line of content into a row, filling
// empty values with the not-available placeholder.
func generalRows(content string) [][2]string {
	var rows [][2]string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if m := bulletLine.FindStringSubmatch(line); m != nil {
			line = m[1]
		}
		if line == "" {
			continue
		}
		k, v := splitPair(line)
		if strings.TrimSpace(v) == "" {
			v = title.NotAvailable
		}
		rows = append(rows, [2]string{k, v})
	}
	return rows
}

// splitPair splits a line on its first separator. A line without one is
// used as both key and value.
func splitPair(line string) (string, string) {
	loc := pairSeparator.FindStringIndex(line)
	if loc == nil {
		return stripEmphasis(line), line
	}
	return stripEmphasis(line[:loc[0]]), strings.TrimSpace(line[loc[1]:])
}

func stripEmphasis(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	return strings.TrimSpace(s)
}

func table(rows [][2]string, eol string) string {
	var b strings.Builder
	b.WriteString("| " + ItemHeader + " | " + DetailsHeader + " |" + eol)
	b.WriteString("| --- | --- |" + eol)
	for _, r := range rows {
		b.WriteString("| " + escapeCell(r[0]) + " | " + escapeCell(r[1]) + " |" + eol)
	}
	return b.String()
}

// lineEnding returns the line ending of the section's header line.
func lineEnding(markdown string, s *sections.Section) string {
	if strings.HasPrefix(markdown[s.HeaderEnd:], "\r\n") {
		return "\r\n"
	}
	return "\n"
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// trailingSpace returns the blank lines that separated the section from the
// next heading, minus the newline the table already ends with.
func trailingSpace(content string) string {
	trimmed := strings.TrimRight(content, " \t\r\n")
	tail := content[len(trimmed):]
	if i := strings.IndexByte(tail, '\n'); i >= 0 {
		return tail[i+1:]
	}
	return ""
}
