// Package casenum finds a labelled case or file number inside free text.
package casenum

import (
	"regexp"
	"strings"

	"github.com/hpungsan/mahader/internal/persona"
	"github.com/hpungsan/mahader/internal/title"
)

// bulletPattern matches a leading list marker or table pipe.
var bulletPattern = regexp.MustCompile(`^\s*(?:(?:[-*+•]|\d+[.)])\s+|\|\s*)`)

// emph matches optional bold markers around a label.
const emph = `(?:\*\*|__)?`

// label patterns; group 1 is the raw value after the colon.
var (
	legalPattern = regexp.MustCompile(`(?i)^` + emph + `\s*(?:` +
		`(?:ال)?رقم\s*(?:ال)?(?:محضر|قضية)(?:\s*/\s*(?:ال)?(?:محضر|قضية))?` +
		`|case\s*(?:number|no\.?|#)` +
		`)\s*` + emph + `\s*[:：]\s*` + emph + `(.*)$`)

	analysisPattern = regexp.MustCompile(`(?i)^` + emph + `\s*(?:` +
		`(?:ال)?رقم\s*(?:ال)?(?:ملف|قضية)(?:\s*/\s*(?:ال)?(?:ملف|قضية))?` +
		`|file\s*(?:number|no\.?|#)` +
		`)\s*` + emph + `\s*[:：]\s*` + emph + `(.*)$`)
)

func patternFor(p persona.Persona) *regexp.Regexp {
	if p.Kind() == persona.KindLegal {
		return legalPattern
	}
	return analysisPattern
}

// Extract scans text top to bottom and returns the first labelled value that
// survives cleaning. Rejected candidates (empty, or the not-available
// placeholder) do not stop the scan.
func Extract(text string, p persona.Persona) (string, bool) {
	re := patternFor(p)
	for _, line := range strings.Split(text, "\n") {
		raw, ok := match(re, line)
		if !ok {
			continue
		}
		if v, ok := clean(raw); ok {
			return v, true
		}
	}
	return "", false
}

// ExtractSection is Extract for a single section body: the first labelled
// line decides, accepted or not.
func ExtractSection(section string, p persona.Persona) (string, bool) {
	re := patternFor(p)
	for _, line := range strings.Split(section, "\n") {
		raw, ok := match(re, line)
		if !ok {
			continue
		}
		return clean(raw)
	}
	return "", false
}

func match(re *regexp.Regexp, line string) (string, bool) {
	line = strings.TrimRight(line, "\r")
	line = bulletPattern.ReplaceAllString(line, "")
	m := re.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// clean normalizes a raw value: emphasis, table tail, leading dash and
// trailing punctuation removed.
func clean(raw string) (string, bool) {
	v := strings.ReplaceAll(raw, "**", "")
	v = strings.ReplaceAll(v, "__", "")
	if i := strings.Index(v, "|"); i >= 0 {
		v = v[:i]
	}
	v = strings.TrimSpace(v)
	v = strings.TrimLeft(v, "-–—")
	v = strings.TrimSpace(v)
	v = strings.TrimRight(v, ".,;:،؛ \t")
	v = strings.TrimSpace(v)
	if !title.Present(v) {
		return "", false
	}
	return v, true
}
