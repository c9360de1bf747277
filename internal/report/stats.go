package report

import (
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Stats summarizes a saved report.
type Stats struct {
	MissingCount int `json:"missingCount"`
	WordCount    int `json:"wordCount"`
}

// ComputeStats derives stats from a draft and its structured record.
// MissingCount always equals len(s.Missing()).
func ComputeStats(markdown string, s Structured) Stats {
	st := Stats{WordCount: len(strings.Fields(markdown))}
	if s != nil {
		st.MissingCount = len(s.Missing())
	}
	return st
}

// Title returns the text of the first level-1 heading, or a timestamped
// fallback when the draft has none.
func Title(markdown string, now time.Time) string {
	source := []byte(markdown)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if h.Level == 1 {
			title = strings.TrimSpace(inlineText(h, source))
			if title != "" {
				return ast.WalkStop, nil
			}
		}
		return ast.WalkSkipChildren, nil
	})

	if title == "" {
		return "Report " + now.Format("2006-01-02 15:04")
	}
	return title
}

// inlineText concatenates the text segments under n, dropping emphasis and
// link markup.
func inlineText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.CodeSpan:
			for cc := t.FirstChild(); cc != nil; cc = cc.NextSibling() {
				if tx, ok := cc.(*ast.Text); ok {
					b.Write(tx.Segment.Value(source))
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
