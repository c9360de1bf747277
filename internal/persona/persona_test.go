package persona

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Persona
		ok   bool
	}{
		{"legal", Legal, true},
		{" LEGAL ", Legal, true},
		{"fake_news", FakeNews, true},
		{"misinformation-analysis", FakeNews, true},
		{"general", General, true},
		{"", "", false},
		{"medical", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Parse(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Parse(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestKind(t *testing.T) {
	if Legal.Kind() != KindLegal {
		t.Errorf("Legal.Kind() = %q", Legal.Kind())
	}
	if FakeNews.Kind() != KindAnalysis || General.Kind() != KindAnalysis {
		t.Error("non-legal personas should use the analysis variant")
	}
}

func TestLabels_LegalHasNineSectionsPlusMissing(t *testing.T) {
	labels := Labels(KindLegal)
	if len(labels) != 10 {
		t.Fatalf("legal labels = %d, want 10", len(labels))
	}
	if labels[len(labels)-1].Field != FieldMissing {
		t.Errorf("last legal label = %q, want missing", labels[len(labels)-1].Field)
	}
}

func TestLabelFor(t *testing.T) {
	l, ok := LabelFor(KindLegal, FieldGeneral)
	if !ok || l.Canonical != "المعلومات العامة" {
		t.Errorf("LabelFor(legal, general) = %+v, %v", l, ok)
	}
	if _, ok := LabelFor(KindAnalysis, FieldParties); ok {
		t.Error("analysis kind should not have a parties label")
	}
}

func TestLabel_Matches(t *testing.T) {
	l, _ := LabelFor(KindAnalysis, FieldExecutive)
	if !l.Matches("الملخص التنفيذي") || !l.Matches("executive summary") {
		t.Error("expected canonical and synonym to match")
	}
	if l.Matches("الثغرات") {
		t.Error("unexpected match")
	}
}

func TestDraftPrompt_ListsEveryHeading(t *testing.T) {
	for _, p := range All {
		prompt := p.DraftPrompt()
		for _, l := range Labels(p.Kind()) {
			if !strings.Contains(prompt, "## "+l.Canonical) {
				t.Errorf("%s prompt missing heading %q", p, l.Canonical)
			}
		}
	}
}
