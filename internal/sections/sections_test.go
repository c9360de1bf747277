package sections

import (
	"testing"

	"github.com/hpungsan/mahader/internal/persona"
)

var legalDraft = `# محضر سرقة سيارة

## المعلومات العامة
- رقم المحضر/القضية: 55/2025
- التاريخ: غير متوفر

## **الأطراف:**
- المبلغ: أحمد

### تفاصيل الواقعة
سُرقت السيارة من أمام المنزل.
`

func TestParse_LevelsAndNames(t *testing.T) {
	list := Parse(legalDraft)
	if len(list) != 4 {
		t.Fatalf("Expected 4 sections, got %d: %v", len(list), Names(list))
	}

	wantNames := []string{"محضر سرقة سيارة", "المعلومات العامة", "الأطراف", "تفاصيل الواقعة"}
	wantLevels := []int{1, 2, 2, 3}
	for i := range list {
		if list[i].Name != wantNames[i] {
			t.Errorf("Section %d: Name = %q, want %q", i, list[i].Name, wantNames[i])
		}
		if list[i].Level != wantLevels[i] {
			t.Errorf("Section %d: Level = %d, want %d", i, list[i].Level, wantLevels[i])
		}
	}
}

func TestParse_Boundaries(t *testing.T) {
	list := Parse(legalDraft)
	general := list[1]

	got := general.Content(legalDraft)
	want := "- رقم المحضر/القضية: 55/2025\n- التاريخ: غير متوفر\n\n"
	if got != want {
		t.Errorf("Content = %q, want %q", got, want)
	}
	if legalDraft[general.HeaderStart:general.HeaderEnd] != "## المعلومات العامة" {
		t.Errorf("Header span = %q", legalDraft[general.HeaderStart:general.HeaderEnd])
	}

	last := list[len(list)-1]
	if last.ContentEnd != len(legalDraft) {
		t.Errorf("Last section should end at EOF, got %d of %d", last.ContentEnd, len(legalDraft))
	}
}

func TestParse_NoSpaceAfterHashes(t *testing.T) {
	list := Parse("##الشهود\n- لا يوجد\n")
	if len(list) != 1 || list[0].Name != "الشهود" {
		t.Fatalf("Parse = %+v", list)
	}
}

func TestParse_IgnoresFencedHeaders(t *testing.T) {
	text := "## الأدلة\n```\n## ليس عنواناً\n```\n## الإجراءات المتخذة\n- تحرير محضر\n"
	list := Parse(text)
	if len(list) != 2 {
		t.Fatalf("Expected 2 sections, got %d: %v", len(list), Names(list))
	}
	if list[1].Name != "الإجراءات المتخذة" {
		t.Errorf("second section = %q", list[1].Name)
	}
}

func TestParse_CRLF(t *testing.T) {
	text := "## الشهود\r\n- سالم\r\n"
	list := Parse(text)
	if len(list) != 1 {
		t.Fatalf("Expected 1 section, got %d", len(list))
	}
	if list[0].Header != "## الشهود" {
		t.Errorf("Header = %q", list[0].Header)
	}
	if list[0].Content(text) != "- سالم\r\n" {
		t.Errorf("Content = %q", list[0].Content(text))
	}
}

func TestParse_NoHeadings(t *testing.T) {
	if Parse("just text\n- bullet") != nil {
		t.Error("expected nil for text without headings")
	}
	if Parse("####### too deep") != nil {
		t.Error("seven hashes is not a heading")
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"الأطراف":             "الأطراف",
		" **الأطراف:** ":      "الأطراف",
		"__Parties__:":        "parties",
		"Executive Summary：": "executive summary",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFindField(t *testing.T) {
	list := Parse(legalDraft)

	s := FindField(list, persona.KindLegal, persona.FieldParties)
	if s == nil || s.Name != "الأطراف" {
		t.Fatalf("FindField(parties) = %+v", s)
	}
	if FindField(list, persona.KindLegal, persona.FieldWitnesses) != nil {
		t.Error("witnesses section is absent")
	}
	if FindField(list, persona.KindLegal, persona.FieldExecutive) != nil {
		t.Error("executive is not a legal field")
	}
}

func TestFindField_Synonym(t *testing.T) {
	list := Parse("## Incident Details\nsomething happened\n")
	s := FindField(list, persona.KindLegal, persona.FieldIncident)
	if s == nil {
		t.Fatal("expected English synonym to match")
	}
}

func TestFindName(t *testing.T) {
	list := Parse(legalDraft)
	if FindName(list, "**تفاصيل الواقعة**") == nil {
		t.Error("expected normalized name lookup to match")
	}
	if FindName(list, "غير موجود") != nil {
		t.Error("unexpected match")
	}
}
