package persona

import "strings"

// Persona is the fixed conversation mode. It selects the prompt templates
// and the structured-report field set, and is locked after the first user
// message.
type Persona string

const (
	Legal    Persona = "legal"
	FakeNews Persona = "fake_news" // misinformation analysis
	General  Persona = "general"
)

// Kind is the structured-report variant a persona produces.
type Kind string

const (
	KindLegal    Kind = "legal"
	KindAnalysis Kind = "analysis"
)

// All lists every persona in display order.
var All = []Persona{Legal, FakeNews, General}

// Parse resolves a wire value or alias to a Persona.
func Parse(s string) (Persona, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "legal":
		return Legal, true
	case "fake_news", "fake-news", "misinformation-analysis", "misinformation", "analysis":
		return FakeNews, true
	case "general":
		return General, true
	}
	return "", false
}

// Valid reports whether p is one of the known personas.
func (p Persona) Valid() bool {
	switch p {
	case Legal, FakeNews, General:
		return true
	}
	return false
}

// Kind returns the structured-report variant for p.
func (p Persona) Kind() Kind {
	if p == Legal {
		return KindLegal
	}
	return KindAnalysis
}

// DisplayName returns the Arabic label shown in report listings.
func (p Persona) DisplayName() string {
	switch p {
	case Legal:
		return "قانوني"
	case FakeNews:
		return "تحقق محتوى"
	default:
		return "عام"
	}
}
