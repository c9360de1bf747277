// Package report turns markdown drafts into structured records, statistics
// and display-ready markdown.
package report

import (
	"encoding/json"
	"fmt"

	"github.com/hpungsan/mahader/internal/persona"
)

// Structured is a persona-typed structured report. It is implemented by
// *Legal and *Analysis; both share the missing-information list.
type Structured interface {
	Kind() persona.Kind
	Missing() []string
}

// Legal is the structured record of a legal (police report) draft.
type Legal struct {
	Type               persona.Kind `json:"type"`
	General            string       `json:"general"`
	Parties            string       `json:"parties"`
	Incident           string       `json:"incident"`
	Witnesses          string       `json:"witnesses"`
	Evidence           string       `json:"evidence"`
	Actions            string       `json:"actions"`
	LegalQualification string       `json:"legalQualification"`
	Recommendations    string       `json:"recommendations"`
	Attachments        string       `json:"attachments"`
	MissingFields      []string     `json:"missingFields"`
}

func (l *Legal) Kind() persona.Kind { return persona.KindLegal }
func (l *Legal) Missing() []string  { return l.MissingFields }

// Analysis is the structured record of a misinformation-analysis or general
// draft.
type Analysis struct {
	Type            persona.Kind `json:"type"`
	Executive       string       `json:"executive"`
	Claims          string       `json:"claims"`
	Proofs          string       `json:"proofs"`
	Credibility     string       `json:"credibility"`
	Gaps            string       `json:"gaps"`
	Recommendations string       `json:"recommendations"`
	MissingFields   []string     `json:"missingFields"`
}

func (a *Analysis) Kind() persona.Kind { return persona.KindAnalysis }
func (a *Analysis) Missing() []string  { return a.MissingFields }

// Summary returns the field scanned first for a case number: general info
// for legal records, the executive summary otherwise.
func Summary(s Structured) string {
	switch v := s.(type) {
	case *Legal:
		return v.General
	case *Analysis:
		return v.Executive
	}
	return ""
}

// Decode restores a Structured value from its JSON form using the "type"
// discriminator.
func Decode(data []byte) (Structured, error) {
	var peek struct {
		Type persona.Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &peek); err != nil {
		return nil, fmt.Errorf("decode structured report: %w", err)
	}

	var s Structured
	switch peek.Type {
	case persona.KindLegal:
		s = &Legal{}
	case persona.KindAnalysis:
		s = &Analysis{}
	default:
		return nil, fmt.Errorf("decode structured report: unknown type %q", peek.Type)
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decode structured report: %w", err)
	}
	return s, nil
}
