package report

import (
	"regexp"
	"strings"

	"github.com/hpungsan/mahader/internal/persona"
	"github.com/hpungsan/mahader/internal/sections"
)

// missingBullet matches one "- <text>" entry of the missing-information list.
var missingBullet = regexp.MustCompile(`(?m)^[ \t]*-[ \t]+(\S.*?)[ \t\r]*$`)

// Extract builds the structured record of a draft for persona p. Absent
// sections yield empty strings; it never fails.
func Extract(markdown string, p persona.Persona) Structured {
	kind := p.Kind()
	list := sections.Parse(markdown)

	field := func(f persona.Field) string {
		s := sections.FindField(list, kind, f)
		if s == nil {
			return ""
		}
		return strings.TrimSpace(s.Content(markdown))
	}

	missing := missingFields(field(persona.FieldMissing))

	if kind == persona.KindLegal {
		return &Legal{
			Type:               persona.KindLegal,
			General:            field(persona.FieldGeneral),
			Parties:            field(persona.FieldParties),
			Incident:           field(persona.FieldIncident),
			Witnesses:          field(persona.FieldWitnesses),
			Evidence:           field(persona.FieldEvidence),
			Actions:            field(persona.FieldActions),
			LegalQualification: field(persona.FieldLegalQualification),
			Recommendations:    field(persona.FieldRecommendations),
			Attachments:        field(persona.FieldAttachments),
			MissingFields:      missing,
		}
	}
	return &Analysis{
		Type:            persona.KindAnalysis,
		Executive:       field(persona.FieldExecutive),
		Claims:          field(persona.FieldClaims),
		Proofs:          field(persona.FieldProofs),
		Credibility:     field(persona.FieldCredibility),
		Gaps:            field(persona.FieldGaps),
		Recommendations: field(persona.FieldRecommendations),
		MissingFields:   missing,
	}
}

func missingFields(content string) []string {
	out := []string{}
	for _, m := range missingBullet.FindAllStringSubmatch(content, -1) {
		out = append(out, m[1])
	}
	return out
}
