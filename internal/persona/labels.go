package persona

// Field identifies one field of a structured report.
type Field string

// Legal fields.
const (
	FieldGeneral            Field = "general"
	FieldParties            Field = "parties"
	FieldIncident           Field = "incident"
	FieldWitnesses          Field = "witnesses"
	FieldEvidence           Field = "evidence"
	FieldActions            Field = "actions"
	FieldLegalQualification Field = "legalQualification"
	FieldAttachments        Field = "attachments"
)

// Analysis fields.
const (
	FieldExecutive   Field = "executive"
	FieldClaims      Field = "claims"
	FieldProofs      Field = "proofs"
	FieldCredibility Field = "credibility"
	FieldGaps        Field = "gaps"
)

// Shared fields.
const (
	FieldRecommendations Field = "recommendations"
	FieldMissing         Field = "missingFields"
)

// Label binds a field to the heading that holds it in a draft.
// Canonical is the heading the prompts ask for; Synonyms are the other
// accepted heading texts (lowercase).
type Label struct {
	Field     Field
	Canonical string
	Synonyms  []string
}

// Matches reports whether a normalized heading name names this label.
func (l Label) Matches(name string) bool {
	if name == l.Canonical {
		return true
	}
	for _, s := range l.Synonyms {
		if name == s {
			return true
		}
	}
	return false
}

var missingLabel = Label{FieldMissing, "المعلومات الناقصة", []string{"النواقص", "معلومات ناقصة", "missing information", "missing info"}}

var recommendationsLabel = Label{FieldRecommendations, "التوصيات", []string{"توصيات", "recommendations"}}

var legalLabels = []Label{
	{FieldGeneral, "المعلومات العامة", []string{"معلومات عامة", "بيانات المحضر", "general information"}},
	{FieldParties, "الأطراف", []string{"أطراف الواقعة", "الاطراف", "parties"}},
	{FieldIncident, "تفاصيل الواقعة", []string{"الواقعة", "وصف الواقعة", "incident details", "incident"}},
	{FieldWitnesses, "الشهود", []string{"أقوال الشهود", "witnesses"}},
	{FieldEvidence, "الأدلة والمضبوطات", []string{"الأدلة", "المضبوطات", "المضبوطات/الأحراز", "evidence"}},
	{FieldActions, "الإجراءات المتخذة", []string{"الإجراءات", "actions taken", "actions"}},
	{FieldLegalQualification, "التكييف القانوني", []string{"الوصف القانوني", "legal qualification"}},
	recommendationsLabel,
	{FieldAttachments, "المرفقات", []string{"attachments"}},
	missingLabel,
}

var analysisLabels = []Label{
	{FieldExecutive, "الملخص التنفيذي", []string{"ملخص تنفيذي", "الملخص", "executive summary"}},
	{FieldClaims, "الادعاءات", []string{"الادعاءات المرصودة", "claims"}},
	{FieldProofs, "الأدلة والبراهين", []string{"البراهين", "الأدلة", "proofs", "evidence"}},
	{FieldCredibility, "تقييم المصداقية", []string{"المصداقية", "credibility assessment", "credibility"}},
	{FieldGaps, "الثغرات", []string{"الفجوات", "gaps"}},
	recommendationsLabel,
	missingLabel,
}

// Labels returns the section labels of a report kind in document order.
func Labels(k Kind) []Label {
	if k == KindLegal {
		return legalLabels
	}
	return analysisLabels
}

// LabelFor returns the label of field f within kind k.
func LabelFor(k Kind, f Field) (Label, bool) {
	for _, l := range Labels(k) {
		if l.Field == f {
			return l, true
		}
	}
	return Label{}, false
}

// TableFields lists the bullet sections rendered as item/details tables.
func TableFields(k Kind) []Field {
	if k == KindLegal {
		return []Field{FieldParties, FieldWitnesses, FieldEvidence, FieldActions}
	}
	return []Field{FieldClaims, FieldProofs}
}

// SummaryField is the field scanned first for a case number on save.
func SummaryField(k Kind) Field {
	if k == KindLegal {
		return FieldGeneral
	}
	return FieldExecutive
}
