package persona

import (
	"fmt"
	"strings"
)

// notAvailable mirrors title.NotAvailable; kept local so persona stays a leaf package.
const notAvailable = "غير متوفر"

// IntakeMessage is the assistant message that opens a new conversation.
func (p Persona) IntakeMessage() string {
	switch p {
	case Legal:
		return "مرحباً، أنا مساعدك لتحرير المحاضر. صف الواقعة بالتفصيل: ماذا حدث، ومتى، وأين، ومن الأطراف؟"
	case FakeNews:
		return "مرحباً، أنا مساعدك لكشف الأخبار المضللة. أرسل الخبر أو الادعاء الذي تريد التحقق منه مع مصدره إن وجد."
	default:
		return "مرحباً! أنا مساعدك الذكي. كيف يمكنني مساعدتك اليوم؟"
	}
}

// ChatPrompt is the system instruction for conversational replies.
func (p Persona) ChatPrompt() string {
	switch p {
	case Legal:
		return "أنت مساعد قانوني يساعد ضابط الشرطة في جمع بيانات المحضر. اطرح سؤالاً واحداً واضحاً في كل مرة عن المعلومة الناقصة الأهم، ولا تختلق وقائع."
	case FakeNews:
		return "أنت محلل متخصص في كشف الأخبار المضللة. حلّل الادعاءات بموضوعية، واطلب المصادر والأدلة، ووضح درجة الثقة في كل استنتاج."
	default:
		return "أنت مساعد ذكي يجيب باللغة العربية بإيجاز ودقة."
	}
}

// DraftPrompt is the system instruction for draft regeneration. It fixes the
// headings the structured extractor looks for.
func (p Persona) DraftPrompt() string {
	var b strings.Builder
	switch p {
	case Legal:
		b.WriteString("أنت محرر محاضر شرطة. حوّل المحادثة إلى مسودة محضر رسمية بالعربية الفصحى دون اختلاق أي معلومة.\n")
		b.WriteString("ابدأ بعنوان من المستوى الأول يصف الواقعة، ثم الأقسام التالية بهذا الترتيب:\n")
	case FakeNews:
		b.WriteString("أنت محلل تحقق من المعلومات. حوّل المحادثة إلى تقرير تحليل مصداقية بالعربية الفصحى.\n")
		b.WriteString("ابدأ بعنوان من المستوى الأول، ثم الأقسام التالية بهذا الترتيب:\n")
	default:
		b.WriteString("لخّص المحادثة في تقرير منظم بالعربية الفصحى.\n")
		b.WriteString("ابدأ بعنوان من المستوى الأول، ثم الأقسام التالية بهذا الترتيب:\n")
	}
	for _, l := range Labels(p.Kind()) {
		fmt.Fprintf(&b, "## %s\n", l.Canonical)
	}
	if p == Legal {
		b.WriteString("في قسم المعلومات العامة اكتب سطراً بالصيغة: \"- رقم المحضر/القضية: <الرقم>\".\n")
		b.WriteString("في أقسام الأطراف والشهود والأدلة والإجراءات اكتب كل عنصر كبند بالصيغة \"- <البند>: <التفاصيل>\".\n")
	} else {
		b.WriteString("في الملخص التنفيذي اكتب سطراً بالصيغة: \"- رقم الملف: <الرقم>\" إن وجد.\n")
		b.WriteString("في قسمي الادعاءات والأدلة اكتب كل عنصر كبند بالصيغة \"- <البند>: <التفاصيل>\".\n")
	}
	fmt.Fprintf(&b, "اكتب \"%s\" لأي معلومة غير معروفة، وأدرج كل معلومة ناقصة كبند مستقل يبدأ بـ \"- \" تحت قسم \"%s\".", notAvailable, missingLabel.Canonical)
	return b.String()
}

// DraftInstruction is the trailing user turn asking for the updated draft.
func DraftInstruction() string {
	return "حدّث مسودة التقرير بناءً على المحادثة أعلاه، وأعد المسودة كاملة بصيغة Markdown فقط دون أي تعليق إضافي."
}
