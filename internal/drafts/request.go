package drafts

import (
	"github.com/hpungsan/mahader/internal/config"
	"github.com/hpungsan/mahader/internal/llm"
	"github.com/hpungsan/mahader/internal/model"
	"github.com/hpungsan/mahader/internal/persona"
)

// BuildRequest assembles a draft request: the persona's draft prompt, the
// ordered transcript, and the trailing update instruction.
func BuildRequest(cfg *config.Config, p persona.Persona, msgs []model.Message) llm.Request {
	out := make([]llm.Message, 0, len(msgs)+2)
	out = append(out, llm.Message{Role: llm.RoleSystem, Content: p.DraftPrompt()})
	out = append(out, Transcript(msgs)...)
	out = append(out, llm.Message{Role: llm.RoleUser, Content: persona.DraftInstruction()})
	return llm.Request{
		Model:       cfg.Model,
		Messages:    out,
		Temperature: cfg.Temperature,
	}
}

// Transcript maps stored messages to request messages in order. An
// attachment-only message is represented by the attachment name.
func Transcript(msgs []model.Message) []llm.Message {
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		role := llm.RoleUser
		if m.Type == model.MessageAssistant {
			role = llm.RoleAssistant
		}
		content := m.Content
		if content == "" && m.Attachment != nil {
			content = "[مرفق: " + m.Attachment.Name + "]"
		}
		out = append(out, llm.Message{Role: role, Content: content})
	}
	return out
}
