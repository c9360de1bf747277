package ops

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/hpungsan/mahader/internal/config"
	"github.com/hpungsan/mahader/internal/errors"
	"github.com/hpungsan/mahader/internal/model"
	"github.com/hpungsan/mahader/internal/persona"
	"github.com/hpungsan/mahader/internal/title"
)

// CreateConversationInput contains parameters for CreateConversation.
type CreateConversationInput struct {
	Persona     string // optional, default: general
	CustomTitle string // optional, default: title.Default
}

// CreateConversationOutput contains the new conversation and its intake message.
type CreateConversationOutput struct {
	Conversation model.Conversation `json:"conversation"`
	Intake       model.Message      `json:"intake"`
}

// CreateConversation creates an unlocked conversation and appends the
// persona's intake assistant message.
func CreateConversation(ctx context.Context, store Store, cfg *config.Config, input CreateConversationInput) (*CreateConversationOutput, error) {
	p := persona.General
	if strings.TrimSpace(input.Persona) != "" {
		var ok bool
		p, ok = persona.Parse(input.Persona)
		if !ok {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown persona %q", input.Persona))
		}
	}

	custom := strings.TrimSpace(input.CustomTitle)
	if custom == "" {
		custom = title.Default
	}

	intakeText := p.IntakeMessage()
	c := &model.Conversation{
		Persona:     p,
		CustomTitle: custom,
		Title:       title.Compose(custom, ""),
		LastMessage: preview(intakeText, cfg.PreviewChars),
	}
	if err := store.CreateConversation(ctx, c); err != nil {
		return nil, err
	}

	intake := &model.Message{
		ConversationID: c.ID,
		Type:           model.MessageAssistant,
		Content:        intakeText,
	}
	if err := store.AppendMessage(ctx, intake); err != nil {
		return nil, err
	}

	return &CreateConversationOutput{Conversation: *c, Intake: *intake}, nil
}

// GetConversation retrieves a conversation by ID.
func GetConversation(ctx context.Context, store Store, id string) (*model.Conversation, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.NewInvalidRequest("conversation id is required")
	}
	return store.GetConversation(ctx, id)
}

// ListConversationsInput contains parameters for ListConversations.
type ListConversationsInput struct {
	Limit  int // default: 20, max: 100
	Offset int // default: 0
}

// ListConversationsOutput contains one page of conversations.
type ListConversationsOutput struct {
	Items      []model.Conversation `json:"items"`
	Pagination Pagination           `json:"pagination"`
	Sort       string               `json:"sort"`
}

// ListConversations returns conversations, most recently updated first.
func ListConversations(ctx context.Context, store Store, input ListConversationsInput) (*ListConversationsOutput, error) {
	limit, offset := clampPage(input.Limit, input.Offset)

	items, total, err := store.ListConversations(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Conversation{}
	}

	return &ListConversationsOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "updated_at_desc",
	}, nil
}

// SetPersonaInput contains parameters for SetPersona.
type SetPersonaInput struct {
	ID      string
	Persona string
}

// SetPersona changes the persona of a conversation that has no user
// message yet.
func SetPersona(ctx context.Context, store Store, input SetPersonaInput) (*model.Conversation, error) {
	p, ok := persona.Parse(input.Persona)
	if !ok {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown persona %q", input.Persona))
	}
	c, err := GetConversation(ctx, store, input.ID)
	if err != nil {
		return nil, err
	}
	if c.Persona == p {
		return c, nil
	}
	if c.Locked {
		return nil, errors.NewPersonaLocked(c.ID)
	}
	return store.UpdateConversation(ctx, c.ID, model.ConversationPatch{Persona: &p})
}

// AppendMessageInput contains parameters for AppendMessage.
type AppendMessageInput struct {
	ConversationID string
	Type           model.MessageType // default: user
	Content        string
	Attachment     *model.Attachment
}

// AppendMessageOutput contains the stored message and updated conversation.
type AppendMessageOutput struct {
	Message      model.Message      `json:"message"`
	Conversation model.Conversation `json:"conversation"`
}

// AppendMessage stores a message and refreshes the conversation preview.
// The first user message locks the persona.
func AppendMessage(ctx context.Context, store Store, cfg *config.Config, input AppendMessageInput) (*AppendMessageOutput, error) {
	msgType := input.Type
	if msgType == "" {
		msgType = model.MessageUser
	}
	if msgType != model.MessageUser && msgType != model.MessageAssistant {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown message type %q", input.Type))
	}
	if strings.TrimSpace(input.Content) == "" && input.Attachment == nil {
		return nil, errors.NewInvalidRequest("message content or attachment is required")
	}

	c, err := GetConversation(ctx, store, input.ConversationID)
	if err != nil {
		return nil, err
	}

	m := &model.Message{
		ConversationID: c.ID,
		Type:           msgType,
		Content:        input.Content,
		Attachment:     input.Attachment,
	}
	if err := store.AppendMessage(ctx, m); err != nil {
		return nil, err
	}

	text := m.Content
	if strings.TrimSpace(text) == "" && m.Attachment != nil {
		text = m.Attachment.Name
	}
	patch := model.ConversationPatch{LastMessage: model.Ptr(preview(text, cfg.PreviewChars))}
	if msgType == model.MessageUser && !c.Locked {
		patch.Locked = model.Ptr(true)
	}
	updated, err := store.UpdateConversation(ctx, c.ID, patch)
	if err != nil {
		return nil, err
	}

	return &AppendMessageOutput{Message: *m, Conversation: *updated}, nil
}

// ListMessages returns a conversation's messages in creation order.
func ListMessages(ctx context.Context, store Store, conversationID string) ([]model.Message, error) {
	c, err := GetConversation(ctx, store, conversationID)
	if err != nil {
		return nil, err
	}
	return store.ListMessages(ctx, c.ID)
}

// RenameConversationInput contains parameters for RenameConversation.
type RenameConversationInput struct {
	ID    string
	Title string
}

// RenameConversation sets the base title. A case number typed in front of
// the new title is stripped so the display title is not prefixed twice.
func RenameConversation(ctx context.Context, store Store, input RenameConversationInput) (*model.Conversation, error) {
	c, err := GetConversation(ctx, store, input.ID)
	if err != nil {
		return nil, err
	}

	caseNumber := c.CaseNumberValue()
	custom := title.Strip(strings.TrimSpace(input.Title), caseNumber)
	display := title.Compose(custom, caseNumber)

	return store.UpdateConversation(ctx, c.ID, model.ConversationPatch{
		CustomTitle: &custom,
		Title:       &display,
	})
}

// DeleteConversationOutput reports what a cascading delete removed.
type DeleteConversationOutput struct {
	ID              string `json:"id"`
	MessagesDeleted int64  `json:"messages_deleted"`
	Deleted         bool   `json:"deleted"`
}

// DeleteConversation deletes a conversation's messages, its report and
// then the conversation. Steps are best effort and not transactional: a
// failed step does not stop the others, and every failure is returned joined.
func DeleteConversation(ctx context.Context, store Store, id string) (*DeleteConversationOutput, error) {
	c, err := GetConversation(ctx, store, id)
	if err != nil {
		return nil, err
	}

	out := &DeleteConversationOutput{ID: c.ID}
	var errs []error

	n, err := store.DeleteMessages(ctx, c.ID)
	if err != nil {
		errs = append(errs, err)
	}
	out.MessagesDeleted = n

	if err := store.DeleteReport(ctx, c.ID); err != nil {
		errs = append(errs, err)
	}

	if err := store.DeleteConversation(ctx, c.ID); err != nil {
		errs = append(errs, err)
	} else {
		out.Deleted = true
	}

	return out, stderrors.Join(errs...)
}
