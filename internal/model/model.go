// Package model defines the documents held by the store.
package model

import (
	"encoding/json"

	"github.com/hpungsan/mahader/internal/persona"
	"github.com/hpungsan/mahader/internal/report"
)

// Conversation is one assistant conversation.
type Conversation struct {
	// ID is a ULID assigned on creation.
	ID string `json:"id"`

	// Persona selects prompts and the structured report variant.
	// It does not change once Locked is true.
	Persona persona.Persona `json:"persona"`

	// Locked becomes true on the first user message.
	Locked bool `json:"locked"`

	// CustomTitle is the user-editable base title.
	CustomTitle string `json:"customTitle"`

	// CaseNumber is the extracted case or file number (nil when absent).
	CaseNumber *string `json:"caseNumber,omitempty"`

	// Title is always title.Compose(CustomTitle, CaseNumber).
	Title string `json:"title"`

	// LastMessage is a truncated preview of the newest message.
	LastMessage string `json:"lastMessage"`

	// ReportID equals ID once a report has been saved.
	ReportID *string `json:"reportId,omitempty"`

	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
}

// CaseNumberValue returns the case number or "".
func (c *Conversation) CaseNumberValue() string {
	if c.CaseNumber == nil {
		return ""
	}
	return *c.CaseNumber
}

// MessageType is the author of a message.
type MessageType string

const (
	MessageUser      MessageType = "user"
	MessageAssistant MessageType = "assistant"
)

// Attachment is a file reference sent with a message.
type Attachment struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        *int64 `json:"size,omitempty"`
}

// Message is one turn of a conversation. Messages are append-only.
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversationId"`
	Type           MessageType `json:"type"`
	Content        string      `json:"content"`
	Timestamp      int64       `json:"timestamp"`
	Attachment     *Attachment `json:"attachment,omitempty"`
}

// Status is the lifecycle state of a report.
type Status string

const (
	StatusDraft Status = "draft"
	StatusFinal Status = "final"
)

// ParseStatus accepts "draft" or "final" (empty means draft).
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case "", StatusDraft:
		return StatusDraft, true
	case StatusFinal:
		return StatusFinal, true
	}
	return "", false
}

// Report is the saved report of a conversation. ID equals the conversation ID.
type Report struct {
	ID         string            `json:"id"`
	Persona    persona.Persona   `json:"persona"`
	Title      string            `json:"title"`
	Content    string            `json:"content"`
	Structured report.Structured `json:"structured"`
	Stats      report.Stats      `json:"stats"`
	Status     Status            `json:"status"`
	CreatedAt  int64             `json:"createdAt"`
	UpdatedAt  int64             `json:"updatedAt"`
}

// UnmarshalJSON restores the structured variant from its type tag.
func (r *Report) UnmarshalJSON(data []byte) error {
	type plain Report
	aux := struct {
		*plain
		Structured json.RawMessage `json:"structured"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Structured = nil
	if len(aux.Structured) == 0 || string(aux.Structured) == "null" {
		return nil
	}
	s, err := report.Decode(aux.Structured)
	if err != nil {
		return err
	}
	r.Structured = s
	return nil
}

// ConversationPatch is a merge update: nil fields are left unchanged.
// ClearCaseNumber removes the case number.
type ConversationPatch struct {
	Persona         *persona.Persona
	Locked          *bool
	CustomTitle     *string
	CaseNumber      *string
	ClearCaseNumber bool
	Title           *string
	LastMessage     *string
	ReportID        *string
}

// Apply merges p into c. It does not recompute the derived title.
func (p ConversationPatch) Apply(c *Conversation) {
	if p.Persona != nil {
		c.Persona = *p.Persona
	}
	if p.Locked != nil {
		c.Locked = *p.Locked
	}
	if p.CustomTitle != nil {
		c.CustomTitle = *p.CustomTitle
	}
	if p.ClearCaseNumber {
		c.CaseNumber = nil
	}
	if p.CaseNumber != nil {
		v := *p.CaseNumber
		c.CaseNumber = &v
	}
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.LastMessage != nil {
		c.LastMessage = *p.LastMessage
	}
	if p.ReportID != nil {
		v := *p.ReportID
		c.ReportID = &v
	}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
