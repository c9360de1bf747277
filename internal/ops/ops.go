// Package ops implements the conversation and report operations shared by
// the CLI, the MCP server and the web viewer.
package ops

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/mahader/internal/model"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Store is the document store the operations run against.
type Store interface {
	CreateConversation(ctx context.Context, c *model.Conversation) error
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	UpdateConversation(ctx context.Context, id string, patch model.ConversationPatch) (*model.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
	ListConversations(ctx context.Context, limit, offset int) ([]model.Conversation, int, error)

	AppendMessage(ctx context.Context, m *model.Message) error
	ListMessages(ctx context.Context, conversationID string) ([]model.Message, error)
	DeleteMessages(ctx context.Context, conversationID string) (int64, error)

	UpsertReport(ctx context.Context, r *model.Report) (bool, error)
	GetReport(ctx context.Context, id string) (*model.Report, error)
	ListReports(ctx context.Context, status *model.Status) ([]model.Report, error)
	DeleteReport(ctx context.Context, id string) error
}

// clampPage applies limit defaults and bounds.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return limit, max(offset, 0)
}

// preview truncates text to at most n runes, appending an ellipsis when cut.
func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:n])) + "…"
}
