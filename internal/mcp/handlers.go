package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/mahader/internal/config"
	"github.com/hpungsan/mahader/internal/errors"
	"github.com/hpungsan/mahader/internal/model"
	"github.com/hpungsan/mahader/internal/ops"
	"github.com/hpungsan/mahader/internal/session"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	sess  *session.Session
	store session.Store
	cfg   *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(sess *session.Session, store session.Store, cfg *config.Config) *Handlers {
	return &Handlers{sess: sess, store: store, cfg: cfg}
}

// Request types for JSON decoding

// ConversationCreateRequest represents the conversation_create tool input.
type ConversationCreateRequest struct {
	Persona string `json:"persona"`
	Title   string `json:"title"`
}

// ConversationListRequest represents the conversation_list tool input.
type ConversationListRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ConversationRenameRequest represents the conversation_rename tool input.
type ConversationRenameRequest struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ConversationIDRequest is the input of tools that take only a conversation id.
type ConversationIDRequest struct {
	ID string `json:"id"`
}

// ConversationSetPersonaRequest represents the conversation_set_persona tool input.
type ConversationSetPersonaRequest struct {
	ID      string `json:"id"`
	Persona string `json:"persona"`
}

// MessageSendRequest represents the message_send tool input.
type MessageSendRequest struct {
	ConversationID string             `json:"conversation_id"`
	Content        string             `json:"content"`
	Attachment     *AttachmentRequest `json:"attachment,omitempty"`
}

// AttachmentRequest is an uploaded file reference.
type AttachmentRequest struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        *int64 `json:"size,omitempty"`
}

// DraftRequest is the input of the draft tools and message_list.
type DraftRequest struct {
	ConversationID string `json:"conversation_id"`
	Draft          string `json:"draft"`
}

// ReportSaveRequest represents the report_save tool input.
type ReportSaveRequest struct {
	ConversationID string  `json:"conversation_id"`
	Status         string  `json:"status"`
	Draft          *string `json:"draft,omitempty"`
}

// ReportRequest is the input of report_fetch and report_display.
type ReportRequest struct {
	ID     string `json:"id"`
	Format string `json:"format"`
}

// ReportListRequest represents the report_list tool input.
type ReportListRequest struct {
	Status string `json:"status"`
}

// ReportExportRequest represents the report_export tool input.
type ReportExportRequest struct {
	ID     string `json:"id"`
	Path   string `json:"path"`
	Format string `json:"format"`
	Raw    bool   `json:"raw"`
}

// DraftOutput is the result of the draft tools.
type DraftOutput struct {
	ConversationID string `json:"conversation_id"`
	Draft          string `json:"draft"`
}

// Handler implementations

// HandleConversationCreate handles the conversation_create tool call.
func (h *Handlers) HandleConversationCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ConversationCreateRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.sess.Create(ctx, ops.CreateConversationInput{
		Persona:     input.Persona,
		CustomTitle: input.Title,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleConversationList handles the conversation_list tool call.
func (h *Handlers) HandleConversationList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ConversationListRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.ListConversations(ctx, h.store, ops.ListConversationsInput{
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleConversationRename handles the conversation_rename tool call.
func (h *Handlers) HandleConversationRename(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ConversationRenameRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.sess.Rename(ctx, input.ID, input.Title)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleConversationDelete handles the conversation_delete tool call.
func (h *Handlers) HandleConversationDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ConversationIDRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.sess.Delete(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleConversationSetPersona handles the conversation_set_persona tool call.
func (h *Handlers) HandleConversationSetPersona(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ConversationSetPersonaRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.sess.SetPersona(ctx, input.ID, input.Persona)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleMessageSend handles the message_send tool call. The conversation is
// selected first so the background draft follows it.
func (h *Handlers) HandleMessageSend(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MessageSendRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if err := h.focus(ctx, input.ConversationID); err != nil {
		return errorResult(err), nil
	}

	var att *model.Attachment
	if a := input.Attachment; a != nil {
		att = &model.Attachment{URL: a.URL, Name: a.Name, ContentType: a.ContentType, Size: a.Size}
	}
	result, err := h.sess.Send(ctx, session.SendInput{
		ConversationID: input.ConversationID,
		Content:        input.Content,
		Attachment:     att,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleMessageList handles the message_list tool call.
func (h *Handlers) HandleMessageList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DraftRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	msgs, err := ops.ListMessages(ctx, h.store, input.ConversationID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"items": msgs})
}

// HandleDraftGenerate handles the draft_generate tool call.
func (h *Handlers) HandleDraftGenerate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DraftRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if err := h.focus(ctx, input.ConversationID); err != nil {
		return errorResult(err), nil
	}

	draft, err := h.sess.GenerateDraft(ctx, input.ConversationID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(DraftOutput{ConversationID: input.ConversationID, Draft: draft})
}

// HandleDraftGet handles the draft_get tool call.
func (h *Handlers) HandleDraftGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DraftRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if input.ConversationID == "" {
		return errorResult(errors.NewInvalidRequest("conversation_id is required")), nil
	}

	return successResult(DraftOutput{
		ConversationID: input.ConversationID,
		Draft:          h.sess.Draft(input.ConversationID),
	})
}

// HandleDraftSet handles the draft_set tool call.
func (h *Handlers) HandleDraftSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DraftRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if _, err := ops.GetConversation(ctx, h.store, input.ConversationID); err != nil {
		return errorResult(err), nil
	}

	h.sess.SetDraft(input.ConversationID, input.Draft)
	return successResult(DraftOutput{ConversationID: input.ConversationID, Draft: input.Draft})
}

// HandleReportSave handles the report_save tool call.
func (h *Handlers) HandleReportSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ReportSaveRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if input.ConversationID == "" {
		return errorResult(errors.NewInvalidRequest("conversation_id is required")), nil
	}
	if input.Draft != nil {
		h.sess.SetDraft(input.ConversationID, *input.Draft)
	}

	result, err := h.sess.SaveReport(ctx, input.ConversationID, input.Status)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleReportFetch handles the report_fetch tool call.
func (h *Handlers) HandleReportFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ReportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.FetchReport(ctx, h.store, input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleReportList handles the report_list tool call.
func (h *Handlers) HandleReportList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ReportListRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.ListReports(ctx, h.store, ops.ListReportsInput{Status: input.Status})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleReportDisplay handles the report_display tool call.
func (h *Handlers) HandleReportDisplay(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ReportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.DisplayReport(ctx, h.store, ops.DisplayReportInput{ID: input.ID, Format: input.Format})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleReportExport handles the report_export tool call.
func (h *Handlers) HandleReportExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ReportExportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.ExportReport(ctx, h.store, h.cfg, ops.ExportReportInput{
		ID:     input.ID,
		Path:   input.Path,
		Format: input.Format,
		Raw:    input.Raw,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// focus selects conversation id unless it is already selected.
func (h *Handlers) focus(ctx context.Context, id string) error {
	if id == "" {
		return errors.NewInvalidRequest("conversation_id is required")
	}
	if h.sess.State().Selected == id {
		return nil
	}
	_, err := h.sess.Select(ctx, id)
	return err
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		// Keep context added by wrapping, without repeating the code
		message := appErr.Message
		if outer := err.Error(); outer != appErr.Error() {
			message = strings.TrimSuffix(outer, appErr.Error()) + appErr.Message
		}
		// Internal messages carry the raw cause
		if appErr.Code == errors.ErrInternal {
			message = "an internal error occurred"
		}
		errorObj := map[string]any{
			"code":    appErr.Code,
			"message": message,
			"status":  appErr.Status,
		}
		// Details of internal errors may hold paths or SQL
		if appErr.Code != errors.ErrInternal && appErr.Details != nil {
			errorObj["details"] = appErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
