package web

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/hpungsan/mahader/internal/ops"
)

// Handlers contains HTTP route handlers for the viewer.
type Handlers struct {
	store    ops.Store
	renderer *Renderer
}

// HandleConversations handles GET /conversations.
func (h *Handlers) HandleConversations(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ListConversations(r.Context(), h.store, ops.ListConversationsInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "conversations", ConversationsPageData{
		PageData:   h.page("المحادثات", "conversations"),
		Items:      result.Items,
		Pagination: result.Pagination,
	})
}

// HandleConversation handles GET /conversations/{id}: the transcript.
func (h *Handlers) HandleConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := ops.GetConversation(r.Context(), h.store, r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	msgs, err := ops.ListMessages(r.Context(), h.store, conv.ID)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"conversation": conv, "messages": msgs})
		return
	}

	h.renderer.renderPage(w, r, "conversation", ConversationPageData{
		PageData:     h.page(conv.Title, "conversations"),
		Conversation: conv,
		Messages:     msgs,
	})
}

// HandleReports handles GET /reports?status=.
func (h *Handlers) HandleReports(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	result, err := ops.ListReports(r.Context(), h.store, ops.ListReportsInput{Status: status})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "reports", ReportsPageData{
		PageData: h.page("التقارير", "reports"),
		Items:    result.Items,
		Status:   status,
	})
}

// HandleReport handles GET /reports/{id}: the stored report as JSON.
func (h *Handlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := ops.FetchReport(r.Context(), h.store, r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, rep)
}

// HandleReportView handles GET /reports/{id}/view: the display form as HTML.
func (h *Handlers) HandleReportView(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	shown, err := ops.DisplayReport(r.Context(), h.store, ops.DisplayReportInput{ID: id, Format: ops.FormatHTML})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	rep, err := ops.FetchReport(r.Context(), h.store, id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "report", ReportPageData{
		PageData: h.page(shown.Title, "reports"),
		Report:   rep,
		// Raw HTML in the markdown is dropped by the renderer.
		RenderedHTML: template.HTML(shown.Content),
	})
}

func (h *Handlers) page(title, nav string) PageData {
	return PageData{Title: title, Version: h.renderer.version, Nav: nav}
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
