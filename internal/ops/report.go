package ops

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/mahader/internal/casenum"
	"github.com/hpungsan/mahader/internal/errors"
	"github.com/hpungsan/mahader/internal/model"
	"github.com/hpungsan/mahader/internal/persona"
	"github.com/hpungsan/mahader/internal/report"
	"github.com/hpungsan/mahader/internal/title"
)

// SaveReportInput contains parameters for SaveReport.
type SaveReportInput struct {
	ConversationID string
	Draft          string
	Status         string // draft|final, default: draft
}

// SaveReportOutput contains the result of SaveReport.
type SaveReportOutput struct {
	// Saved is false when the draft or conversation id was empty and
	// nothing was written.
	Saved        bool                `json:"saved"`
	Created      bool                `json:"created,omitempty"`
	Report       *model.Report       `json:"report,omitempty"`
	Conversation *model.Conversation `json:"conversation,omitempty"`
	CaseNumber   string              `json:"caseNumber,omitempty"`
}

// SaveReport persists a draft as the conversation's report and mirrors the
// detected case number and report id onto the conversation.
//
// The report is upserted under the conversation's id. If the conversation
// update fails after the upsert, the output is returned together with a
// MIRROR_FAILED error and the report is kept.
func SaveReport(ctx context.Context, store Store, input SaveReportInput) (*SaveReportOutput, error) {
	id := strings.TrimSpace(input.ConversationID)
	if id == "" || strings.TrimSpace(input.Draft) == "" {
		return &SaveReportOutput{}, nil
	}

	status, ok := model.ParseStatus(strings.TrimSpace(input.Status))
	if !ok {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown status %q", input.Status))
	}

	c, err := store.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}

	structured := report.Extract(input.Draft, c.Persona)
	r := &model.Report{
		ID:         c.ID,
		Persona:    c.Persona,
		Title:      report.Title(input.Draft, time.Now()),
		Content:    input.Draft,
		Structured: structured,
		Stats:      report.ComputeStats(input.Draft, structured),
		Status:     status,
	}
	created, err := store.UpsertReport(ctx, r)
	if err != nil {
		return nil, err
	}

	out := &SaveReportOutput{Saved: true, Created: created, Report: r, Conversation: c}

	caseNumber, found := detectCaseNumber(input.Draft, structured, c.Persona)
	if found {
		out.CaseNumber = caseNumber
	}
	newCase := found && caseNumber != c.CaseNumberValue()
	if !newCase && c.ReportID != nil {
		return out, nil
	}

	patch := model.ConversationPatch{ReportID: &r.ID}
	if newCase {
		custom := title.Strip(c.CustomTitle, caseNumber)
		display := title.Compose(custom, caseNumber)
		patch.CaseNumber = &caseNumber
		patch.CustomTitle = &custom
		patch.Title = &display
	}
	updated, err := store.UpdateConversation(ctx, c.ID, patch)
	if err != nil {
		return out, errors.NewMirrorFailed(r.ID, err)
	}
	out.Conversation = updated
	return out, nil
}

// detectCaseNumber looks in the structured summary section first, then in
// the whole draft.
func detectCaseNumber(draft string, s report.Structured, p persona.Persona) (string, bool) {
	if summary := report.Summary(s); summary != "" {
		if n, ok := casenum.ExtractSection(summary, p); ok {
			return n, true
		}
	}
	return casenum.Extract(draft, p)
}

// FetchReport retrieves a report by its conversation id.
func FetchReport(ctx context.Context, store Store, id string) (*model.Report, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.NewInvalidRequest("report id is required")
	}
	return store.GetReport(ctx, id)
}

// ReportSummary is a report without its content.
type ReportSummary struct {
	ID        string          `json:"id"`
	Persona   persona.Persona `json:"persona"`
	Title     string          `json:"title"`
	Status    model.Status    `json:"status"`
	Stats     report.Stats    `json:"stats"`
	UpdatedAt int64           `json:"updatedAt"`
}

// ListReportsInput contains parameters for ListReports.
type ListReportsInput struct {
	Status string // optional filter: draft|final
}

// ListReportsOutput contains report summaries, most recently updated first.
type ListReportsOutput struct {
	Items []ReportSummary `json:"items"`
}

// ListReports lists reports, optionally filtered by status.
func ListReports(ctx context.Context, store Store, input ListReportsInput) (*ListReportsOutput, error) {
	var filter *model.Status
	if s := strings.TrimSpace(input.Status); s != "" {
		status, ok := model.ParseStatus(s)
		if !ok {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown status %q", input.Status))
		}
		filter = &status
	}

	reports, err := store.ListReports(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]ReportSummary, 0, len(reports))
	for _, r := range reports {
		items = append(items, ReportSummary{
			ID:        r.ID,
			Persona:   r.Persona,
			Title:     r.Title,
			Status:    r.Status,
			Stats:     r.Stats,
			UpdatedAt: r.UpdatedAt,
		})
	}
	return &ListReportsOutput{Items: items}, nil
}

// Display formats.
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

// DisplayReportInput contains parameters for DisplayReport.
type DisplayReportInput struct {
	ID     string
	Format string // markdown|html, default: markdown
}

// DisplayReportOutput contains a report rendered for reading.
type DisplayReportOutput struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Format  string `json:"format"`
	Content string `json:"content"`
}

// DisplayReport renders a stored report with its fixed sections as tables.
func DisplayReport(ctx context.Context, store Store, input DisplayReportInput) (*DisplayReportOutput, error) {
	format, err := parseFormat(input.Format)
	if err != nil {
		return nil, err
	}
	r, err := FetchReport(ctx, store, input.ID)
	if err != nil {
		return nil, err
	}
	content, err := render(r, format)
	if err != nil {
		return nil, err
	}
	return &DisplayReportOutput{ID: r.ID, Title: r.Title, Format: format, Content: content}, nil
}

func parseFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", FormatMarkdown:
		return FormatMarkdown, nil
	case FormatHTML:
		return FormatHTML, nil
	}
	return "", errors.NewInvalidRequest(fmt.Sprintf("unknown format %q (want markdown or html)", s))
}

func render(r *model.Report, format string) (string, error) {
	display := report.Display(r.Content, r.Persona)
	if format != FormatHTML {
		return display, nil
	}
	html, err := report.RenderHTML(display)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return html, nil
}
