package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/mahader/internal/config"
	"github.com/hpungsan/mahader/internal/db"
	"github.com/hpungsan/mahader/internal/errors"
	"github.com/hpungsan/mahader/internal/llm"
	"github.com/hpungsan/mahader/internal/persona"
	"github.com/hpungsan/mahader/internal/session"
)

const testDraft = `# محضر سرقة سيارة

## المعلومات العامة
- رقم المحضر/القضية: 55/2025

## المعلومات الناقصة
- رقم لوحة السيارة
`

type stubGenerator struct{ noCred bool }

func (g stubGenerator) HasCredential() bool { return !g.noCred }

func (g stubGenerator) Generate(_ context.Context, req llm.Request) (string, error) {
	if g.noCred {
		return "", llm.ErrMissingCredential
	}
	if req.Messages[len(req.Messages)-1].Content == persona.DraftInstruction() {
		return testDraft, nil
	}
	return "ما تاريخ الواقعة؟", nil
}

// testSetup creates a temporary store, config and session for testing.
func testSetup(t *testing.T, gen llm.Generator) (*Handlers, *db.Store, *config.Config) {
	t.Helper()

	store, err := db.Open(t.TempDir())
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true // Allow temp dirs in tests
	cfg.DisableAutoDraft = true

	sess := session.New(store, gen, cfg, nil)
	require.NoError(t, sess.Start())
	t.Cleanup(func() {
		sess.Close()
		store.Close()
	})

	return NewHandlers(sess, store, cfg), store, cfg
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func createConversation(t *testing.T, h *Handlers, p string) string {
	t.Helper()
	result, err := h.HandleConversationCreate(context.Background(), makeRequest(map[string]any{"persona": p}))
	require.NoError(t, err)
	out := parseOutput(t, result)
	return out["conversation"].(map[string]any)["id"].(string)
}

func TestHandleConversationCreate(t *testing.T) {
	h, _, _ := testSetup(t, stubGenerator{noCred: true})
	ctx := context.Background()

	t.Run("legal", func(t *testing.T) {
		result, err := h.HandleConversationCreate(ctx, makeRequest(map[string]any{"persona": "legal", "title": "سرقة"}))
		require.NoError(t, err)
		out := parseOutput(t, result)

		conv := out["conversation"].(map[string]any)
		require.Equal(t, "legal", conv["persona"])
		require.Equal(t, "سرقة", conv["title"])
		require.Equal(t, false, conv["locked"])

		intake := out["intake"].(map[string]any)
		require.Equal(t, persona.Legal.IntakeMessage(), intake["content"])
		require.Equal(t, conv["id"], h.sess.State().Selected)
	})

	t.Run("unknown persona", func(t *testing.T) {
		result, err := h.HandleConversationCreate(ctx, makeRequest(map[string]any{"persona": "poet"}))
		require.NoError(t, err)
		assertErrorCode(t, result, string(errors.ErrInvalidRequest))
	})

	t.Run("bad argument type", func(t *testing.T) {
		result, err := h.HandleConversationCreate(ctx, makeRequest(map[string]any{"persona": 42}))
		require.NoError(t, err)
		errObj := errorObject(t, result)
		require.Equal(t, string(errors.ErrInvalidRequest), errObj["code"])
		require.Equal(t, "persona must be a string", errObj["message"])
	})
}

func TestHandleConversationList(t *testing.T) {
	h, _, _ := testSetup(t, stubGenerator{noCred: true})
	ctx := context.Background()
	for range 3 {
		createConversation(t, h, "general")
	}

	result, err := h.HandleConversationList(ctx, makeRequest(map[string]any{"limit": 2}))
	require.NoError(t, err)
	out := parseOutput(t, result)
	require.Len(t, out["items"], 2)

	page := out["pagination"].(map[string]any)
	require.Equal(t, true, page["has_more"])
	require.Equal(t, float64(3), page["total"])
	require.Equal(t, "updated_at_desc", out["sort"])
}

func TestHandleConversationSetPersona(t *testing.T) {
	h, _, _ := testSetup(t, stubGenerator{noCred: true})
	ctx := context.Background()
	id := createConversation(t, h, "general")

	result, err := h.HandleConversationSetPersona(ctx, makeRequest(map[string]any{"id": id, "persona": "fake_news"}))
	require.NoError(t, err)
	require.Equal(t, "fake_news", parseOutput(t, result)["persona"])

	result, err = h.HandleMessageSend(ctx, makeRequest(map[string]any{"conversation_id": id, "content": "خبر"}))
	require.NoError(t, err)
	parseOutput(t, result)

	result, err = h.HandleConversationSetPersona(ctx, makeRequest(map[string]any{"id": id, "persona": "legal"}))
	require.NoError(t, err)
	assertErrorCode(t, result, string(errors.ErrPersonaLocked))
}

func TestHandleMessageSend(t *testing.T) {
	ctx := context.Background()

	t.Run("reply stored", func(t *testing.T) {
		h, store, _ := testSetup(t, stubGenerator{})
		id := createConversation(t, h, "legal")

		result, err := h.HandleMessageSend(ctx, makeRequest(map[string]any{"conversation_id": id, "content": "سرقت سيارتي"}))
		require.NoError(t, err)
		out := parseOutput(t, result)
		require.Equal(t, "سرقت سيارتي", out["message"].(map[string]any)["content"])
		require.NotNil(t, out["reply"])
		require.NotContains(t, out, "feedback")

		msgs, err := store.ListMessages(ctx, id)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
	})

	t.Run("missing credential returns feedback", func(t *testing.T) {
		h, _, _ := testSetup(t, stubGenerator{noCred: true})
		id := createConversation(t, h, "legal")

		result, err := h.HandleMessageSend(ctx, makeRequest(map[string]any{"conversation_id": id, "content": "x"}))
		require.NoError(t, err)
		out := parseOutput(t, result)
		require.Equal(t, session.FeedbackNoCredential, out["feedback"])
		require.NotContains(t, out, "reply")
	})

	t.Run("attachment only", func(t *testing.T) {
		h, _, _ := testSetup(t, stubGenerator{noCred: true})
		id := createConversation(t, h, "legal")

		result, err := h.HandleMessageSend(ctx, makeRequest(map[string]any{
			"conversation_id": id,
			"attachment":      map[string]any{"url": "https://files.example/a.pdf", "name": "a.pdf", "content_type": "application/pdf"},
		}))
		require.NoError(t, err)
		msg := parseOutput(t, result)["message"].(map[string]any)
		require.Equal(t, "a.pdf", msg["attachment"].(map[string]any)["name"])
	})

	t.Run("empty message", func(t *testing.T) {
		h, _, _ := testSetup(t, stubGenerator{noCred: true})
		id := createConversation(t, h, "legal")

		result, err := h.HandleMessageSend(ctx, makeRequest(map[string]any{"conversation_id": id}))
		require.NoError(t, err)
		assertErrorCode(t, result, string(errors.ErrInvalidRequest))
	})

	t.Run("unknown conversation", func(t *testing.T) {
		h, _, _ := testSetup(t, stubGenerator{noCred: true})

		result, err := h.HandleMessageSend(ctx, makeRequest(map[string]any{"conversation_id": "missing", "content": "x"}))
		require.NoError(t, err)
		assertErrorCode(t, result, string(errors.ErrNotFound))
	})
}

func TestHandleMessageList(t *testing.T) {
	h, _, _ := testSetup(t, stubGenerator{noCred: true})
	id := createConversation(t, h, "legal")

	result, err := h.HandleMessageList(context.Background(), makeRequest(map[string]any{"conversation_id": id}))
	require.NoError(t, err)
	items := parseOutput(t, result)["items"].([]any)
	require.Len(t, items, 1)
	require.Equal(t, "assistant", items[0].(map[string]any)["type"])
}

// Generate a draft, save it as final and read the report back.
func TestDraftAndReportFlow(t *testing.T) {
	h, store, cfg := testSetup(t, stubGenerator{})
	ctx := context.Background()
	id := createConversation(t, h, "legal")

	result, err := h.HandleMessageSend(ctx, makeRequest(map[string]any{"conversation_id": id, "content": "سرقت سيارتي"}))
	require.NoError(t, err)
	parseOutput(t, result)

	result, err = h.HandleDraftGenerate(ctx, makeRequest(map[string]any{"conversation_id": id}))
	require.NoError(t, err)
	require.Equal(t, testDraft, parseOutput(t, result)["draft"])

	result, err = h.HandleDraftGet(ctx, makeRequest(map[string]any{"conversation_id": id}))
	require.NoError(t, err)
	require.Equal(t, testDraft, parseOutput(t, result)["draft"])

	result, err = h.HandleReportSave(ctx, makeRequest(map[string]any{"conversation_id": id, "status": "final"}))
	require.NoError(t, err)
	out := parseOutput(t, result)
	require.Equal(t, true, out["saved"])
	require.Equal(t, true, out["created"])
	require.Equal(t, "55/2025", out["caseNumber"])

	conv, err := store.GetConversation(ctx, id)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(conv.Title, "55/2025"))

	result, err = h.HandleReportFetch(ctx, makeRequest(map[string]any{"id": id}))
	require.NoError(t, err)
	rep := parseOutput(t, result)
	require.Equal(t, "final", rep["status"])
	require.Equal(t, "محضر سرقة سيارة", rep["title"])

	result, err = h.HandleReportList(ctx, makeRequest(map[string]any{"status": "draft"}))
	require.NoError(t, err)
	require.Empty(t, parseOutput(t, result)["items"])

	result, err = h.HandleReportDisplay(ctx, makeRequest(map[string]any{"id": id, "format": "html"}))
	require.NoError(t, err)
	shown := parseOutput(t, result)
	require.Equal(t, "html", shown["format"])
	require.Contains(t, shown["content"], "<table>")

	path := filepath.Join(t.TempDir(), "report.md")
	result, err = h.HandleReportExport(ctx, makeRequest(map[string]any{"id": id, "path": path, "raw": true}))
	require.NoError(t, err)
	exported := parseOutput(t, result)
	require.Equal(t, path, exported["path"])
	require.Equal(t, float64(len(testDraft)), exported["bytes"])
	require.True(t, cfg.AllowUnsafePaths)
}

func TestHandleDraftSet(t *testing.T) {
	h, _, _ := testSetup(t, stubGenerator{noCred: true})
	ctx := context.Background()
	id := createConversation(t, h, "legal")

	result, err := h.HandleDraftSet(ctx, makeRequest(map[string]any{"conversation_id": id, "draft": "## الأطراف\n- المبلغ: سالم\n"}))
	require.NoError(t, err)
	parseOutput(t, result)
	require.Eventually(t, func() bool {
		return h.sess.Draft(id) != ""
	}, time.Second, 5*time.Millisecond)

	result, err = h.HandleDraftSet(ctx, makeRequest(map[string]any{"conversation_id": "missing", "draft": "x"}))
	require.NoError(t, err)
	assertErrorCode(t, result, string(errors.ErrNotFound))
}

func TestHandleReportSave(t *testing.T) {
	ctx := context.Background()

	t.Run("empty draft saves nothing", func(t *testing.T) {
		h, store, _ := testSetup(t, stubGenerator{noCred: true})
		id := createConversation(t, h, "legal")

		result, err := h.HandleReportSave(ctx, makeRequest(map[string]any{"conversation_id": id}))
		require.NoError(t, err)
		require.Equal(t, false, parseOutput(t, result)["saved"])

		_, err = store.GetReport(ctx, id)
		require.True(t, errors.Is(err, errors.ErrNotFound))
	})

	t.Run("draft argument replaces live draft", func(t *testing.T) {
		h, _, _ := testSetup(t, stubGenerator{noCred: true})
		id := createConversation(t, h, "legal")

		result, err := h.HandleReportSave(ctx, makeRequest(map[string]any{"conversation_id": id, "draft": testDraft}))
		require.NoError(t, err)
		out := parseOutput(t, result)
		require.Equal(t, true, out["saved"])
		require.Equal(t, "draft", out["report"].(map[string]any)["status"])
	})

	t.Run("invalid status", func(t *testing.T) {
		h, _, _ := testSetup(t, stubGenerator{noCred: true})
		id := createConversation(t, h, "legal")

		result, err := h.HandleReportSave(ctx, makeRequest(map[string]any{"conversation_id": id, "status": "archived", "draft": testDraft}))
		require.NoError(t, err)
		assertErrorCode(t, result, string(errors.ErrInvalidRequest))
	})

	t.Run("missing id", func(t *testing.T) {
		h, _, _ := testSetup(t, stubGenerator{noCred: true})

		result, err := h.HandleReportSave(ctx, makeRequest(map[string]any{}))
		require.NoError(t, err)
		assertErrorCode(t, result, string(errors.ErrInvalidRequest))
	})
}

func TestHandleConversationRenameAndDelete(t *testing.T) {
	h, store, _ := testSetup(t, stubGenerator{noCred: true})
	ctx := context.Background()
	id := createConversation(t, h, "legal")

	result, err := h.HandleConversationRename(ctx, makeRequest(map[string]any{"id": id, "title": "بلاغ"}))
	require.NoError(t, err)
	require.Equal(t, "بلاغ", parseOutput(t, result)["title"])

	result, err = h.HandleConversationDelete(ctx, makeRequest(map[string]any{"id": id}))
	require.NoError(t, err)
	out := parseOutput(t, result)
	require.Equal(t, true, out["deleted"])
	require.Equal(t, float64(1), out["messages_deleted"])

	_, err = store.GetConversation(ctx, id)
	require.True(t, errors.Is(err, errors.ErrNotFound))

	result, err = h.HandleReportFetch(ctx, makeRequest(map[string]any{"id": id}))
	require.NoError(t, err)
	assertErrorCode(t, result, string(errors.ErrNotFound))
}

func TestServerRegistration(t *testing.T) {
	h, store, cfg := testSetup(t, stubGenerator{noCred: true})

	s := NewServer(h.sess, store, cfg, "test")
	tools := s.ListTools()
	require.NotNil(t, tools)

	expectedTools := []string{
		"conversation_create",
		"conversation_list",
		"conversation_rename",
		"conversation_delete",
		"conversation_set_persona",
		"message_send",
		"message_list",
		"draft_generate",
		"draft_get",
		"draft_set",
		"report_save",
		"report_fetch",
		"report_list",
		"report_display",
		"report_export",
	}

	require.Len(t, tools, len(expectedTools))
	for _, name := range expectedTools {
		require.Contains(t, tools, name)
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	h, store, cfg := testSetup(t, stubGenerator{noCred: true})

	cfg.DisabledTools = []string{"conversation_delete", "report_export", "report_export"}
	tools := NewServer(h.sess, store, cfg, "test").ListTools()

	require.Len(t, tools, 13)
	require.NotContains(t, tools, "conversation_delete")
	require.NotContains(t, tools, "report_export")
	require.Contains(t, tools, "conversation_create")
}

func TestServerRegistration_WithDisabledTypes(t *testing.T) {
	h, store, cfg := testSetup(t, stubGenerator{noCred: true})

	cfg.DisabledTypes = []string{"draft", "report"}
	tools := NewServer(h.sess, store, cfg, "test").ListTools()

	require.Len(t, tools, 7)
	for name := range tools {
		require.NotEqual(t, "draft", GetTypeForTool(name))
		require.NotEqual(t, "report", GetTypeForTool(name))
	}
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	h, store, cfg := testSetup(t, stubGenerator{noCred: true})

	cfg.DisabledTools = AllToolNames()
	require.Empty(t, NewServer(h.sess, store, cfg, "test").ListTools())
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{name: "all valid", input: []string{"report_export", "conversation_delete"}, wantLen: 0},
		{name: "one unknown", input: []string{"report_export", "fake_tool"}, wantLen: 1},
		{name: "all unknown", input: []string{"foo", "bar", "baz"}, wantLen: 3},
		{name: "empty list", input: []string{}, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Len(t, ValidateDisabledTools(tt.input), tt.wantLen)
		})
	}
}

func TestValidateDisabledTypes(t *testing.T) {
	require.Empty(t, ValidateDisabledTypes([]string{"conversation", "report"}))
	require.Equal(t, []string{"widget"}, ValidateDisabledTypes([]string{"draft", "widget"}))
}

func TestGetTypeForTool(t *testing.T) {
	require.Equal(t, "conversation", GetTypeForTool("conversation_set_persona"))
	require.Equal(t, "report", GetTypeForTool("report_save"))
	require.Equal(t, "", GetTypeForTool("store"))
	require.Equal(t, "", GetTypeForTool("_x"))
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	require.Len(t, names, 15)
	require.IsIncreasing(t, names)
	require.Empty(t, ValidateDisabledTools(names))
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("sql error: open /tmp/secret.db: permission denied")))
	require.True(t, r.IsError)

	errObj := errorObject(t, r)
	require.Equal(t, string(errors.ErrInternal), errObj["code"])
	require.Equal(t, "an internal error occurred", errObj["message"])
	require.NotContains(t, errObj, "details")

	wrapped := errorObject(t, errorResult(fmt.Errorf("save report: %w", errors.NewInternal(os.ErrPermission))))
	require.Equal(t, "an internal error occurred", wrapped["message"])
}

func TestErrorResult_WrappedErrorPreservesContext(t *testing.T) {
	wrapped := fmt.Errorf("delete messages: %w", errors.NewNotFound("conversation", "c1"))

	errObj := errorObject(t, errorResult(wrapped))
	require.Equal(t, string(errors.ErrNotFound), errObj["code"])
	require.Contains(t, errObj["message"], "delete messages")
}

func TestErrorResult_NonInternalIncludesDetails(t *testing.T) {
	errObj := errorObject(t, errorResult(errors.NewMirrorFailed("c1", fmt.Errorf("disk full"))))
	require.Equal(t, string(errors.ErrMirrorFailed), errObj["code"])
	require.Equal(t, "c1", errObj["details"].(map[string]any)["report_id"])
}

func TestErrorResult_PlainError(t *testing.T) {
	errObj := errorObject(t, errorResult(fmt.Errorf("boom")))
	require.Equal(t, string(errors.ErrInternal), errObj["code"])
	require.Equal(t, "an internal error occurred", errObj["message"])
}

// Helper functions

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.False(t, result.IsError, "expected success, got error: %s", extractErrorMessage(result))

	var output map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output))
	return output
}

func errorObject(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.True(t, result.IsError)
	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is not TextContent")

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &payload))
	errObj, ok := payload["error"].(map[string]any)
	require.True(t, ok, "no error object in payload")
	return errObj
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()
	require.Equal(t, expectedCode, errorObject(t, result)["code"])
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}
	return text.Text
}
