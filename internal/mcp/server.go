package mcp

import (
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/mahader/internal/config"
	"github.com/hpungsan/mahader/internal/session"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"conversation", "message", "draft", "report"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"conversation_create": {
		def:     conversationCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleConversationCreate },
	},
	"conversation_list": {
		def:     conversationListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleConversationList },
	},
	"conversation_rename": {
		def:     conversationRenameToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleConversationRename },
	},
	"conversation_delete": {
		def:     conversationDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleConversationDelete },
	},
	"conversation_set_persona": {
		def:     conversationSetPersonaToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleConversationSetPersona },
	},
	"message_send": {
		def:     messageSendToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMessageSend },
	},
	"message_list": {
		def:     messageListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMessageList },
	},
	"draft_generate": {
		def:     draftGenerateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDraftGenerate },
	},
	"draft_get": {
		def:     draftGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDraftGet },
	},
	"draft_set": {
		def:     draftSetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDraftSet },
	},
	"report_save": {
		def:     reportSaveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReportSave },
	},
	"report_fetch": {
		def:     reportFetchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReportFetch },
	},
	"report_list": {
		def:     reportListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReportList },
	},
	"report_display": {
		def:     reportDisplayToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReportDisplay },
	},
	"report_export": {
		def:     reportExportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReportExport },
	},
}

// AllToolNames returns all valid tool names, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if !slices.Contains(KnownTypes, name) {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "report_save" → "report").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if slices.Contains(types, GetTypeForTool(name)) {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates an MCP server with the Mahader tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(sess *session.Session, store session.Store, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"mahader",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(sess, store, cfg)

	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(sess *session.Session, store session.Store, cfg *config.Config, version string) error {
	s := NewServer(sess, store, cfg, version)
	return server.ServeStdio(s)
}

