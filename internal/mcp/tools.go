package mcp

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions. Argument names match the request structs in handlers.go.

var conversationCreateToolDef = mcp.NewTool("conversation_create",
	mcp.WithDescription("Create a conversation. The persona's intake message is stored as the first assistant message and the new conversation is selected."),
	mcp.WithString("persona",
		mcp.Description("Assistant persona. Defaults to general."),
		mcp.Enum("legal", "fake_news", "general"),
	),
	mcp.WithString("title", mcp.Description("Base title. Defaults to a dated placeholder.")),
)

var conversationListToolDef = mcp.NewTool("conversation_list",
	mcp.WithDescription("List conversations, most recently updated first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)."), mcp.Min(1), mcp.Max(100)),
	mcp.WithNumber("offset", mcp.Description("Items to skip."), mcp.Min(0)),
)

var conversationRenameToolDef = mcp.NewTool("conversation_rename",
	mcp.WithDescription("Set the base title of a conversation. A detected case number stays as the title prefix."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Conversation id.")),
	mcp.WithString("title", mcp.Required(), mcp.Description("New base title.")),
)

var conversationDeleteToolDef = mcp.NewTool("conversation_delete",
	mcp.WithDescription("Delete a conversation with its messages and report."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Conversation id.")),
)

var conversationSetPersonaToolDef = mcp.NewTool("conversation_set_persona",
	mcp.WithDescription("Change the persona of a conversation. Fails with PERSONA_LOCKED after the first user message."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Conversation id.")),
	mcp.WithString("persona", mcp.Required(), mcp.Enum("legal", "fake_news", "general")),
)

var messageSendToolDef = mcp.NewTool("message_send",
	mcp.WithDescription("Send a user message and return the assistant's reply. The report draft is regenerated in the background."),
	mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation id.")),
	mcp.WithString("content", mcp.Description("Message text. Required unless an attachment is given.")),
	mcp.WithObject("attachment",
		mcp.Description("Uploaded file reference."),
		mcp.Properties(map[string]any{
			"url":          map[string]any{"type": "string"},
			"name":         map[string]any{"type": "string"},
			"content_type": map[string]any{"type": "string"},
			"size":         map[string]any{"type": "number"},
		}),
	),
)

var messageListToolDef = mcp.NewTool("message_list",
	mcp.WithDescription("List the messages of a conversation in order."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation id.")),
)

var draftGenerateToolDef = mcp.NewTool("draft_generate",
	mcp.WithDescription("Regenerate the report draft of a conversation now and return it."),
	mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation id.")),
)

var draftGetToolDef = mcp.NewTool("draft_get",
	mcp.WithDescription("Return the live, unsaved report draft of a conversation."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation id.")),
)

var draftSetToolDef = mcp.NewTool("draft_set",
	mcp.WithDescription("Replace the live report draft of a conversation with edited Markdown."),
	mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation id.")),
	mcp.WithString("draft", mcp.Required(), mcp.Description("Draft Markdown.")),
)

var reportSaveToolDef = mcp.NewTool("report_save",
	mcp.WithDescription("Save the live draft as the conversation's report. A case number found in the draft becomes the conversation title prefix."),
	mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation id.")),
	mcp.WithString("status", mcp.Description("Report status (default draft)."), mcp.Enum("draft", "final")),
	mcp.WithString("draft", mcp.Description("Replace the live draft before saving.")),
)

var reportFetchToolDef = mcp.NewTool("report_fetch",
	mcp.WithDescription("Fetch a saved report with its structured fields."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Report id (same as the conversation id).")),
)

var reportListToolDef = mcp.NewTool("report_list",
	mcp.WithDescription("List saved reports, most recently updated first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("status", mcp.Description("Only reports with this status."), mcp.Enum("draft", "final")),
)

var reportDisplayToolDef = mcp.NewTool("report_display",
	mcp.WithDescription("Render a saved report for display with localized labels."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Report id.")),
	mcp.WithString("format", mcp.Description("Output format (default markdown)."), mcp.Enum("markdown", "html")),
)

var reportExportToolDef = mcp.NewTool("report_export",
	mcp.WithDescription("Write a saved report to a file. Defaults to ~/.mahader/exports."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Report id.")),
	mcp.WithString("path", mcp.Description("Output file path (.md or .html).")),
	mcp.WithString("format", mcp.Description("Output format (default markdown)."), mcp.Enum("markdown", "html")),
	mcp.WithBoolean("raw", mcp.Description("Write the stored Markdown without display labels.")),
)
