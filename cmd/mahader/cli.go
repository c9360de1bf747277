package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/mahader/internal/config"
	"github.com/hpungsan/mahader/internal/db"
	"github.com/hpungsan/mahader/internal/errors"
	"github.com/hpungsan/mahader/internal/llm"
	"github.com/hpungsan/mahader/internal/model"
	"github.com/hpungsan/mahader/internal/ops"
	"github.com/hpungsan/mahader/internal/session"
	"github.com/hpungsan/mahader/internal/title"
	"github.com/hpungsan/mahader/internal/web"
)

// maxInputBytes bounds drafts and messages read from stdin or a file.
const maxInputBytes = 1 << 20

// env holds what the commands run against.
type env struct {
	store  *db.Store
	cfg    *config.Config
	gen    llm.Generator
	logger *log.Logger
}

// newSession returns a session for commands that generate text. The caller
// closes it.
func (e *env) newSession() *session.Session {
	return session.New(e.store, e.gen, e.cfg, e.logger)
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(e *env) *cli.App {
	app := &cli.App{
		Name:    "mahader",
		Usage:   "Incident reports drafted from conversations",
		Version: Version,
		Commands: []*cli.Command{
			newCmd(e),
			listCmd(e),
			renameCmd(e),
			deleteCmd(e),
			personaCmd(e),
			sendCmd(e),
			messagesCmd(e),
			draftCmd(e),
			saveCmd(e),
			reportCmd(e),
			reportsCmd(e),
			exportCmd(e),
			serveCmd(e),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func newCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "new",
		Usage: "Create a conversation",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "persona", Aliases: []string{"p"}, Value: "general", Usage: "Persona: legal|fake_news|general"},
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Base title (defaults to \"" + title.Default + "\")"},
		},
		Action: func(c *cli.Context) error {
			out, err := ops.CreateConversation(c.Context, e.store, e.cfg, ops.CreateConversationInput{
				Persona:     c.String("persona"),
				CustomTitle: c.String("title"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, out)
		},
	}
}

func listCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List conversations, most recently updated first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			out, err := ops.ListConversations(c.Context, e.store, ops.ListConversationsInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, out)
		},
	}
}

func renameCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "rename",
		Usage:     "Set the base title of a conversation",
		ArgsUsage: "<id> <title>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return outputError(errors.NewInvalidRequest("usage: rename <id> <title>"))
			}
			out, err := ops.RenameConversation(c.Context, e.store, ops.RenameConversationInput{
				ID:    c.Args().First(),
				Title: strings.Join(c.Args().Tail(), " "),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, out)
		},
	}
}

func deleteCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a conversation with its messages and report",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			out, err := ops.DeleteConversation(c.Context, e.store, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, out)
		},
	}
}

func personaCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "persona",
		Usage:     "Change the persona of a conversation before its first user message",
		ArgsUsage: "<id> <legal|fake_news|general>",
		Action: func(c *cli.Context) error {
			out, err := ops.SetPersona(c.Context, e.store, ops.SetPersonaInput{
				ID:      c.Args().First(),
				Persona: c.Args().Get(1),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, out)
		},
	}
}

func sendCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Send a user message and print the assistant's reply (text may be piped via stdin)",
		ArgsUsage: "<id> [text]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "attachment-url", Usage: "Uploaded file URL"},
			&cli.StringFlag{Name: "attachment-name", Usage: "Uploaded file name"},
			&cli.StringFlag{Name: "attachment-type", Usage: "Uploaded file content type"},
		},
		Action: func(c *cli.Context) error {
			id := c.Args().First()
			text := strings.Join(c.Args().Tail(), " ")
			if text == "" && stdinHasData(c) {
				var err error
				if text, err = readInput(c.App.Reader, maxInputBytes); err != nil {
					return outputError(err)
				}
			}

			var att *model.Attachment
			if url := c.String("attachment-url"); url != "" {
				name := c.String("attachment-name")
				if name == "" {
					name = url[strings.LastIndex(url, "/")+1:]
				}
				att = &model.Attachment{URL: url, Name: name, ContentType: c.String("attachment-type")}
			}

			sess := e.newSession()
			defer sess.Close()
			out, err := sess.Send(c.Context, session.SendInput{ConversationID: id, Content: text, Attachment: att})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, out)
		},
	}
}

func messagesCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "messages",
		Usage:     "List the messages of a conversation",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			msgs, err := ops.ListMessages(c.Context, e.store, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, map[string]any{"items": msgs})
		},
	}
}

func draftCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "draft",
		Usage:     "Generate the report draft of a conversation and print it",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print as JSON"},
		},
		Action: func(c *cli.Context) error {
			id := c.Args().First()
			sess := e.newSession()
			defer sess.Close()

			draft, err := sess.GenerateDraft(c.Context, id)
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(c, map[string]any{"conversation_id": id, "draft": draft})
			}
			_, err = fmt.Fprint(c.App.Writer, ensureNewline(draft))
			return err
		},
	}
}

func saveCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "save",
		Usage:     "Save a report draft (from --file, --generate or stdin)",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Value: "draft", Usage: "Report status: draft|final"},
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Read the draft from a Markdown file"},
			&cli.BoolFlag{Name: "generate", Aliases: []string{"g"}, Usage: "Generate the draft from the conversation first"},
		},
		Action: func(c *cli.Context) error {
			id := c.Args().First()

			var draft string
			switch {
			case c.Bool("generate"):
				sess := e.newSession()
				defer sess.Close()
				generated, err := sess.GenerateDraft(c.Context, id)
				if err != nil {
					return outputError(err)
				}
				draft = generated
			case c.String("file") != "":
				f, err := os.Open(c.String("file"))
				if err != nil {
					return outputError(errors.NewInvalidRequest(fmt.Sprintf("cannot read draft file: %v", err)))
				}
				defer f.Close()
				if draft, err = readInput(f, maxInputBytes); err != nil {
					return outputError(err)
				}
			case stdinHasData(c):
				var err error
				if draft, err = readInput(c.App.Reader, maxInputBytes); err != nil {
					return outputError(err)
				}
			default:
				return outputError(errors.NewInvalidRequest("draft must come from --file, --generate or stdin"))
			}

			out, err := ops.SaveReport(c.Context, e.store, ops.SaveReportInput{
				ConversationID: id,
				Draft:          draft,
				Status:         c.String("status"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, out)
		},
	}
}

func reportCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "Print a saved report in its display form",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Value: ops.FormatMarkdown, Usage: "Output format: markdown|html"},
			&cli.BoolFlag{Name: "json", Usage: "Print the stored report as JSON"},
		},
		Action: func(c *cli.Context) error {
			id := c.Args().First()
			if c.Bool("json") {
				rep, err := ops.FetchReport(c.Context, e.store, id)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(c, rep)
			}

			out, err := ops.DisplayReport(c.Context, e.store, ops.DisplayReportInput{ID: id, Format: c.String("format")})
			if err != nil {
				return outputError(err)
			}
			_, err = fmt.Fprint(c.App.Writer, ensureNewline(out.Content))
			return err
		},
	}
}

func reportsCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "reports",
		Usage: "List saved reports",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "Filter by status: draft|final"},
		},
		Action: func(c *cli.Context) error {
			out, err := ops.ListReports(c.Context, e.store, ops.ListReportsInput{Status: c.String("status")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, out)
		},
	}
}

func exportCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write a saved report to a file",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Usage: "Output path (default: ~/.mahader/exports/<title>-<timestamp>.<ext>)"},
			&cli.StringFlag{Name: "format", Usage: "Output format: markdown|html (default: from path, else markdown)"},
			&cli.BoolFlag{Name: "raw", Usage: "Write the stored Markdown without display tables"},
		},
		Action: func(c *cli.Context) error {
			out, err := ops.ExportReport(c.Context, e.store, e.cfg, ops.ExportReportInput{
				ID:     c.Args().First(),
				Path:   c.String("path"),
				Format: c.String("format"),
				Raw:    c.Bool("raw"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, out)
		},
	}
}

func serveCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the read-only report viewer",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 8484, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv, err := web.NewServer(e.store, e.logger, Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return web.Run(c.Context, srv, e.logger)
		},
	}
}

// Helper functions

// outputJSON writes v to the app's writer as indented JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError turns err into an exit error whose message is the JSON error
// object. Internal details are not printed.
func outputError(err error) error {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = errors.NewInternal(err)
	}
	message := appErr.Message
	if appErr.Code == errors.ErrInternal {
		message = "an internal error occurred"
	}
	obj := map[string]any{
		"code":    appErr.Code,
		"message": message,
		"status":  appErr.Status,
	}
	if appErr.Code != errors.ErrInternal && appErr.Details != nil {
		obj["details"] = appErr.Details
	}
	b, _ := json.Marshal(map[string]any{"error": obj})
	return cli.Exit(string(b), 1)
}

// exitWith prints err to stderr and exits with its code.
func exitWith(err error) {
	code := 1
	var exitErr cli.ExitCoder
	if stderrors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(code)
}

// stdinHasData returns true if the app's input is piped (not a terminal).
func stdinHasData(c *cli.Context) bool {
	f, ok := c.App.Reader.(*os.File)
	if !ok {
		return c.App.Reader != nil
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readInput reads r up to limit bytes and trims surrounding whitespace.
func readInput(r io.Reader, limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if int64(len(data)) > limit {
		return "", errors.NewInvalidRequest(fmt.Sprintf("input exceeds %d bytes", limit))
	}
	return strings.TrimSpace(string(data)), nil
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
