package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/hpungsan/mahader/internal/config"
	"github.com/hpungsan/mahader/internal/db"
	"github.com/hpungsan/mahader/internal/llm"
	"github.com/hpungsan/mahader/internal/mcp"
	"github.com/hpungsan/mahader/internal/session"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"new": true, "list": true, "rename": true, "delete": true, "persona": true,
	"send": true, "messages": true, "draft": true, "save": true,
	"report": true, "reports": true, "export": true, "serve": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v"
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a short banner when run interactively without args.
func printBanner() {
	fmt.Println(`
  mahader · محاضر

  Incident reports drafted from conversations.

  Usage: mahader <command> [options]
         mahader --help

  MCP server mode requires piped input.`)
}

// baseDir returns MAHADER_HOME or ~/.mahader.
func baseDir() (string, error) {
	if dir := os.Getenv("MAHADER_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".mahader"), nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Help and version need no store
	if isHelpOrVersion() {
		if err := newCLIApp(nil).Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	dir, err := baseDir()
	if err != nil {
		fatal("%v", err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		fatal("failed to load config: %v", err)
	}
	config.ApplyEnv(cfg)
	logger := config.NewLogger(os.Stderr, cfg.LogLevel)
	warnUnknownDisabled(logger, cfg)

	store, err := db.Open(dir)
	if err != nil {
		fatal("failed to initialize database: %v", err)
	}
	defer store.Close()
	db.ConfigurePool(store.DB(), cfg)

	gen, err := llm.New(cfg)
	if err != nil {
		fatal("%v", err)
	}
	if !gen.HasCredential() {
		logger.Debug("no api_key configured; replies and drafts are disabled")
	}

	e := &env{store: store, cfg: cfg, gen: gen, logger: logger}

	if isCLIMode() {
		if err := newCLIApp(e).Run(os.Args); err != nil {
			exitWith(err)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'mahader --help' for usage.\n")
		os.Exit(1)
	}

	sess := session.New(store, gen, cfg, logger)
	if err := sess.Start(); err != nil {
		fatal("%v", err)
	}
	defer sess.Close()

	if err := mcp.Run(sess, store, cfg, Version); err != nil {
		fatal("%v", err)
	}
}

func warnUnknownDisabled(logger *log.Logger, cfg *config.Config) {
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("unknown tools in disabled_tools", "names", unknown)
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		logger.Warn("unknown types in disabled_types", "names", unknown)
	}
}
