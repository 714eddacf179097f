package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dynsql/internal/cli/output"
	"github.com/leapstack-labs/dynsql/internal/engine"
)

const (
	replPrompt         = "dynsql> "
	replContinuePrompt = "   ...> "
	replHistoryFile    = ".dynsql_history"
)

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	opts := &TemplateOptions{}

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactively render (and optionally execute) templates",
		Long: `Start an interactive session. Each template is rendered with the session
parameters and printed with its arguments. Templates may span lines and end
with a semicolon.

Session parameters start from the params file and --set values and can be
changed with .set and .unset. Use .exec on to execute rendered statements
against the target database.`,
		Example: `  # Start a session with a parameter preset
  dynsql repl --set tenant=acme`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd, opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Set, "set", "s", nil, "Set a parameter as key=value (value is parsed as YAML)")
	return cmd
}

func runREPL(cmd *cobra.Command, opts *TemplateOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	params, err := cmdCtx.params(opts.Set)
	if err != nil {
		return err
	}

	// The session always prints text, whatever the output setting.
	r := output.NewRendererWithTTY(cmd.OutOrStdout(), cmd.ErrOrStderr(), true, output.ModeText)
	session := newREPLSession(cmd.Context(), cmdCtx.Engine, r, params)

	var historyFile string
	if cmdCtx.Cfg.ProjectRoot != "" {
		historyFile = filepath.Join(cmdCtx.Cfg.ProjectRoot, replHistoryFile)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    newREPLCompleter(session),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	r.Printf("dynsql REPL (env: %s, target: %s)\n", cmdCtx.Engine.Environment(), cmdCtx.Engine.Target().Type)
	r.Println("Type .help for commands, .quit to exit")
	r.Println()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			session.reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		if session.Feed(line) {
			break
		}
		if session.Pending() {
			rl.SetPrompt(replContinuePrompt)
		} else {
			rl.SetPrompt(replPrompt)
		}
	}

	return nil
}

// replSession holds the state of an interactive session: parameters, the
// partially typed template and whether statements are executed.
type replSession struct {
	ctx    context.Context
	eng    *engine.Engine
	r      *output.Renderer
	params map[string]any
	exec   bool
	buf    strings.Builder
}

func newREPLSession(ctx context.Context, eng *engine.Engine, r *output.Renderer, params map[string]any) *replSession {
	if params == nil {
		params = make(map[string]any)
	}
	return &replSession{ctx: ctx, eng: eng, r: r, params: params}
}

func (s *replSession) reset() { s.buf.Reset() }

// Pending reports whether a template is waiting for its terminating semicolon.
func (s *replSession) Pending() bool { return s.buf.Len() > 0 }

// Feed processes one input line and reports whether the session should end.
func (s *replSession) Feed(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if !s.Pending() && strings.HasPrefix(line, ".") {
		return s.dotCommand(line)
	}

	// Accumulate multi-line templates until semicolon
	s.buf.WriteString(line)
	if !strings.HasSuffix(line, ";") {
		s.buf.WriteString("\n")
		return false
	}

	src := strings.TrimSuffix(s.buf.String(), ";")
	s.buf.Reset()

	if err := s.run(src); err != nil {
		s.r.Warnf("Error: %v", err)
	}
	s.r.Println()
	return false
}

func (s *replSession) run(src string) error {
	stmt, err := s.eng.Render(src, s.params)
	if err != nil {
		return err
	}
	return s.emit(stmt)
}

func (s *replSession) emit(stmt *engine.Statement) error {
	writeStatement(s.r.Writer(), stmt)
	if !s.exec {
		return nil
	}
	if returnsRows(stmt.SQL) {
		return runQuery(s.ctx, s.eng, s.r, stmt)
	}
	return runStatement(s.ctx, s.eng, s.r, stmt)
}

func (s *replSession) dotCommand(line string) bool {
	command, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(command) {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(s.r.Writer())

	case ".set":
		sets, err := ParseSets([]string{rest})
		if err != nil {
			s.r.Warnf("Usage: .set <key>=<value>")
			return false
		}
		maps.Copy(s.params, sets)

	case ".unset":
		if rest == "" {
			s.r.Warnf("Usage: .unset <key>")
			return false
		}
		delete(s.params, rest)

	case ".params":
		if len(s.params) == 0 {
			s.r.Println("(no parameters)")
			return false
		}
		for _, k := range slices.Sorted(maps.Keys(s.params)) {
			s.r.Printf("%s = %s\n", k, literal(s.params[k]))
		}

	case ".macros":
		for _, name := range s.eng.Macros().Names() {
			s.r.Println(name)
		}

	case ".macro":
		if rest == "" {
			s.r.Warnf("Usage: .macro <name>")
			return false
		}
		stmt, err := s.eng.RenderMacro(rest, s.params)
		if err == nil {
			err = s.emit(stmt)
		}
		if err != nil {
			s.r.Warnf("Error: %v", err)
		}

	case ".rules":
		s.r.Println(strings.Join(s.eng.Dynamic().Rules().Names(), " "))

	case ".exec":
		switch strings.ToLower(rest) {
		case "on":
			s.exec = true
		case "off":
			s.exec = false
		default:
			s.r.Warnf("Usage: .exec on|off")
			return false
		}
		s.r.Printf("execution %s\n", strings.ToLower(rest))

	default:
		s.r.Warnf("Unknown command: %s (type .help for commands)", command)
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help              Show this help message
  .set <key>=<val>   Set a parameter (value is parsed as YAML)
  .unset <key>       Remove a parameter
  .params            Show the session parameters
  .macros            List macros
  .macro <name>      Render a macro
  .rules             List rule names
  .exec on|off       Execute rendered statements on the target
  .quit / .exit      Exit the REPL

Tips:
  - Templates must end with a semicolon (;)
  - Use arrow keys to navigate history
  - Tab completion works for commands and macro names
`
	_, _ = fmt.Fprintln(w, help)
}

// newREPLCompleter completes dot-commands, macro names and parameter names.
func newREPLCompleter(s *replSession) *readline.PrefixCompleter {
	macroNames := func(string) []string { return s.eng.Macros().Names() }

	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".set"),
		readline.PcItem(".unset", readline.PcItemDynamic(func(string) []string {
			return slices.Sorted(maps.Keys(s.params))
		})),
		readline.PcItem(".params"),
		readline.PcItem(".macros"),
		readline.PcItem(".macro", readline.PcItemDynamic(macroNames)),
		readline.PcItem(".rules"),
		readline.PcItem(".exec", readline.PcItem("on"), readline.PcItem("off")),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}
