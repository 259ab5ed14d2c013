package main

import (
	"errors"
	"fmt"
	"io"
	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/lexer"
	"lumen/internal/parser"
	"lumen/internal/runtime"
	"lumen/internal/span"
	"os"
	"strings"

	"github.com/chzyer/readline"
)

// ---- ANSI colors ----

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// ---- repl command ----

func cmdRepl(cfg *Config) int {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            colorGreen + cfg.REPL.Prompt + colorReset,
		HistoryFile:       cfg.REPL.HistoryFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline init failed: %v\n", err)
		return exitFailure
	}
	defer rl.Close()

	fmt.Fprintf(rl.Stdout(), "%s%slumen REPL%s %s(type 'exit' or Ctrl+D to quit, ':env' and ':ast <expr>' to inspect)%s\n\n",
		colorBold, colorCyan, colorReset, colorGray, colorReset)

	session := newSession(rl.Stdout(), rl.Stderr())
	continuation := strings.Repeat(".", len(strings.TrimRight(cfg.REPL.Prompt, " "))) + " "
	var accumulated strings.Builder
	depth := 0

	for {
		if depth > 0 {
			rl.SetPrompt(colorGray + continuation + colorReset)
		} else {
			rl.SetPrompt(colorGreen + cfg.REPL.Prompt + colorReset)
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if depth > 0 {
					accumulated.Reset()
					depth = 0
					continue
				}
				fmt.Fprintf(rl.Stdout(), "\n%s(use 'exit' or Ctrl+D to quit)%s\n", colorGray, colorReset)
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(rl.Stdout())
			}
			break
		}

		if depth == 0 {
			trimmed := strings.TrimSpace(line)
			if trimmed == "exit" {
				break
			}
			if strings.HasPrefix(trimmed, ":") {
				session.meta(trimmed)
				continue
			}
		}

		// Keep reading while brackets are open.
		depth += nesting(line)
		accumulated.WriteString(line)
		accumulated.WriteString("\n")
		if depth > 0 {
			continue
		}
		depth = 0

		source := accumulated.String()
		accumulated.Reset()
		session.eval(source)
	}
	return exitOK
}

// session is one REPL's interpreter state. Globals persist across inputs.
type session struct {
	interp   *runtime.Interpreter
	builtins map[string]bool
	out      io.Writer
	errOut   io.Writer
}

func newSession(out, errOut io.Writer) *session {
	interp := runtime.NewInterpreter(out)
	builtins := make(map[string]bool)
	for _, name := range interp.Env().Names() {
		builtins[name] = true
	}
	return &session{interp: interp, builtins: builtins, out: out, errOut: errOut}
}

// eval runs one complete input and echoes its value unless it is undefined.
func (s *session) eval(source string) {
	if strings.TrimSpace(source) == "" {
		return
	}

	prog, diags := compile(source, "<repl>")
	if len(diags) > 0 {
		printDiagsColored(s.errOut, diags)
		return
	}

	result, err := s.interp.Run(prog)
	if err != nil {
		fmt.Fprintf(s.errOut, "%serror: %s%s\n", colorRed, err, colorReset)
		return
	}
	if result != nil && result.Kind() != runtime.KindUndefined {
		fmt.Fprintf(s.out, "%s%s%s\n", colorYellow, result, colorReset)
	}
}

// meta handles ':'-prefixed inspection commands.
func (s *session) meta(input string) {
	command, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch command {
	case ":env":
		s.printEnv()
	case ":ast":
		if arg == "" {
			fmt.Fprintf(s.errOut, "%susage: :ast <expr>%s\n", colorRed, colorReset)
			return
		}
		s.printAST(arg)
	default:
		fmt.Fprintf(s.errOut, "%sunknown command '%s'%s\n", colorRed, command, colorReset)
	}
}

// printEnv lists the globals declared in this session, skipping built-ins.
func (s *session) printEnv() {
	env := s.interp.Env()
	for _, name := range env.Names() {
		if s.builtins[name] {
			continue
		}
		v, err := env.LookupVar(name, span.Span{})
		if err != nil {
			continue
		}
		fmt.Fprintf(s.out, "%s%s%s = %s\n", colorCyan, name, colorReset, v)
	}
}

func (s *session) printAST(source string) {
	tokens, diags := lexer.New(source, "<repl>").Tokenize()
	if len(diags) > 0 {
		printDiagsColored(s.errOut, diags)
		return
	}
	expr, diags := parser.New(tokens).ParseExpression()
	if len(diags) > 0 {
		printDiagsColored(s.errOut, diags)
		return
	}
	if err := writeJSON(s.out, ast.NodeToMap(expr)); err != nil {
		fmt.Fprintf(s.errOut, "%serror: %v%s\n", colorRed, err, colorReset)
	}
}

// nesting returns how many brackets line opens minus how many it closes.
// Brackets inside string literals and after a line comment are ignored.
func nesting(line string) int {
	depth := 0
	var quote rune
	escaped := false
	prev := rune(0)
	for _, ch := range line {
		switch {
		case quote != 0:
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == quote:
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '/' && prev == '/':
			return depth
		case ch == '{' || ch == '(' || ch == '[':
			depth++
		case ch == '}' || ch == ')' || ch == ']':
			depth--
		}
		prev = ch
	}
	return depth
}

// printDiagsColored prints diagnostics with red color for REPL display.
func printDiagsColored(w io.Writer, diags []diag.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintf(w, "%s%s%s\n", colorRed, d.String(), colorReset)
	}
}
