// Command lumen is the CLI entry point for the lumen toolchain.
//
// Usage:
//
//	lumen tokens <file> [--json]      Print tokens
//	lumen parse  <file> [--yaml]      Print AST as JSON (or YAML)
//	lumen run    <file>               Run a source file
//	lumen exec   <ast.json|ast.yaml>  Run a serialized AST
//	lumen repl                        Start interactive REPL
//
// Every command accepts --config <path>; otherwise lumen.yml in the working
// directory is used when present.
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
	"os"
	"path/filepath"
	"strings"
)

// Process exit codes.
const (
	exitOK       = 0
	exitFailure  = 1 // usage, I/O, or front-end diagnostics
	exitRuntime  = 2
	exitThrown   = 3
	exitInternal = 70
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configPath string
	json       bool
	yaml       bool
	args       []string
}

func parseOptions(args []string) (options, error) {
	var opts options
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--json":
			opts.json = true
		case arg == "--yaml":
			opts.yaml = true
		case arg == "--config":
			if i+1 >= len(args) {
				return opts, errors.New("--config requires a path")
			}
			i++
			opts.configPath = args[i]
		case strings.HasPrefix(arg, "--config="):
			opts.configPath = strings.TrimPrefix(arg, "--config=")
		case strings.HasPrefix(arg, "--"):
			return opts, fmt.Errorf("unknown flag '%s'", arg)
		default:
			opts.args = append(opts.args, arg)
		}
	}
	return opts, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return exitFailure
	}

	command := args[0]
	opts, err := parseOptions(args[1:])
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}
	cfg, err := LoadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}

	switch command {
	case "repl":
		return cmdRepl(cfg)
	case "tokens", "parse", "run", "exec":
	default:
		fmt.Fprintf(stderr, "error: unknown command '%s'\n", command)
		usage(stderr)
		return exitFailure
	}

	if len(opts.args) < 1 {
		fmt.Fprintln(stderr, "error: missing file argument")
		return exitFailure
	}
	filename := opts.args[0]
	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(stderr, "error: cannot read file %s: %v\n", filename, err)
		return exitFailure
	}

	switch command {
	case "tokens":
		return cmdTokens(string(source), filename, opts.json, stdout, stderr)
	case "parse":
		return cmdParse(string(source), filename, opts.yaml, stdout, stderr)
	case "exec":
		return cmdExec(source, filename, cfg, stdout, stderr)
	default:
		return cmdRun(string(source), filename, cfg, stdout, stderr)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  lumen tokens <file> [--json]       Tokenize and print tokens")
	fmt.Fprintln(w, "  lumen parse  <file> [--yaml]       Parse and print AST (JSON or YAML)")
	fmt.Fprintln(w, "  lumen run    <file>                Run a source file")
	fmt.Fprintln(w, "  lumen exec   <ast.json|ast.yaml>   Run a serialized AST")
	fmt.Fprintln(w, "  lumen repl                         Start interactive REPL")
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  --config <path>                    Read settings from path instead of lumen.yml")
}

// ---- tokens command ----

func cmdTokens(source, filename string, jsonMode bool, stdout, stderr io.Writer) int {
	tokens, diags := lexer.New(source, filename).Tokenize()

	if jsonMode {
		out := map[string]interface{}{
			"tokens":      tokensToSlice(tokens),
			"diagnostics": diagsToSlice(diags),
		}
		if err := writeJSON(stdout, out); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitFailure
		}
	} else {
		printTokensText(stdout, tokens)
		printDiags(stderr, diags, 0)
	}

	if len(diags) > 0 {
		return exitFailure
	}
	return exitOK
}

// ---- parse command ----

func cmdParse(source, filename string, yamlMode bool, stdout, stderr io.Writer) int {
	tokens, lexDiags := lexer.New(source, filename).Tokenize()
	prog, parseDiags := parser.New(tokens).ParseProgram()
	allDiags := append(lexDiags, parseDiags...)

	out := map[string]interface{}{
		"ast":         ast.NodeToMap(prog),
		"diagnostics": diagsToSlice(allDiags),
	}
	write := writeJSON
	if yamlMode {
		write = writeYAML
	}
	if err := write(stdout, out); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}

	if len(allDiags) > 0 {
		return exitFailure
	}
	return exitOK
}

// ---- run command ----

func cmdRun(source, filename string, cfg *Config, stdout, stderr io.Writer) int {
	prog, diags := compile(source, filename)
	if len(diags) > 0 {
		printDiags(stderr, diags, cfg.Run.MaxErrors)
		return exitFailure
	}
	return execute(prog, cfg, stdout, stderr)
}

// compile lexes and parses source. Lexical errors stop before parsing.
func compile(source, filename string) (*ast.Program, []diag.Diagnostic) {
	tokens, lexDiags := lexer.New(source, filename).Tokenize()
	if len(lexDiags) > 0 {
		return nil, lexDiags
	}
	return parser.New(tokens).ParseProgram()
}

// ---- exec command ----

func cmdExec(data []byte, filename string, cfg *Config, stdout, stderr io.Writer) int {
	var (
		prog *ast.Program
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		prog, err = ast.DecodeYAML(data)
	default:
		prog, err = ast.DecodeJSON(data)
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %s: %v\n", filename, err)
		return exitFailure
	}
	return execute(prog, cfg, stdout, stderr)
}

func execute(prog *ast.Program, cfg *Config, stdout, stderr io.Writer) int {
	interp := runtime.NewInterpreter(stdout)
	result, err := interp.Run(prog)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitCode(err)
	}
	if cfg.Run.PrintResult && result != nil && result.Kind() != runtime.KindUndefined {
		fmt.Fprintln(stdout, result)
	}
	return exitOK
}

func exitCode(err error) int {
	switch runtime.Category(err) {
	case runtime.CategoryRuntime:
		return exitRuntime
	case runtime.CategoryThrown:
		return exitThrown
	default:
		return exitInternal
	}
}
