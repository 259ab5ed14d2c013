package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-test/deep"
)

func TestDecodeConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	src := `
repl:
  prompt: "lm> "
  history_file: ~/.lm_history
run:
  print_result: true
  max_errors: 5
`
	cfg, err := decodeConfig(strings.NewReader(src), "lumen.yml")
	if err != nil {
		t.Fatal(err)
	}
	want := &Config{
		Path: "lumen.yml",
		REPL: REPLConfig{Prompt: "lm> ", HistoryFile: filepath.Join(home, ".lm_history")},
		Run:  RunConfig{PrintResult: true, MaxErrors: 5},
	}
	if diff := deep.Equal(cfg, want); diff != nil {
		t.Error(diff)
	}
}

func TestDecodeConfigDefaults(t *testing.T) {
	t.Setenv("HOME", "/home/lumen")

	cfg, err := decodeConfig(strings.NewReader(""), "lumen.yml")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.REPL.Prompt != "lumen> " || cfg.Run.MaxErrors != 20 || cfg.Run.PrintResult {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.REPL.HistoryFile != "/home/lumen/.lumen_history" {
		t.Errorf("history file = %q", cfg.REPL.HistoryFile)
	}

	// Keys left out keep their defaults.
	cfg, err = decodeConfig(strings.NewReader("run:\n  print_result: true\n"), "lumen.yml")
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Run.PrintResult || cfg.Run.MaxErrors != 20 || cfg.REPL.Prompt != "lumen> " {
		t.Errorf("partial config lost defaults: %+v", cfg)
	}
}

func TestDecodeConfigValidation(t *testing.T) {
	src := "repl:\n  prompt: \"\"\nrun:\n  max_errors: -3\n"
	_, err := decodeConfig(strings.NewReader(src), "lumen.yml")

	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	want := []string{
		"repl.prompt must not be empty",
		"run.max_errors must be >= 0, got -3",
	}
	if diff := deep.Equal(cerr.Issues, want); diff != nil {
		t.Error(diff)
	}
	if !strings.HasPrefix(err.Error(), "config validation failed for lumen.yml:\n- ") {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestDecodeConfigRejectsUnknownFields(t *testing.T) {
	_, err := decodeConfig(strings.NewReader("repl:\n  colour: red\n"), "lumen.yml")
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
	if !strings.Contains(err.Error(), "config: parse lumen.yml") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	// No lumen.yml in the working directory.
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Path != "" {
		t.Errorf("defaults should have no path, got %q", cfg.Path)
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.yml")); err == nil {
		t.Error("expected error for a missing explicit config")
	}

	if err := os.WriteFile(DefaultConfigFile, []byte("repl:\n  prompt: \"% \"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Path != DefaultConfigFile || cfg.REPL.Prompt != "% " {
		t.Errorf("unexpected config: %+v", cfg)
	}
}
