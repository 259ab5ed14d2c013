package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory when no --config
// flag is given.
const DefaultConfigFile = "lumen.yml"

// Config holds the CLI settings read from lumen.yml.
type Config struct {
	Path string     `yaml:"-"`
	REPL REPLConfig `yaml:"repl"`
	Run  RunConfig  `yaml:"run"`
}

// REPLConfig configures the interactive prompt.
type REPLConfig struct {
	Prompt      string `yaml:"prompt"`
	HistoryFile string `yaml:"history_file"`
}

// RunConfig configures the run and exec commands.
type RunConfig struct {
	PrintResult bool `yaml:"print_result"`
	MaxErrors   int  `yaml:"max_errors"`
}

// ConfigError aggregates config validation failures.
type ConfigError struct {
	Path   string
	Issues []string
}

func (e *ConfigError) Error() string {
	if len(e.Issues) == 0 {
		return "config: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("config validation failed")
	if e.Path != "" {
		b.WriteString(" for ")
		b.WriteString(e.Path)
	}
	b.WriteString(":")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// DefaultConfig returns the settings used when no config file exists.
func DefaultConfig() *Config {
	history := ""
	if home, err := os.UserHomeDir(); err == nil {
		history = filepath.Join(home, ".lumen_history")
	}
	return &Config{
		REPL: REPLConfig{Prompt: "lumen> ", HistoryFile: history},
		Run:  RunConfig{MaxErrors: 20},
	}
}

// LoadConfig reads the config at path. An empty path falls back to
// DefaultConfigFile, whose absence is not an error.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	file, err := os.Open(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer file.Close()
	return decodeConfig(file, path)
}

func decodeConfig(r io.Reader, path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Path = path

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.REPL.HistoryFile = expandHome(cfg.REPL.HistoryFile)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	errs := &ConfigError{Path: c.Path}
	if strings.TrimSpace(c.REPL.Prompt) == "" {
		errs.Issues = append(errs.Issues, "repl.prompt must not be empty")
	}
	if strings.ContainsAny(c.REPL.Prompt, "\r\n") {
		errs.Issues = append(errs.Issues, "repl.prompt must be a single line")
	}
	if c.Run.MaxErrors < 0 {
		errs.Issues = append(errs.Issues, fmt.Sprintf("run.max_errors must be >= 0, got %d", c.Run.MaxErrors))
	}
	if len(errs.Issues) > 0 {
		return errs
	}
	return nil
}

// expandHome resolves a leading "~/" against the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
