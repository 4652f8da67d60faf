// Package config loads and validates the engine configuration.
//
// A config file is YAML (or JSON) or CUE. Whatever the source, the result
// is checked against the embedded CUE schema, and fields the file leaves
// out keep their defaults.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/inkwell/internal/document"
	"github.com/roach88/inkwell/internal/export"
	"github.com/roach88/inkwell/internal/stroke"
)

//go:embed schema.cue
var schemaCUE string

// Config is the engine configuration.
type Config struct {
	HistoryMaxLen int     `json:"history_max_len" yaml:"history_max_len"`
	Workers       int     `json:"workers" yaml:"workers"`
	RenderScale   float64 `json:"render_scale" yaml:"render_scale"`

	Document DocumentConfig `json:"document" yaml:"document"`
	Export   export.Options `json:"export" yaml:"export"`
	Log      LogConfig      `json:"log" yaml:"log"`
}

// DocumentConfig holds the settings of newly created documents.
type DocumentConfig struct {
	Format     document.Format `json:"format" yaml:"format"`
	Layout     document.Layout `json:"layout" yaml:"layout"`
	Background stroke.Color    `json:"background" yaml:"background"`
}

// LogConfig configures the CLI log handler.
type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

// SlogLevel maps Level to a slog level. Unknown names map to Info.
func (l LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HistoryMaxLen: 100,
		Workers:       0,
		RenderScale:   1,
		Document: DocumentConfig{
			Format:     document.DefaultFormat,
			Layout:     document.LayoutInfinite,
			Background: stroke.White,
		},
		Export: export.DefaultOptions(),
		Log:    LogConfig{Level: "info"},
	}
}

// NewDocument creates an empty document with the configured settings.
func (c Config) NewDocument(id string) *document.Document {
	doc := document.New(id, c.Document.Format, c.Document.Layout)
	doc.Background = c.Document.Background
	return doc
}

// Error is a configuration validation failure.
type Error struct {
	// Field is the dotted path of the offending field, if known.
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	loc := e.Field
	if e.Pos.IsValid() {
		loc = fmt.Sprintf("%s:%d:%d", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
		if e.Field != "" {
			loc += ": " + e.Field
		}
	}
	if loc == "" {
		return "config: " + e.Message
	}
	return fmt.Sprintf("config: %s: %s", loc, e.Message)
}

// schema compiles the embedded schema and returns the #Config definition.
func schema(ctx *cue.Context) (cue.Value, error) {
	v := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile config schema: %w", err)
	}
	return v.LookupPath(cue.ParsePath("#Config")), nil
}

// Validate checks cfg against the schema.
func Validate(cfg Config) error {
	ctx := cuecontext.New()
	def, err := schema(ctx)
	if err != nil {
		return err
	}
	v := def.Unify(ctx.Encode(cfg))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// ParseYAML reads YAML or JSON over the defaults and validates the result.
// Unknown keys are rejected.
func ParseYAML(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, &Error{Message: err.Error()}
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseCUE evaluates a CUE config against the schema, filling defaults.
func ParseCUE(filename string, data []byte) (Config, error) {
	ctx := cuecontext.New()
	def, err := schema(ctx)
	if err != nil {
		return Config{}, err
	}
	user := ctx.CompileBytes(data, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}
	v := def.Unify(user)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, formatCUEError(err)
	}
	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, formatCUEError(err)
	}
	return cfg, nil
}

// Load reads a config file, choosing the parser by extension.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return ParseCUE(path, data)
	case ".yaml", ".yml", ".json":
		return ParseYAML(data)
	}
	return Config{}, fmt.Errorf("config %s: unsupported extension %q", path, filepath.Ext(path))
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf.Bytes(), nil
}

// formatCUEError keeps the first CUE error with its field path and
// position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Message: err.Error()}
	}
	first := errs[0]
	path := first.Path()
	if len(path) > 0 && path[0] == "#Config" {
		path = path[1:]
	}
	e := &Error{Field: strings.Join(path, "."), Message: first.Error()}
	if pos := cueerrors.Positions(first); len(pos) > 0 {
		e.Pos = pos[0]
	}
	return e
}
