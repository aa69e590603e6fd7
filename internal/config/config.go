// Package config loads aquascope.toml (or a YAML equivalent).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"aquascope/internal/render"
	"aquascope/internal/tag"
	"aquascope/internal/trace"
	"aquascope/internal/view"
	"aquascope/internal/visibility"
)

// FileName is the file Find looks for.
const FileName = "aquascope.toml"

// Config is the whole configuration file.
type Config struct {
	Tags    Tags    `toml:"tags" yaml:"tags"`
	Classes Classes `toml:"classes" yaml:"classes"`
	Theme   Theme   `toml:"theme" yaml:"theme"`
	Trace   Trace   `toml:"trace" yaml:"trace"`
	Serve   Serve   `toml:"serve" yaml:"serve"`
	Cache   Cache   `toml:"cache" yaml:"cache"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `toml:"-" yaml:"-"`
}

type Tags struct {
	Length int `toml:"length" yaml:"length"`
	// Seed makes tags reproducible; 0 draws them from the runtime source.
	Seed uint64 `toml:"seed" yaml:"seed"`
}

type Classes struct {
	Loan       string `toml:"loan" yaml:"loan"`
	LiveRegion string `toml:"live_region" yaml:"live_region"`
	Revealed   string `toml:"revealed" yaml:"revealed"`
	HiddenLine string `toml:"hidden_line" yaml:"hidden_line"`
}

// Theme holds terminal colours per class, as "#RRGGBB" or ANSI numbers.
type Theme struct {
	Loan        string `toml:"loan" yaml:"loan"`
	LiveRegion  string `toml:"live_region" yaml:"live_region"`
	LineNumbers bool   `toml:"line_numbers" yaml:"line_numbers"`
}

type Trace struct {
	Level    string `toml:"level" yaml:"level"`
	Mode     string `toml:"mode" yaml:"mode"`
	Format   string `toml:"format" yaml:"format"` // auto, text or ndjson
	Output   string `toml:"output" yaml:"output"`
	RingSize int    `toml:"ring_size" yaml:"ring_size"`
}

type Serve struct {
	Addr     string        `toml:"addr" yaml:"addr"`
	Debounce time.Duration `toml:"debounce" yaml:"debounce"`
}

type Cache struct {
	Dir     string `toml:"dir" yaml:"dir"`
	Disable bool   `toml:"disable" yaml:"disable"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Tags: Tags{Length: tag.DefaultLength},
		Classes: Classes{
			Loan:       render.LoanClass,
			LiveRegion: render.LiveRegionClass,
			Revealed:   visibility.RevealedClass,
			HiddenLine: render.HiddenLineClass,
		},
		Theme: Theme{
			Loan:       view.SoftBlue,
			LiveRegion: view.SoftGreen,
		},
		Trace: Trace{Level: "off", Mode: "ring", RingSize: 4096},
		Serve: Serve{Debounce: 250 * time.Millisecond},
	}
}

// Find walks up from startDir looking for FileName.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover loads the nearest FileName above startDir, or the defaults.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Load reads a TOML or, by extension, YAML file over the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("%s: failed to parse YAML: %w", path, err)
		}
	default:
		meta, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
		}
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that decoding alone cannot.
func (c Config) Validate() error {
	if c.Tags.Length <= 0 {
		return fmt.Errorf("[tags].length must be positive, got %d", c.Tags.Length)
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		return fmt.Errorf("[trace].level: %w", err)
	}
	if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
		return fmt.Errorf("[trace].mode: %w", err)
	}
	if _, err := trace.ParseFormat(c.Trace.Format); err != nil {
		return fmt.Errorf("[trace].format: %w", err)
	}
	for name, v := range map[string]string{
		"loan":        c.Classes.Loan,
		"live_region": c.Classes.LiveRegion,
		"revealed":    c.Classes.Revealed,
		"hidden_line": c.Classes.HiddenLine,
	} {
		if strings.ContainsAny(v, " \t\n\"<>") {
			return fmt.Errorf("[classes].%s: %q is not a single class name", name, v)
		}
	}
	if c.Serve.Debounce < 0 {
		return fmt.Errorf("[serve].debounce must not be negative")
	}
	return nil
}

// RenderClasses returns the class names for render.New.
func (c Config) RenderClasses() render.Classes {
	return render.Classes{
		Loan:       c.Classes.Loan,
		LiveRegion: c.Classes.LiveRegion,
		HiddenLine: c.Classes.HiddenLine,
	}
}

// ViewTheme returns the terminal theme for the configured classes.
func (c Config) ViewTheme() view.Theme {
	cls := c.RenderClasses()
	th := view.DefaultTheme()
	th.Styles = nil
	th = th.WithColor(cls.Loan, c.Theme.Loan).WithColor(cls.LiveRegion, c.Theme.LiveRegion)
	th.Styles[cls.Loan] = th.Styles[cls.Loan].Bold(true)
	th.Styles[cls.LiveRegion] = th.Styles[cls.LiveRegion].Underline(true)
	th.Gated = []string{cls.LiveRegion}
	th.Revealed = c.Classes.Revealed
	th.HiddenLine = cls.HiddenLine
	th.LineNumbers = c.Theme.LineNumbers
	return th
}

// TagGenerator returns the generator the tag settings ask for.
func (c Config) TagGenerator() *tag.Generator {
	if c.Tags.Seed != 0 {
		return tag.NewSeeded(c.Tags.Seed)
	}
	return tag.NewRandom()
}

// TraceConfig converts the [trace] section. Flags may override it later.
func (c Config) TraceConfig() (trace.Config, error) {
	level, err := trace.ParseLevel(c.Trace.Level)
	if err != nil {
		return trace.Config{}, err
	}
	mode, err := trace.ParseMode(c.Trace.Mode)
	if err != nil {
		return trace.Config{}, err
	}
	format, err := trace.ParseFormat(c.Trace.Format)
	if err != nil {
		return trace.Config{}, err
	}
	return trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: c.Trace.Output,
		RingSize:   c.Trace.RingSize,
	}, nil
}
