// Package config loads the persisted player options from options.yaml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/njyeung/termvid/art"
	"github.com/njyeung/termvid/player"
)

// EnvPath overrides the options file location
const EnvPath = "TERMVID_OPTIONS"

// DefaultPath is used when EnvPath is unset
const DefaultPath = "options.yaml"

// Options mirror options.yaml
type Options struct {
	Chars            string  `yaml:"chars"`
	Gamma            float64 `yaml:"gamma"`
	Contrast         float64 `yaml:"contrast"`
	Temp             string  `yaml:"temp"`
	Wide             int     `yaml:"wide"`
	FPS              int     `yaml:"fps"`
	CharSet          string  `yaml:"ascii_chars_set"`
	VolumeStart      float64 `yaml:"audio_volume_start"`
	DefaultVideoPath string  `yaml:"default_video_path"`
	ShowUIOnStart    bool    `yaml:"show_ui_on_start"`
	ClearOnResize    bool    `yaml:"clear_screen_on_resize"`
	BufferingMessage string  `yaml:"buffering_message"`
	SeekJumpSeconds  float64 `yaml:"seek_jump_seconds"`
	FineSeekSeconds  float64 `yaml:"fine_seek_seconds"`
	LogLevel         string  `yaml:"log_level"`
	LogFile          string  `yaml:"log_file"`
}

// Defaults returns the built-in options
func Defaults() Options {
	return Options{
		Chars:            art.CharSets["default"],
		Gamma:            1.2,
		Contrast:         1.5,
		Temp:             "temp",
		Wide:             160,
		FPS:              24,
		CharSet:          "default",
		VolumeStart:      1.0,
		ShowUIOnStart:    true,
		ClearOnResize:    true,
		BufferingMessage: "Buffering...",
		SeekJumpSeconds:  5,
		FineSeekSeconds:  1,
		LogLevel:         "info",
	}
}

// Path returns the options file location
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads the options at path. A missing file is created with the
// defaults. An unreadable or invalid file yields the defaults together with
// the error, so callers can log it and carry on.
func Load(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		opts := Defaults()
		if err := Save(path, opts); err != nil {
			return opts, err
		}
		return opts, nil
	}
	if err != nil {
		return Defaults(), fmt.Errorf("failed to read options: %w", err)
	}

	opts, err := parse(data)
	if err != nil {
		return Defaults(), fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return opts, nil
}

// parse decodes data over the defaults, so absent keys keep their default
func parse(data []byte) (Options, error) {
	opts := Defaults()
	err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&opts)
	if err != nil && !errors.Is(err, io.EOF) {
		return Options{}, err
	}
	return opts.normalize(), nil
}

// normalize replaces empty and out of range values with their defaults
func (o Options) normalize() Options {
	def := Defaults()
	if o.Chars == "" {
		o.Chars = def.Chars
	}
	if o.Gamma <= 0 {
		o.Gamma = def.Gamma
	}
	if o.Contrast <= 0 {
		o.Contrast = def.Contrast
	}
	if o.Temp == "" {
		o.Temp = def.Temp
	}
	if o.Wide <= 0 {
		o.Wide = def.Wide
	}
	if o.FPS <= 0 {
		o.FPS = def.FPS
	}
	if o.CharSet == "" {
		o.CharSet = def.CharSet
	}
	o.VolumeStart = max(0, min(1, o.VolumeStart))
	if o.BufferingMessage == "" {
		o.BufferingMessage = def.BufferingMessage
	}
	if o.SeekJumpSeconds <= 0 {
		o.SeekJumpSeconds = def.SeekJumpSeconds
	}
	if o.FineSeekSeconds <= 0 {
		o.FineSeekSeconds = def.FineSeekSeconds
	}
	if o.LogLevel == "" {
		o.LogLevel = def.LogLevel
	}
	return o
}

// Save writes opts to path atomically
func Save(path string, opts Options) error {
	data, err := yaml.Marshal(opts)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create options directory: %w", err)
		}
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write options: %w", err)
	}
	return nil
}

// Characters resolves the configured character set
func (o Options) Characters() string {
	return art.ResolveCharSet(o.CharSet, o.Chars)
}

// ArtOptions configures the text-art converter
func (o Options) ArtOptions(size art.SizeFunc) art.Options {
	return art.Options{
		Chars:    o.Characters(),
		Gamma:    o.Gamma,
		Contrast: o.Contrast,
		Size:     size,
	}
}

// PlayerOptions maps the file options onto the render loop settings. The
// render buffer holds one second of frames.
func (o Options) PlayerOptions() player.Options {
	return player.Options{
		FPS:             float64(o.FPS),
		Wide:            o.Wide,
		BufferSize:      o.FPS,
		SeekJumpSeconds: o.SeekJumpSeconds,
		FineSeekSeconds: o.FineSeekSeconds,
		ClearOnResize:   o.ClearOnResize,
		BufferingMsg:    o.BufferingMessage,
	}
}
