// Package config loads program configuration.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	validator "github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"

	"github.com/metcalfc/leaf/internal/paginate"
)

//go:embed config.yaml
var defaultConfig []byte

type (
	DocumentConfig struct {
		Palette       map[string]string `yaml:"palette" validate:"dive,keys,required,endkeys,required"`
		FallbackColor string            `yaml:"fallback_color" validate:"required"`
	}

	AdaptiveConfig struct {
		MaxIterations int `yaml:"max_iterations" validate:"min=1,max=64"`
		MinWords      int `yaml:"min_words" validate:"min=1"`
	}

	TerminalConfig struct {
		PaddingX  int `yaml:"padding_x" validate:"gte=0"`
		PaddingY  int `yaml:"padding_y" validate:"gte=0"`
		ImageRows int `yaml:"image_rows" validate:"min=1"`
	}

	WindowConfig struct {
		Width    float64 `yaml:"width" validate:"gt=0"`
		Height   float64 `yaml:"height" validate:"gt=0"`
		PaddingX float64 `yaml:"padding_x" validate:"gte=0"`
		PaddingY float64 `yaml:"padding_y" validate:"gte=0"`
		FontSize float64 `yaml:"font_size" validate:"gt=0"`
	}

	PaginationConfig struct {
		Strategy     string         `yaml:"strategy" validate:"oneof=fixed adaptive continuous"`
		WordsPerPage int            `yaml:"words_per_page" validate:"min=1"`
		ImagePenalty int            `yaml:"image_penalty" validate:"min=-1"`
		MinWords     int            `yaml:"min_words" validate:"min=1"`
		MaxPages     int            `yaml:"max_pages" validate:"min=1"`
		Adaptive     AdaptiveConfig `yaml:"adaptive"`
		Terminal     TerminalConfig `yaml:"terminal"`
		Window       WindowConfig   `yaml:"window"`
	}

	StateConfig struct {
		RememberPosition bool   `yaml:"remember_position"`
		Directory        string `yaml:"directory,omitempty" validate:"omitempty,dirpath"`
	}

	Config struct {
		Version    int              `yaml:"version" validate:"eq=1"`
		Document   DocumentConfig   `yaml:"document"`
		Pagination PaginationConfig `yaml:"pagination"`
		State      StateConfig      `yaml:"state"`
		Logging    LoggingConfig    `yaml:"logging"`
	}
)

// Options returns pagination options for layout. Layout is only used by the
// adaptive strategy.
func (c *PaginationConfig) Options(layout paginate.Layout) paginate.Options {
	return paginate.Options{
		Strategy:      c.Strategy,
		WordsPerPage:  c.WordsPerPage,
		ImagePenalty:  c.ImagePenalty,
		MinWords:      c.MinWords,
		Layout:        layout,
		MaxIterations: c.Adaptive.MaxIterations,
		FitMinWords:   c.Adaptive.MinWords,
		MaxPages:      c.MaxPages,
	}
}

// TerminalLayout returns the adaptive layout of a terminal of the given size
// in cells.
func (c *PaginationConfig) TerminalLayout(cols, rows int) paginate.Layout {
	return paginate.Layout{
		Width:      float64(cols),
		Height:     float64(rows),
		PaddingX:   float64(c.Terminal.PaddingX),
		PaddingY:   float64(c.Terminal.PaddingY),
		CharWidth:  1,
		LineHeight: 1,
	}
}

// WindowLayout returns the adaptive layout of a window of the given size in
// pixels. Non-positive sizes select the configured window size.
func (c *PaginationConfig) WindowLayout(width, height float64) paginate.Layout {
	if width <= 0 || height <= 0 {
		width, height = c.Window.Width, c.Window.Height
	}
	return paginate.Layout{
		Width:    width,
		Height:   height,
		PaddingX: c.Window.PaddingX,
		PaddingY: c.Window.PaddingY,
		FontSize: c.Window.FontSize,
	}
}

func unmarshalConfig(data []byte, cfg *Config, validate bool) (*Config, error) {
	// only fields we defined are allowed
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if validate {
		v := validator.New(validator.WithRequiredStructEnabled())
		if err := v.Struct(cfg); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of embedded defaults and performs
// validation.
func LoadConfiguration(path string) (*Config, error) {
	haveFile := len(path) > 0

	cfg, err := unmarshalConfig(defaultConfig, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process default configuration: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, true)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare returns the default configuration.
func Prepare() ([]byte, error) {
	return bytes.Clone(defaultConfig), nil
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %w", err)
	}
	return data, nil
}
