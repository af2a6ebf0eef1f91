// Package config loads md2html site configuration from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "md2html.yaml"

// Config is the site configuration.
type Config struct {
	// BaseDir is the directory of the loaded config file (or the working
	// directory for defaults); relative paths are resolved against it.
	BaseDir string `yaml:"-"`

	BasePath     string `yaml:"basepath"`
	Content      string `yaml:"content"`
	Static       string `yaml:"static"`
	Public       string `yaml:"public"`
	Template     string `yaml:"template"`
	Engine       string `yaml:"engine"`
	InlineQuotes bool   `yaml:"inline_quotes"`
	Drafts       bool   `yaml:"drafts"`
	Workers      int    `yaml:"workers"`
	CheckLinks   bool   `yaml:"check_links"`

	Titles   TitlesConfig   `yaml:"titles"`
	Previews PreviewsConfig `yaml:"previews"`
	Serve    ServeConfig    `yaml:"serve"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// TitlesConfig controls what happens when a page has no "# " heading.
type TitlesConfig struct {
	// Fallback is "none" (missing title is an error) or "filename".
	Fallback string `yaml:"fallback"`
}

// PreviewsConfig controls PNG previews written beside each page.
type PreviewsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Width     int    `yaml:"width"`
	MaxHeight int    `yaml:"max_height"`
	Theme     string `yaml:"theme"`
}

// ServeConfig configures the development server.
type ServeConfig struct {
	Addr        string            `yaml:"addr"`
	Compression CompressionConfig `yaml:"compression"`
}

// CompressionConfig configures response compression for the dev server.
type CompressionConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"` // fastest, default, best, none
	MinSize int    `yaml:"min_size"`
}

// LoggingConfig selects the trace level.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, error
}

// Defaults returns the configuration used when no file is present.
func Defaults() *Config {
	return &Config{
		BasePath: "/",
		Content:  "content",
		Static:   "static",
		Public:   "public",
		Template: "template.html",
		Engine:   "builtin",
		Workers:  4,
		Titles:   TitlesConfig{Fallback: "none"},
		Previews: PreviewsConfig{Width: 1024, MaxHeight: 630, Theme: "light"},
		Serve: ServeConfig{
			Addr:        "localhost:8888",
			Compression: CompressionConfig{Enabled: true, Level: "default", MinSize: 1024},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads configuration with ENV interpolation. If configPath is empty,
// MD2HTML_CONFIG and then ./md2html.yaml are tried; when neither exists the
// defaults are returned, rooted at the working directory.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	path, err := resolveConfigPath(configPath, getenv)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		cfg.BaseDir = wd
		cfg.BasePath = NormalizeBasePath(cfg.BasePath)
		cfg.resolvePaths()
		return cfg, Validate(cfg)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	data = interpolateEnv(data, getenv)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.BaseDir = filepath.Dir(absPath)
	cfg.BasePath = NormalizeBasePath(cfg.BasePath)
	cfg.resolvePaths()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveConfigPath finds the config file to use. An empty result means
// "use defaults".
func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}
	if envPath := getenv("MD2HTML_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("MD2HTML_CONFIG file not found: %s", envPath)
		}
		return envPath, nil
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return DefaultFile, nil
	}
	return "", nil
}

// NormalizeBasePath adds the trailing slash that link rewriting and the
// dev server rely on. "" becomes "/".
func NormalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

func (c *Config) resolvePaths() {
	for _, p := range []*string{&c.Content, &c.Static, &c.Public, &c.Template} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(c.BaseDir, *p)
		}
	}
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// interpolateEnv replaces ${VAR} and ${VAR:-default} patterns with environment values.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		value := getenv(string(parts[1]))
		if value == "" && len(parts[2]) > 0 {
			value = string(parts[2])
		}
		return []byte(value)
	})
}

// Validate checks the configuration and reports every problem at once.
func Validate(cfg *Config) error {
	var errs []string

	if !strings.HasPrefix(cfg.BasePath, "/") {
		errs = append(errs, fmt.Sprintf("basepath must start with '/': %q", cfg.BasePath))
	}
	if !strings.HasSuffix(cfg.BasePath, "/") {
		errs = append(errs, fmt.Sprintf("basepath must end with '/': %q", cfg.BasePath))
	}
	if cfg.Content == "" {
		errs = append(errs, "content directory is required")
	}
	if cfg.Public == "" {
		errs = append(errs, "public directory is required")
	}
	if cfg.Template == "" {
		errs = append(errs, "template is required")
	}
	if cfg.Content != "" && cfg.Content == cfg.Public {
		errs = append(errs, "content and public must be different directories")
	}
	if cfg.Engine != "builtin" && cfg.Engine != "goldmark" {
		errs = append(errs, fmt.Sprintf("invalid engine: %s (must be builtin or goldmark)", cfg.Engine))
	}
	if cfg.Workers < 1 {
		errs = append(errs, fmt.Sprintf("invalid workers: %d (must be at least 1)", cfg.Workers))
	}
	if cfg.Titles.Fallback != "none" && cfg.Titles.Fallback != "filename" {
		errs = append(errs, fmt.Sprintf("invalid titles.fallback: %s (must be none or filename)", cfg.Titles.Fallback))
	}
	if cfg.Previews.Width < 0 || cfg.Previews.MaxHeight < 0 {
		errs = append(errs, "previews.width and previews.max_height must not be negative")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, or error)", cfg.Logging.Level))
	}
	validCompression := map[string]bool{"fastest": true, "default": true, "best": true, "none": true}
	if !validCompression[cfg.Serve.Compression.Level] {
		errs = append(errs, fmt.Sprintf("invalid serve.compression.level: %s", cfg.Serve.Compression.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
