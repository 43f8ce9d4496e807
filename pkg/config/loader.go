package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a config file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatForPath picks the encoding from the file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported config extension %q (want .json, .yaml, .yml or .toml)", filepath.Ext(path))
	}
}

func loadConfigFromFile(path string) (*Config, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses data in the given format.
func Decode(data []byte, format Format) (*Config, error) {
	var cfg Config
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &cfg)
	case FormatYAML:
		err = yaml.Unmarshal(data, &cfg)
	case FormatTOML:
		err = toml.Unmarshal(data, &cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s config: %w", format, err)
	}
	return &cfg, nil
}

// Encode renders cfg in the given format. Used by "config show".
func Encode(cfg *Config, format Format) ([]byte, error) {
	redacted := *cfg
	if cfg.Model != nil {
		m := *cfg.Model
		if m.APIKey != "" && m.APIKey != DefaultAPIKey {
			m.APIKey = "***"
		}
		redacted.Model = &m
	}

	var (
		out []byte
		err error
	)
	switch format {
	case FormatJSON:
		out, err = json.MarshalIndent(&redacted, "", "  ")
	case FormatYAML:
		out, err = yaml.Marshal(&redacted)
	case FormatTOML:
		out, err = toml.Marshal(&redacted)
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s config: %w", format, err)
	}
	return out, nil
}
