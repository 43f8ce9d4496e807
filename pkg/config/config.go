// Package config loads, defaults and validates sitesmith settings.
//
// A single Config is held in memory behind a mutex. GetConfig returns it by
// value; callers never mutate the shared instance. Files may be JSON, YAML or
// TOML, chosen by extension. Command-line and environment overrides are applied
// on top of the file as Override functions before defaults and validation.
package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"sitesmith/pkg/logx"
)

//nolint:gochecknoglobals // singleton
var (
	config *Config
	logger *logx.Logger
	mu     sync.RWMutex
)

func getLogger() *logx.Logger {
	if logger == nil {
		logger = logx.NewLogger("config")
	}
	return logger
}

// Defaults mirror the reference deployment: a local vLLM server speaking the
// OpenAI protocol and the web UI on 7051.
const (
	DefaultProvider          = ProviderOpenAI
	DefaultModel             = "Qwen/Qwen3-14B"
	DefaultBaseURL           = "http://localhost:7052/v1"
	DefaultAPIKey            = "EMPTY"
	DefaultTimeoutSec        = 300
	DefaultMaxTokens         = 2048
	DefaultTemperature       = 0.1
	DefaultProbeTimeoutSec   = 5
	DefaultFallbackEchoChars = 100

	DefaultSandboxRoot = "website_sandbox"

	DefaultWebUIHost = "0.0.0.0"
	DefaultWebUIPort = 7051
	DefaultUsername  = "sitesmith"

	DefaultSessionKey = "default"
)

// ModelConfig selects and tunes the text-generation backend.
type ModelConfig struct {
	Provider          string   `json:"provider" yaml:"provider" toml:"provider"`                                     // openai, ollama, anthropic, google, offline
	Name              string   `json:"name" yaml:"name" toml:"name"`                                                 // model identifier
	BaseURL           string   `json:"base_url" yaml:"base_url" toml:"base_url"`                                     // endpoint, provider-specific
	APIKey            string   `json:"api_key,omitempty" yaml:"api_key,omitempty" toml:"api_key,omitempty"`         // falls back to provider env var
	TimeoutSec        int      `json:"timeout_sec" yaml:"timeout_sec" toml:"timeout_sec"`                            // per-request deadline
	MaxTokens         int      `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`                               // output cap
	Temperature       *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty" toml:"temperature,omitempty"` // nil = default
	ProbeTimeoutSec   int      `json:"probe_timeout_sec" yaml:"probe_timeout_sec" toml:"probe_timeout_sec"`          // startup reachability check
	FallbackEchoChars int      `json:"fallback_echo_chars" yaml:"fallback_echo_chars" toml:"fallback_echo_chars"`    // offline echo length
}

// Timeout returns TimeoutSec as a duration.
func (m *ModelConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSec) * time.Second
}

// ProbeTimeout returns ProbeTimeoutSec as a duration.
func (m *ModelConfig) ProbeTimeout() time.Duration {
	return time.Duration(m.ProbeTimeoutSec) * time.Second
}

// EffectiveTemperature returns the configured temperature or the default.
func (m *ModelConfig) EffectiveTemperature() float64 {
	if m.Temperature == nil {
		return DefaultTemperature
	}
	return *m.Temperature
}

// SandboxConfig locates the artifact directory.
type SandboxConfig struct {
	Root string `json:"root" yaml:"root" toml:"root"`
}

// WebUIConfig contains web UI server settings.
type WebUIConfig struct {
	Host         string `json:"host" yaml:"host" toml:"host"`
	Port         int    `json:"port" yaml:"port" toml:"port"`
	Username     string `json:"username" yaml:"username" toml:"username"`
	PasswordHash string `json:"password_hash,omitempty" yaml:"password_hash,omitempty" toml:"password_hash,omitempty"` // bcrypt; empty disables auth
}

// Addr returns host:port.
func (w *WebUIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", w.Host, w.Port)
}

// MetricsConfig toggles Prometheus collection.
type MetricsConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" toml:"enabled"`
}

// DebugConfig controls debug logging.
type DebugConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Domains []string `json:"domains,omitempty" yaml:"domains,omitempty" toml:"domains,omitempty"`
}

// Config is the full settings tree.
type Config struct {
	Model      *ModelConfig   `json:"model" yaml:"model" toml:"model"`
	Sandbox    *SandboxConfig `json:"sandbox" yaml:"sandbox" toml:"sandbox"`
	WebUI      *WebUIConfig   `json:"webui" yaml:"webui" toml:"webui"`
	Metrics    *MetricsConfig `json:"metrics" yaml:"metrics" toml:"metrics"`
	Debug      *DebugConfig   `json:"debug" yaml:"debug" toml:"debug"`
	SessionKey string         `json:"session_key" yaml:"session_key" toml:"session_key"`
}

// Override mutates a freshly loaded config before defaults are applied.
type Override func(*Config)

// GetConfig returns the current config by value.
func GetConfig() (Config, error) {
	mu.RLock()
	defer mu.RUnlock()
	if config == nil {
		return Config{}, fmt.Errorf("config not initialized - call LoadConfig first")
	}
	return *config, nil
}

// SetConfigForTesting installs cfg as the global config. Pass nil to reset.
func SetConfigForTesting(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg != nil {
		applyDefaults(cfg)
	}
	config = cfg
}

// LoadConfig reads path (empty or missing means defaults only), applies
// overrides, defaults and validation, and installs the result globally.
func LoadConfig(path string, overrides ...Override) error {
	cfg := &Config{}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			getLogger().Info("📝 Loading config from %s", path)
			loaded, err := loadConfigFromFile(path)
			if err != nil {
				return fmt.Errorf("config file exists but cannot be parsed: %w", err)
			}
			cfg = loaded
		} else if os.IsNotExist(err) {
			getLogger().Info("📝 Config file %s not found, using defaults", path)
		} else {
			return fmt.Errorf("failed to stat config file %s: %w", path, err)
		}
	}

	// Sections must exist before overrides touch them.
	initSections(cfg)
	for _, o := range overrides {
		o(cfg)
	}
	applyDefaults(cfg)
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	mu.Lock()
	config = cfg
	mu.Unlock()

	getLogger().Info("✅ Config loaded: provider=%s model=%s sandbox=%s", cfg.Model.Provider, cfg.Model.Name, cfg.Sandbox.Root)
	return nil
}

func initSections(cfg *Config) {
	if cfg.Model == nil {
		cfg.Model = &ModelConfig{}
	}
	if cfg.Sandbox == nil {
		cfg.Sandbox = &SandboxConfig{}
	}
	if cfg.WebUI == nil {
		cfg.WebUI = &WebUIConfig{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &MetricsConfig{Enabled: true}
	}
	if cfg.Debug == nil {
		cfg.Debug = &DebugConfig{}
	}
}

func applyDefaults(cfg *Config) {
	initSections(cfg)

	m := cfg.Model
	if m.Name == "" {
		m.Name = DefaultModel
	}
	if m.Provider == "" {
		m.Provider = InferProvider(m.Name)
	}
	m.Provider = strings.ToLower(m.Provider)
	if m.BaseURL == "" {
		m.BaseURL = DefaultBaseURLFor(m.Provider)
	}
	if m.APIKey == "" {
		m.APIKey = APIKeyFromEnv(m.Provider)
	}
	if m.TimeoutSec <= 0 {
		m.TimeoutSec = DefaultTimeoutSec
	}
	if m.MaxTokens <= 0 {
		m.MaxTokens = DefaultMaxTokens
	}
	if m.ProbeTimeoutSec <= 0 {
		m.ProbeTimeoutSec = DefaultProbeTimeoutSec
	}
	if m.FallbackEchoChars <= 0 {
		m.FallbackEchoChars = DefaultFallbackEchoChars
	}

	if cfg.Sandbox.Root == "" {
		cfg.Sandbox.Root = DefaultSandboxRoot
	}
	if cfg.WebUI.Host == "" {
		cfg.WebUI.Host = DefaultWebUIHost
	}
	if cfg.WebUI.Port == 0 {
		cfg.WebUI.Port = DefaultWebUIPort
	}
	if cfg.WebUI.Username == "" {
		cfg.WebUI.Username = DefaultUsername
	}
	if cfg.SessionKey == "" {
		cfg.SessionKey = DefaultSessionKey
	}
}

func validateConfig(cfg *Config) error {
	m := cfg.Model
	if !IsKnownProvider(m.Provider) {
		return fmt.Errorf("unknown model provider %q (want one of %s)", m.Provider, strings.Join(Providers(), ", "))
	}
	if t := m.EffectiveTemperature(); t < 0 || t > 2 {
		return fmt.Errorf("model temperature must be between 0 and 2 (got %v)", t)
	}
	if m.MaxTokens > 1_000_000 {
		return fmt.Errorf("model max_tokens %d is implausibly large", m.MaxTokens)
	}
	if cfg.WebUI.Port <= 0 || cfg.WebUI.Port > 65535 {
		return fmt.Errorf("webui port must be between 1 and 65535 (got %d)", cfg.WebUI.Port)
	}
	if h := cfg.WebUI.PasswordHash; h != "" && !strings.HasPrefix(h, "$2") {
		return fmt.Errorf("webui password_hash must be a bcrypt hash")
	}
	return nil
}
