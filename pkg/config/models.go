package config

import (
	"os"
	"sort"
	"strings"
)

// Provider identifiers.
const (
	ProviderOpenAI    = "openai" // any OpenAI-compatible endpoint, including vLLM
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderOffline   = "offline" // skip the backend and use the deterministic echo
)

// Environment variables consulted when no API key is configured.
const (
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvGoogleAPIKey    = "GOOGLE_GENAI_API_KEY"
	EnvOllamaHost      = "OLLAMA_HOST"
)

// ModelInfo is static information about a known model.
type ModelInfo struct {
	Provider         string
	MaxContextTokens int
	MaxOutputTokens  int
}

// KnownModels maps model identifiers to providers. Unknown names go through
// ProviderPatterns.
//
//nolint:gochecknoglobals // static registry
var KnownModels = map[string]ModelInfo{
	"Qwen/Qwen3-14B":    {Provider: ProviderOpenAI, MaxContextTokens: 32768, MaxOutputTokens: 8192},
	"gpt-4o":            {Provider: ProviderOpenAI, MaxContextTokens: 128000, MaxOutputTokens: 16384},
	"gpt-4o-mini":       {Provider: ProviderOpenAI, MaxContextTokens: 128000, MaxOutputTokens: 16384},
	"claude-sonnet-4-5": {Provider: ProviderAnthropic, MaxContextTokens: 200000, MaxOutputTokens: 8192},
	"gemini-2.5-flash":  {Provider: ProviderGoogle, MaxContextTokens: 1048576, MaxOutputTokens: 65536},
	"qwen3:14b":         {Provider: ProviderOllama, MaxContextTokens: 32768, MaxOutputTokens: 8192},
	"llama3.1:8b":       {Provider: ProviderOllama, MaxContextTokens: 131072, MaxOutputTokens: 4096},
}

// ProviderPattern infers a provider from a model name prefix.
type ProviderPattern struct {
	Prefix   string
	Provider string
}

//nolint:gochecknoglobals // inference rules
var ProviderPatterns = []ProviderPattern{
	{"claude", ProviderAnthropic},
	{"gpt", ProviderOpenAI},
	{"o1", ProviderOpenAI},
	{"o3", ProviderOpenAI},
	{"gemini", ProviderGoogle},
	{"ollama:", ProviderOllama},
	{"llama", ProviderOllama},
	{"mistral", ProviderOllama},
	{"phi", ProviderOllama},
}

var defaultBaseURLs = map[string]string{
	ProviderOpenAI: DefaultBaseURL,
	ProviderOllama: "http://localhost:11434",
}

// InferProvider returns the provider for a model name. Names that match
// nothing are assumed to be served by an OpenAI-compatible endpoint.
func InferProvider(model string) string {
	if info, ok := KnownModels[model]; ok {
		return info.Provider
	}
	lower := strings.ToLower(model)
	for _, p := range ProviderPatterns {
		if strings.HasPrefix(lower, p.Prefix) {
			return p.Provider
		}
	}
	return ProviderOpenAI
}

// DefaultBaseURLFor returns the default endpoint for provider, honoring
// OLLAMA_HOST for Ollama. Hosted providers return "" (SDK default).
func DefaultBaseURLFor(provider string) string {
	if provider == ProviderOllama {
		if host := os.Getenv(EnvOllamaHost); host != "" {
			return host
		}
	}
	return defaultBaseURLs[provider]
}

// APIKeyFromEnv returns the API key for provider from the environment.
// OpenAI-compatible local servers accept any key, so that provider falls back
// to DefaultAPIKey.
func APIKeyFromEnv(provider string) string {
	switch provider {
	case ProviderOpenAI:
		if k := os.Getenv(EnvOpenAIAPIKey); k != "" {
			return k
		}
		return DefaultAPIKey
	case ProviderAnthropic:
		return os.Getenv(EnvAnthropicAPIKey)
	case ProviderGoogle:
		return os.Getenv(EnvGoogleAPIKey)
	default:
		return ""
	}
}

// IsKnownProvider reports whether provider has a client implementation.
func IsKnownProvider(provider string) bool {
	switch provider {
	case ProviderOpenAI, ProviderOllama, ProviderAnthropic, ProviderGoogle, ProviderOffline:
		return true
	default:
		return false
	}
}

// Providers lists the supported provider identifiers.
func Providers() []string {
	p := []string{ProviderOpenAI, ProviderOllama, ProviderAnthropic, ProviderGoogle, ProviderOffline}
	sort.Strings(p)
	return p
}
