// Package config assembles provider-agnostic connection and default-model
// settings, either programmatically via Builder or by loading a YAML file
// via FromYAML. Config is immutable once Build()/FromYAML() returns.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ProviderOptions carries per-provider connection defaults.
type ProviderOptions struct {
	// APIKey authenticates requests to the provider. May be empty for
	// providers that source credentials elsewhere (for example, Bedrock's
	// AWS credential chain, or Ollama's unauthenticated local server).
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default endpoint, used for
	// OpenAI-compatible derivatives (DeepSeek, Groq, OpenRouter, Phind) and
	// self-hosted Ollama instances.
	BaseURL string `yaml:"base_url"`

	// DefaultModel is used when a Request does not specify Model or
	// ModelClass.
	DefaultModel string `yaml:"default_model"`

	// HighReasoningModel is used for message.ModelClassHighReasoning
	// requests when Model is empty.
	HighReasoningModel string `yaml:"high_reasoning_model"`

	// SmallModel is used for message.ModelClassSmall requests when Model is
	// empty.
	SmallModel string `yaml:"small_model"`

	// Timeout bounds a single request/stream-open call to this provider.
	// Zero means no adapter-level timeout beyond the caller's context.
	Timeout time.Duration `yaml:"timeout"`
}

// Config is the immutable, fully resolved configuration for a set of
// provider adapters.
type Config struct {
	providers map[string]ProviderOptions
}

// Provider returns the ProviderOptions registered under name, or the zero
// value and false if none was configured.
func (c *Config) Provider(name string) (ProviderOptions, bool) {
	if c == nil {
		return ProviderOptions{}, false
	}
	opts, ok := c.providers[name]
	return opts, ok
}

// Builder assembles a Config programmatically. The zero value is ready to
// use.
type Builder struct {
	providers map[string]ProviderOptions
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{providers: make(map[string]ProviderOptions)}
}

// WithProvider registers opts under name and returns b for chaining. A
// second call for the same name overwrites the previous options.
func (b *Builder) WithProvider(name string, opts ProviderOptions) *Builder {
	if b.providers == nil {
		b.providers = make(map[string]ProviderOptions)
	}
	b.providers[name] = opts
	return b
}

// Build returns the immutable Config assembled so far. The Builder may be
// reused after Build; subsequent mutations do not affect previously built
// Configs.
func (b *Builder) Build() *Config {
	providers := make(map[string]ProviderOptions, len(b.providers))
	for k, v := range b.providers {
		providers[k] = v
	}
	return &Config{providers: providers}
}

// fileSchema mirrors the on-disk YAML shape:
//
//	providers:
//	  anthropic:
//	    api_key: ${ANTHROPIC_API_KEY}
//	    default_model: claude-sonnet-4-5
//	  openai:
//	    api_key: ${OPENAI_API_KEY}
type fileSchema struct {
	Providers map[string]ProviderOptions `yaml:"providers"`
}

// FromYAML loads a Config from a YAML file at path. It does not perform
// environment variable substitution; callers that want
// "${ANTHROPIC_API_KEY}"-style interpolation should pre-process the file
// before calling FromYAML, or resolve secrets via WithProvider after
// loading.
func FromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var schema fileSchema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	providers := make(map[string]ProviderOptions, len(schema.Providers))
	for k, v := range schema.Providers {
		providers[k] = v
	}
	return &Config{providers: providers}, nil
}
