package types

import (
	"fmt"
	"strings"
	"time"
)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "research-assistant/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SearchConfig holds settings for the search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxResults is the maximum number of papers requested (default 10).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// YearsBack drops papers published before currentYear-YearsBack (default 5).
	YearsBack int `json:"years_back" yaml:"years_back" mapstructure:"years_back"`
}

// FetchConfig holds settings for the PDF fetch stage.
type FetchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxBytes bounds the size of a downloaded PDF (default 64 MiB).
	MaxBytes int64 `json:"max_bytes" yaml:"max_bytes" mapstructure:"max_bytes"`

	// MinDelay and MaxDelay bound the randomized pause between successive
	// papers in a batch (default 1s and 2s).
	MinDelay time.Duration `json:"min_delay" yaml:"min_delay" mapstructure:"min_delay"`
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay" mapstructure:"max_delay"`

	// HostInterval is the minimum spacing between two requests to the same
	// host (default 1s).
	HostInterval time.Duration `json:"host_interval" yaml:"host_interval" mapstructure:"host_interval"`
}

// PagePolicy selects how the text extractor handles a page that fails.
type PagePolicy string

const (
	// PageStrict fails the whole document when any page fails.
	PageStrict PagePolicy = "strict"
	// PageLenient drops failed pages and keeps the rest.
	PageLenient PagePolicy = "lenient"
)

// ParsePagePolicy accepts "strict" or "lenient" in any case. An empty
// string means PageStrict.
func ParsePagePolicy(s string) (PagePolicy, error) {
	switch p := PagePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PageStrict, nil
	case PageStrict, PageLenient:
		return p, nil
	default:
		return "", fmt.Errorf("unknown page policy %q (use strict or lenient)", s)
	}
}

// Heading is one entry of the section-heading vocabulary. Pattern is a
// regular expression matched case-insensitively; Label is the SectionMap key.
type Heading struct {
	Label   string `json:"label" yaml:"label" mapstructure:"label"`
	Pattern string `json:"pattern" yaml:"pattern" mapstructure:"pattern"`
}

// ExtractConfig holds settings for text extraction and segmentation.
type ExtractConfig struct {
	// PagePolicy is "strict" (default) or "lenient".
	PagePolicy PagePolicy `json:"page_policy" yaml:"page_policy" mapstructure:"page_policy"`

	// Headings overrides the default heading vocabulary. Order matters:
	// earlier entries win ties.
	Headings []Heading `json:"headings,omitempty" yaml:"headings,omitempty" mapstructure:"headings"`
}

// StoreConfig holds settings for the paper store.
type StoreConfig struct {
	// DataDir is the directory holding the SQLite database.
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
}

// LLMConfig holds settings for the inference collaborator.
type LLMConfig struct {
	// Provider is "ollama" (default), "openai" or "anthropic".
	Provider string `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the model identifier (e.g. "deepseek-r1:1.5b").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// APIKey authenticates against OpenAI-compatible endpoints.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Timeout bounds one completion request (default 120s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// MaxRetries is the number of retries for transient failures (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// CacheTTL is how long completions are memoized; zero disables caching.
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	// Addr is the listen address (default ":8000").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// CORS enables permissive cross-origin headers.
	CORS bool `json:"cors" yaml:"cors" mapstructure:"cors"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// JSON switches to JSON-formatted log lines.
	JSON bool `json:"json" yaml:"json" mapstructure:"json"`
}

// Config groups all stage configurations.
type Config struct {
	Search  SearchConfig  `json:"search" yaml:"search" mapstructure:"search"`
	Fetch   FetchConfig   `json:"fetch" yaml:"fetch" mapstructure:"fetch"`
	Extract ExtractConfig `json:"extract" yaml:"extract" mapstructure:"extract"`
	Store   StoreConfig   `json:"store" yaml:"store" mapstructure:"store"`
	LLM     LLMConfig     `json:"llm" yaml:"llm" mapstructure:"llm"`
	Server  ServerConfig  `json:"server" yaml:"server" mapstructure:"server"`
	Log     LogConfig     `json:"log" yaml:"log" mapstructure:"log"`
}
