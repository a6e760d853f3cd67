// Package config holds the session configuration snapshot. A Settings value
// is loaded once, validated, and cloned into every Session so concurrent
// sessions never observe each other's configuration.
package config

import (
	"strings"
	"time"

	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/gekko/pkg/reasoning"
)

// Settings is the complete gekko configuration.
type Settings struct {
	// LLMProvider selects the reasoning backend. Options: "openai", "static".
	LLMProvider string `mapstructure:"llm_provider" yaml:"llm_provider"`
	// DeepThinkModel is the model used for debate turns, adjudication and
	// decision synthesis.
	DeepThinkModel string `mapstructure:"deep_think_llm" yaml:"deep_think_llm"`
	// QuickThinkModel is the model used for analyst report synthesis.
	QuickThinkModel string `mapstructure:"quick_think_llm" yaml:"quick_think_llm"`
	// APIKey and BaseURL configure the reasoning backend client.
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// MaxDebateRounds bounds the investment debate (rounds per side).
	MaxDebateRounds int `mapstructure:"max_debate_rounds" yaml:"max_debate_rounds"`
	// MaxRiskRounds bounds the risk debate (rounds per side).
	MaxRiskRounds int `mapstructure:"max_risk_discuss_rounds" yaml:"max_risk_discuss_rounds"`
	// OnlineTools allows live provider fetches. When false the resolver is
	// cache-only: misses degrade to stale entries or no-data results.
	OnlineTools bool `mapstructure:"online_tools" yaml:"online_tools"`
	// AnalysisDepth gates optional analyst roles. 1 runs market and
	// fundamentals, 2 adds news, 3 adds sentiment.
	AnalysisDepth int `mapstructure:"analysis_depth" yaml:"analysis_depth"`

	// Retry is the shared policy for transient reasoning and provider
	// failures.
	Retry reasoning.RetryPolicy `mapstructure:"retry" yaml:"retry"`
	// CallTimeout bounds every external call (reasoning or data fetch).
	CallTimeout time.Duration `mapstructure:"call_timeout" yaml:"call_timeout"`

	// DataDir is the directory backing the file cache tier. Embedders pass
	// it to dataflows.NewFileTier when assembling the resolver.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
	// CacheTTL maps a data kind to the freshness window of its cache
	// entries. Kinds without an entry use DefaultTTL.
	CacheTTL   map[string]time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	DefaultTTL time.Duration            `mapstructure:"default_ttl" yaml:"default_ttl"`
}

// Default returns the settings used when no configuration file is present.
func Default() *Settings {
	return &Settings{
		LLMProvider:     "openai",
		DeepThinkModel:  "gpt-4o",
		QuickThinkModel: "gpt-4o-mini",
		MaxDebateRounds: 2,
		MaxRiskRounds:   1,
		OnlineTools:     true,
		AnalysisDepth:   2,
		Retry:           reasoning.DefaultRetryPolicy(),
		CallTimeout:     2 * time.Minute,
		CacheTTL: map[string]time.Duration{
			"price":        6 * time.Hour,
			"fundamentals": 24 * time.Hour,
			"news":         time.Hour,
			"sentiment":    time.Hour,
			"index":        6 * time.Hour,
		},
		DefaultTTL: 6 * time.Hour,
	}
}

// Load reads settings from the given yaml file, layered over Default and
// overridable through GEKKO_* environment variables.
func Load(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("GEKKO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	s := Default()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "could not read config file %s", path)
		}
	}
	if err := v.Unmarshal(s); err != nil {
		return nil, errors.Wrap(err, "could not unmarshal config")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks option ranges before a session is created.
func (s *Settings) Validate() error {
	if s.LLMProvider == "" {
		return errors.New("llm_provider must be set")
	}
	if s.MaxDebateRounds < 1 {
		return errors.Errorf("max_debate_rounds must be >= 1, got %d", s.MaxDebateRounds)
	}
	if s.MaxRiskRounds < 1 {
		return errors.Errorf("max_risk_discuss_rounds must be >= 1, got %d", s.MaxRiskRounds)
	}
	if s.AnalysisDepth < 1 || s.AnalysisDepth > 3 {
		return errors.Errorf("analysis_depth must be in [1,3], got %d", s.AnalysisDepth)
	}
	if s.Retry.MaxRetries < 0 {
		return errors.New("retry.max_retries must be >= 0")
	}
	return nil
}

// Clone returns a deep copy. Every Session holds its own clone so later
// configuration edits never leak into running sessions.
func (s *Settings) Clone() *Settings {
	return clone.Clone(s).(*Settings)
}

// Dump renders the settings as yaml. Useful for logging the effective
// configuration of a session.
func (s *Settings) Dump() (string, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return "", errors.Wrap(err, "could not marshal settings")
	}
	return string(out), nil
}

// TTLFor returns the cache TTL for a data kind. It is the intended
// dataflows.WithTTLFunc hook when assembling the resolver.
func (s *Settings) TTLFor(kind string) time.Duration {
	if ttl, ok := s.CacheTTL[kind]; ok {
		return ttl
	}
	return s.DefaultTTL
}
