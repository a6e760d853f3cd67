// Package factory builds a reasoning engine from the configured provider.
package factory

import (
	"github.com/pkg/errors"

	"github.com/go-go-golems/gekko/pkg/config"
	"github.com/go-go-golems/gekko/pkg/reasoning"
	"github.com/go-go-golems/gekko/pkg/reasoning/openaichat"
)

// NewEngineFromSettings maps llm_provider onto a backend. "openai" covers
// any endpoint speaking the chat completions protocol via base_url; "static"
// is the deterministic in-process engine.
func NewEngineFromSettings(s *config.Settings) (reasoning.Engine, error) {
	switch s.LLMProvider {
	case "openai":
		return openaichat.NewEngine(s.APIKey, s.BaseURL)
	case "static":
		return reasoning.NewStaticEngine(), nil
	default:
		return nil, errors.Errorf("unknown llm_provider %q", s.LLMProvider)
	}
}
