package llm

import (
	"github.com/rotisserie/eris"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/sells-group/mydailyprop/internal/config"
	"github.com/sells-group/mydailyprop/internal/prompt"
	"github.com/sells-group/mydailyprop/pkg/anthropic"
)

// FromConfig builds the generator selected by llm.provider. All calls share
// one limiter.
func FromConfig(cfg *config.Config, prompts *prompt.Catalog) (Generator, error) {
	var limiter *rate.Limiter
	if cfg.LLM.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.LLM.RequestsPerSecond), max(1, cfg.LLM.Burst))
	}

	settings := Settings{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}

	switch cfg.LLM.Provider {
	case config.ProviderAnthropic:
		settings.Model = cfg.Anthropic.Model
		settings.PromptCacheTTL = cfg.Anthropic.PromptCacheTTL
		return NewAnthropic(anthropic.NewClient(cfg.Anthropic.Key), prompts, settings, limiter), nil
	case config.ProviderOpenAI:
		settings.Model = cfg.OpenAI.Model
		oc := openai.DefaultConfig(cfg.OpenAI.Key)
		if cfg.OpenAI.BaseURL != "" {
			oc.BaseURL = cfg.OpenAI.BaseURL
		}
		return NewOpenAI(openai.NewClientWithConfig(oc), prompts, settings, limiter), nil
	default:
		return nil, eris.Errorf("llm: unknown provider %q", cfg.LLM.Provider)
	}
}
