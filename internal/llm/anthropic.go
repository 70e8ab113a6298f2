package llm

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/mydailyprop/internal/prompt"
	"github.com/sells-group/mydailyprop/pkg/anthropic"
)

// Anthropic implements Generator on the Messages API. Structured extraction
// forces a single tool call whose input schema is the declared schema.
type Anthropic struct {
	client   anthropic.Client
	prompts  *prompt.Catalog
	settings Settings
	limiter  *rate.Limiter
}

// NewAnthropic creates an Anthropic-backed generator. limiter may be nil.
func NewAnthropic(client anthropic.Client, prompts *prompt.Catalog, settings Settings, limiter *rate.Limiter) *Anthropic {
	return &Anthropic{
		client:   client,
		prompts:  prompts,
		settings: settings,
		limiter:  limiter,
	}
}

// ExtractStructured implements Generator.
func (a *Anthropic) ExtractStructured(ctx context.Context, raw string, schema Schema) (json.RawMessage, error) {
	p, err := a.prompts.Render(schema.Prompt, map[string]string{"json_data": raw})
	if err != nil {
		return nil, eris.Wrap(err, "llm: anthropic extract")
	}

	req := a.request(p)
	req.Tools = []anthropic.Tool{{
		Name:        schema.Name,
		Description: schema.Description,
		Properties:  schema.Properties(),
		Required:    schema.RequiredFields(),
	}}
	req.ToolChoice = schema.Name

	if err := wait(ctx, a.limiter); err != nil {
		return nil, err
	}

	resp, err := a.client.CreateMessage(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "llm: anthropic extract")
	}
	resp.Usage.LogCost(a.settings.Model, schema.Prompt)

	input, ok := resp.ToolInput(schema.Name)
	if !ok {
		return nil, eris.Errorf("llm: anthropic extract: model did not call %s (stop reason %s)", schema.Name, resp.StopReason)
	}
	return input, nil
}

// Generate implements Generator.
func (a *Anthropic) Generate(ctx context.Context, promptID string, vars map[string]string) (TextStream, error) {
	p, err := a.prompts.Render(promptID, vars)
	if err != nil {
		return nil, eris.Wrap(err, "llm: anthropic generate")
	}

	if err := wait(ctx, a.limiter); err != nil {
		return nil, err
	}

	s, err := a.client.StreamMessage(ctx, a.request(p))
	if err != nil {
		return nil, eris.Wrapf(err, "llm: anthropic generate %s", promptID)
	}
	return &anthropicStream{stream: s, model: a.settings.Model, prompt: promptID}, nil
}

func (a *Anthropic) request(p prompt.Rendered) anthropic.MessageRequest {
	temp := a.settings.Temperature
	req := anthropic.MessageRequest{
		Model:       a.settings.Model,
		MaxTokens:   a.settings.MaxTokens,
		Temperature: &temp,
		Messages:    []anthropic.Message{{Role: "user", Content: p.User}},
	}
	if p.System != "" {
		if a.settings.PromptCacheTTL != "" {
			req.System = anthropic.BuildCachedSystemBlocks(p.System, a.settings.PromptCacheTTL)
		} else {
			req.System = []anthropic.SystemBlock{{Text: p.System}}
		}
	}
	return req
}

type anthropicStream struct {
	stream anthropic.MessageStream
	model  string
	prompt string
	chunk  string
	done   bool
}

func (s *anthropicStream) Next() bool {
	if s.done {
		return false
	}
	if s.stream.Next() {
		s.chunk = s.stream.Text()
		return true
	}
	s.done = true
	s.chunk = ""
	if s.stream.Err() == nil {
		if m := s.stream.Message(); m != nil {
			m.Usage.LogCost(s.model, s.prompt)
			if m.StopReason == "max_tokens" {
				zap.L().Warn("llm: completion truncated at max tokens",
					zap.String("prompt", s.prompt),
					zap.String("model", s.model),
				)
			}
		}
	}
	return false
}

func (s *anthropicStream) Chunk() string { return s.chunk }

func (s *anthropicStream) Err() error {
	if err := s.stream.Err(); err != nil {
		return eris.Wrapf(err, "llm: anthropic stream %s", s.prompt)
	}
	return nil
}

func (s *anthropicStream) Close() error {
	return s.stream.Close()
}
