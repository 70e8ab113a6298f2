package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/rotisserie/eris"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/mydailyprop/internal/prompt"
)

// ChatClient is the subset of *openai.Client used here.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionStream, error)
}

// OpenAI implements Generator on the chat completions API. Structured
// extraction uses a json_schema response format.
type OpenAI struct {
	client   ChatClient
	prompts  *prompt.Catalog
	settings Settings
	limiter  *rate.Limiter
}

// NewOpenAI creates an OpenAI-backed generator. limiter may be nil.
func NewOpenAI(client ChatClient, prompts *prompt.Catalog, settings Settings, limiter *rate.Limiter) *OpenAI {
	return &OpenAI{
		client:   client,
		prompts:  prompts,
		settings: settings,
		limiter:  limiter,
	}
}

// ExtractStructured implements Generator.
func (o *OpenAI) ExtractStructured(ctx context.Context, raw string, schema Schema) (json.RawMessage, error) {
	p, err := o.prompts.Render(schema.Prompt, map[string]string{"json_data": raw})
	if err != nil {
		return nil, eris.Wrap(err, "llm: openai extract")
	}

	def := schema.Definition()
	req := o.request(p)
	req.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:        schema.Name,
			Description: schema.Description,
			Schema:      &def,
		},
	}

	if err := wait(ctx, o.limiter); err != nil {
		return nil, err
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "llm: openai extract")
	}
	logUsage(o.settings.Model, schema.Prompt, resp.Usage)

	if len(resp.Choices) == 0 {
		return nil, eris.New("llm: openai extract: no choices returned")
	}
	content := resp.Choices[0].Message.Content
	if !json.Valid([]byte(content)) {
		return nil, eris.Errorf("llm: openai extract: response is not JSON (finish reason %s)", resp.Choices[0].FinishReason)
	}
	return json.RawMessage(content), nil
}

// Generate implements Generator.
func (o *OpenAI) Generate(ctx context.Context, promptID string, vars map[string]string) (TextStream, error) {
	p, err := o.prompts.Render(promptID, vars)
	if err != nil {
		return nil, eris.Wrap(err, "llm: openai generate")
	}

	req := o.request(p)
	req.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	if err := wait(ctx, o.limiter); err != nil {
		return nil, err
	}

	s, err := o.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, eris.Wrapf(err, "llm: openai generate %s", promptID)
	}
	return &openaiStream{stream: s, model: o.settings.Model, prompt: promptID}, nil
}

func (o *OpenAI) request(p prompt.Rendered) openai.ChatCompletionRequest {
	var msgs []openai.ChatCompletionMessage
	if p.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: p.System})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: p.User})
	return openai.ChatCompletionRequest{
		Model:       o.settings.Model,
		Messages:    msgs,
		Temperature: float32(o.settings.Temperature),
		MaxTokens:   int(o.settings.MaxTokens),
	}
}

func logUsage(model, promptID string, u openai.Usage) {
	zap.L().Info("cost attribution",
		zap.String("model", model),
		zap.String("prompt", promptID),
		zap.Int("input_tokens", u.PromptTokens),
		zap.Int("output_tokens", u.CompletionTokens),
	)
}

type openaiStream struct {
	stream *openai.ChatCompletionStream
	model  string
	prompt string
	chunk  string
	err    error
	done   bool
}

func (s *openaiStream) Next() bool {
	for !s.done {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			s.done = true
			break
		}
		if err != nil {
			s.err = eris.Wrapf(err, "llm: openai stream %s", s.prompt)
			s.done = true
			break
		}
		if resp.Usage != nil {
			logUsage(s.model, s.prompt, *resp.Usage)
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		s.chunk = resp.Choices[0].Delta.Content
		return true
	}
	s.chunk = ""
	return false
}

func (s *openaiStream) Chunk() string { return s.chunk }

func (s *openaiStream) Err() error { return s.err }

func (s *openaiStream) Close() error {
	return s.stream.Close()
}
