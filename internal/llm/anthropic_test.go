package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/mydailyprop/internal/prompt"
	"github.com/sells-group/mydailyprop/pkg/anthropic"
)

var testSettings = Settings{Model: "claude-sonnet-4-5-20250929", Temperature: 0.7, MaxTokens: 1024}

func TestAnthropic_ExtractStructured(t *testing.T) {
	client := &mockAnthropicClient{}
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.ToolChoice == "editorial" &&
			len(req.Tools) == 1 &&
			req.Tools[0].Required[0] == "title" &&
			len(req.System) == 1 && req.System[0].CacheControl == nil &&
			*req.Temperature == 0.7 &&
			strings.Contains(req.Messages[0].Content, "<p>page</p>")
	})).Return(&anthropic.MessageResponse{
		StopReason: "tool_use",
		Content: []anthropic.ContentBlock{
			{Type: "tool_use", Name: "editorial", Input: json.RawMessage(`{"title":"T"}`)},
		},
	}, nil)

	g := NewAnthropic(client, testCatalog(t), testSettings, nil)
	got, err := g.ExtractStructured(context.Background(), "<p>page</p>", testSchema)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"T"}`, string(got))
	client.AssertExpectations(t)
}

func TestAnthropic_ExtractStructured_PromptCache(t *testing.T) {
	client := &mockAnthropicClient{}
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.System[0].CacheControl != nil && req.System[0].CacheControl.TTL == "1h"
	})).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "tool_use", Name: "editorial", Input: json.RawMessage(`{}`)}},
	}, nil)

	settings := testSettings
	settings.PromptCacheTTL = "1h"
	_, err := NewAnthropic(client, testCatalog(t), settings, nil).ExtractStructured(context.Background(), "x", testSchema)
	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestAnthropic_ExtractStructured_NoToolCall(t *testing.T) {
	client := &mockAnthropicClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(&anthropic.MessageResponse{
		StopReason: "end_turn",
		Content:    []anthropic.ContentBlock{{Type: "text", Text: "I cannot"}},
	}, nil)

	_, err := NewAnthropic(client, testCatalog(t), testSettings, nil).ExtractStructured(context.Background(), "x", testSchema)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model did not call editorial")
}

func TestAnthropic_ExtractStructured_ClientError(t *testing.T) {
	boom := errors.New("overloaded")
	client := &mockAnthropicClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, boom)

	_, err := NewAnthropic(client, testCatalog(t), testSettings, nil).ExtractStructured(context.Background(), "x", testSchema)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestAnthropic_ExtractStructured_UnknownPrompt(t *testing.T) {
	client := &mockAnthropicClient{}
	schema := testSchema
	schema.Prompt = "missing"

	_, err := NewAnthropic(client, testCatalog(t), testSettings, nil).ExtractStructured(context.Background(), "x", schema)
	require.Error(t, err)
	client.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestAnthropic_Generate(t *testing.T) {
	stream := &fakeMessageStream{parts: []string{"Crit", "ique"}, usage: anthropic.TokenUsage{InputTokens: 10, OutputTokens: 2}}
	client := &mockAnthropicClient{}
	client.On("StreamMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return len(req.Tools) == 0 && strings.Contains(req.Messages[0].Content, "Editorial published on 01/01-2024")
	})).Return(stream, nil)

	g := NewAnthropic(client, testCatalog(t), testSettings, nil)
	s, err := g.Generate(context.Background(), prompt.Psychological, map[string]string{"editorial": "# T", "date": "01/01-2024"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Crit", "ique"}, drain(t, s))
	assert.False(t, s.Next())
	assert.Empty(t, s.Chunk())
	require.NoError(t, s.Err())
	require.NoError(t, s.Close())
	assert.True(t, stream.closed)
}

func TestAnthropic_Generate_StreamError(t *testing.T) {
	boom := errors.New("connection reset")
	client := &mockAnthropicClient{}
	client.On("StreamMessage", mock.Anything, mock.Anything).Return(&fakeMessageStream{parts: []string{"a"}, err: boom}, nil)

	s, err := NewAnthropic(client, testCatalog(t), testSettings, nil).Generate(context.Background(), prompt.Psychological, map[string]string{"editorial": "e", "date": "d"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, drain(t, s))
	require.Error(t, s.Err())
	assert.ErrorIs(t, s.Err(), boom)
	assert.Contains(t, s.Err().Error(), "anthropic stream psychological")
}

func TestAnthropic_Generate_MissingVariable(t *testing.T) {
	client := &mockAnthropicClient{}
	_, err := NewAnthropic(client, testCatalog(t), testSettings, nil).Generate(context.Background(), prompt.Synthesis, map[string]string{})
	require.Error(t, err)
	client.AssertNotCalled(t, "StreamMessage", mock.Anything, mock.Anything)
}

func TestAnthropic_RateLimiterHonoursContext(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(1<<62), 1)
	require.True(t, limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &mockAnthropicClient{}
	_, err := NewAnthropic(client, testCatalog(t), testSettings, limiter).Generate(ctx, prompt.Psychological, map[string]string{"editorial": "e", "date": "d"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter wait")
	client.AssertNotCalled(t, "StreamMessage", mock.Anything, mock.Anything)
}
