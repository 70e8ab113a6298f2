package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/mydailyprop/internal/prompt"
	"github.com/sells-group/mydailyprop/pkg/anthropic"
)

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func (m *mockAnthropicClient) StreamMessage(ctx context.Context, req anthropic.MessageRequest) (anthropic.MessageStream, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(anthropic.MessageStream), args.Error(1)
}

// fakeMessageStream replays fixed text deltas.
type fakeMessageStream struct {
	parts  []string
	err    error
	pos    int
	closed bool
	usage  anthropic.TokenUsage
}

func (s *fakeMessageStream) Next() bool {
	if s.pos >= len(s.parts) {
		return false
	}
	s.pos++
	return true
}

func (s *fakeMessageStream) Text() string { return s.parts[s.pos-1] }

func (s *fakeMessageStream) Message() *anthropic.MessageResponse {
	return &anthropic.MessageResponse{StopReason: "end_turn", Usage: s.usage}
}

func (s *fakeMessageStream) Err() error {
	if s.pos >= len(s.parts) {
		return s.err
	}
	return nil
}

func (s *fakeMessageStream) Close() error {
	s.closed = true
	return nil
}

var testSchema = Schema{
	Name:        "editorial",
	Description: "An editorial",
	Prompt:      prompt.GetContents,
	Fields: []SchemaField{
		{Name: "title", Type: TypeString, Description: "Title", Required: true},
		{Name: "outlet", Type: TypeString, Description: "Outlet", Enum: []string{"Le Monde", "The Guardian"}},
	},
}

func testCatalog(t *testing.T) *prompt.Catalog {
	t.Helper()
	c, err := prompt.Default()
	require.NoError(t, err)
	return c
}

func drain(t *testing.T, s TextStream) []string {
	t.Helper()
	var out []string
	for s.Next() {
		out = append(out, s.Chunk())
	}
	return out
}
