package pipeline

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/mydailyprop/internal/engine"
	"github.com/sells-group/mydailyprop/internal/llm"
	"github.com/sells-group/mydailyprop/internal/llm/llmtest"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) (string, error) {
	args := m.Called(ctx, url)
	return args.String(0), args.Error(1)
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) ExtractStructured(ctx context.Context, raw string, schema llm.Schema) (json.RawMessage, error) {
	args := m.Called(ctx, raw, schema)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *mockGenerator) Generate(ctx context.Context, promptID string, vars map[string]string) (llm.TextStream, error) {
	args := m.Called(ctx, promptID, vars)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(llm.TextStream), args.Error(1)
}

const (
	testURL = "https://www.lemonde.fr/editorial"
	rawPage = "<html>page</html>"
	docJSON = `{"title":"T","outlet":"Le Monde","date":"01/01-2024","language":"French","lede":"L","body":"B"}`
)

func newRun(t *testing.T, f *mockFetcher, g *mockGenerator) (*engine.Run, []engine.Event) {
	t.Helper()

	graph, err := New(f, g)
	require.NoError(t, err)
	eng, err := engine.New(graph, engine.WithLogger(zap.NewNop()), engine.WithStageTimeout(5*time.Second))
	require.NoError(t, err)

	run, err := eng.StartRun(context.Background(), testURL)
	require.NoError(t, err)

	var events []engine.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-run.Events():
			if !ok {
				return run, events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("run did not finish")
		}
	}
}

func stream(parts ...string) *llmtest.Stream {
	return llmtest.NewStream(parts...)
}
