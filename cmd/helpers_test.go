//go:build !integration

package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/mydailyprop/internal/engine"
	"github.com/sells-group/mydailyprop/internal/fetcher"
	"github.com/sells-group/mydailyprop/internal/llm/llmtest"
	"github.com/sells-group/mydailyprop/internal/prompt"
)

const (
	testURL = "https://www.theguardian.com/commentisfree/editorial"
	testDoc = `{"title":"T","outlet":"The Guardian","date":"01/01-2024","language":"English","lede":"L","body":"B"}`
)

func testGenerator() *llmtest.Generator {
	return &llmtest.Generator{
		Document: json.RawMessage(testDoc),
		Outputs: map[string][]string{
			prompt.Critique:      {"Crit", "ique"},
			prompt.Psychological: {"Psy", "cho"},
			prompt.Synthesis:     {"Syn", "th"},
		},
	}
}

func testEngine(t *testing.T, fetchErr error, metrics *engine.Metrics) *engine.Engine {
	t.Helper()

	f := fetcher.Func(func(context.Context, string) (string, error) {
		if fetchErr != nil {
			return "", fetchErr
		}
		return "<html>editorial</html>", nil
	})
	eng, err := buildEngine(f, testGenerator(), 5*time.Second, metrics)
	require.NoError(t, err)
	return eng
}
