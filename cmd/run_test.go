//go:build !integration

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/mydailyprop/internal/config"
	"github.com/sells-group/mydailyprop/internal/engine"
)

func TestStreamRun_Text(t *testing.T) {
	var out bytes.Buffer
	err := streamRun(context.Background(), testEngine(t, nil, nil), testURL, formatText, &out)
	require.NoError(t, err)

	text := out.String()
	titles := []string{
		"Editorial contents (extracted)",
		"Journalistic evaluation (generated)",
		"Psychological analysis (generated)",
		"Propaganda synthesis (generated)",
	}
	last := -1
	for _, title := range titles {
		idx := strings.Index(text, title)
		require.GreaterOrEqual(t, idx, 0, "missing card %q", title)
		assert.Greater(t, idx, last, "card %q out of order", title)
		last = idx
	}

	assert.Contains(t, text, "# T (The Guardian, 01/01-2024 - English)")
	assert.Contains(t, text, "Critique")
	assert.Contains(t, text, "Psycho")
	assert.Contains(t, text, "Synth")
	assert.Less(t, strings.Index(text, "Critique"), strings.Index(text, "Psychological analysis (generated)"))
}

func TestStreamRun_JSON(t *testing.T) {
	var out bytes.Buffer
	err := streamRun(context.Background(), testEngine(t, nil, nil), testURL, formatJSON, &out)
	require.NoError(t, err)

	var events []wireEvent
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var ev wireEvent
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		events = append(events, ev)
	}
	require.NotEmpty(t, events)

	assert.Equal(t, eventStageDone, events[0].Type)
	assert.Equal(t, "extract", events[0].Stage)
	require.NotNil(t, events[0].Document)
	assert.Equal(t, "T", events[0].Document.Title)
	assert.Equal(t, eventRunDone, events[len(events)-1].Type)

	for i := 1; i < len(events); i++ {
		assert.Greater(t, events[i].Seq, events[i-1].Seq)
		assert.Equal(t, events[0].RunID, events[i].RunID)
	}
}

func TestStreamRun_Failure(t *testing.T) {
	boom := errors.New("dial tcp: connection refused")

	var out bytes.Buffer
	err := streamRun(context.Background(), testEngine(t, boom, nil), testURL, formatText, &out)
	require.Error(t, err)

	var fe *engine.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, out.String(), "Run failed at extract")
}

func TestStreamRun_InvalidInput(t *testing.T) {
	var out bytes.Buffer
	err := streamRun(context.Background(), testEngine(t, nil, nil), "not a url", formatJSON, &out)
	require.Error(t, err)

	var ie *engine.InvalidInputError
	require.ErrorAs(t, err, &ie)
	assert.Empty(t, out.String())
}

func TestStreamRun_UnknownFormat(t *testing.T) {
	err := streamRun(context.Background(), testEngine(t, nil, nil), testURL, "xml", &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown format "xml"`)
}

func TestRunCmd_RunE_FailsOnValidation(t *testing.T) {
	cfg = &config.Config{LLM: config.LLMConfig{Provider: "nope"}}

	runCmd.SetContext(context.Background())
	defer runCmd.SetContext(context.TODO())

	runURL = testURL
	runFormat = formatText
	defer func() { runURL = "" }()

	err := runCmd.RunE(runCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config:")
}

func TestRunCmd_RunE_RejectsFormat(t *testing.T) {
	runCmd.SetContext(context.Background())
	defer runCmd.SetContext(context.TODO())

	runFormat = "yaml"
	defer func() { runFormat = formatText }()

	err := runCmd.RunE(runCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown format "yaml"`)
}
