package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, q *eventQueue) []Event {
	t.Helper()
	var out []Event
	for {
		select {
		case ev, ok := <-q.out:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-time.After(2 * time.Second):
			t.Fatal("queue did not close")
			return nil
		}
	}
}

func TestEventQueue_OrderAndSeal(t *testing.T) {
	t.Parallel()

	q := newEventQueue("run-1")
	for _, text := range []string{"a", "b", "c"} {
		require.True(t, q.push(Chunk{Stage: "s", Text: text}))
	}
	require.True(t, q.push(RunDone{}))
	assert.False(t, q.push(Chunk{Stage: "s", Text: "late"}))

	events := drain(t, q)
	require.Len(t, events, 4)
	for i, ev := range events {
		assert.Equal(t, "run-1", ev.Meta().RunID)
		assert.Equal(t, uint64(i+1), ev.Meta().Seq)
	}
	assert.Equal(t, "a", events[0].(Chunk).Text)
	assert.IsType(t, RunDone{}, events[3])
}

func TestEventQueue_PushNeverBlocks(t *testing.T) {
	t.Parallel()

	q := newEventQueue("run-2")
	for range 10000 {
		q.push(Chunk{Stage: "s", Text: "x"})
	}
	q.push(RunFailed{Stage: "s"})
	assert.Len(t, drain(t, q), 10001)
}

func TestEventQueue_Close(t *testing.T) {
	t.Parallel()

	q := newEventQueue("run-3")
	q.push(Chunk{Stage: "s", Text: "x"})
	q.close()
	q.close()

	// at most the already queued chunk is delivered
	assert.LessOrEqual(t, len(drain(t, q)), 1)
}

func TestIsTerminalAndEventStage(t *testing.T) {
	t.Parallel()

	assert.True(t, IsTerminal(RunDone{}))
	assert.True(t, IsTerminal(RunFailed{Stage: "x"}))
	assert.False(t, IsTerminal(Chunk{}))
	assert.False(t, IsTerminal(StageDone{}))

	assert.Equal(t, "a", EventStage(Chunk{Stage: "a"}))
	assert.Equal(t, "b", EventStage(StageDone{Stage: "b"}))
	assert.Equal(t, "c", EventStage(RunFailed{Stage: "c"}))
	assert.Empty(t, EventStage(RunDone{}))
}
