package streaming

import (
	"bufio"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"

	"github.com/gptbots-qa/agent-tester/relay/model"
)

func TestStreamWriterSSE(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewStreamWriter(rec, FramingSSE, nil)

	w.Publish(Event{Type: EventConnected, RunID: "r1", Total: 2})
	w.Publish(Event{Type: EventProgress, Index: IntPtr(0), Current: 1, Total: 2, Question: "q"})

	require.True(t, rec.Flushed)
	frames := strings.Split(strings.TrimSuffix(rec.Body.String(), "\n\n"), "\n\n")
	require.Len(t, frames, 2)

	var first Event
	require.True(t, strings.HasPrefix(frames[0], "data: "))
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frames[0], "data: ")), &first))
	require.Equal(t, EventConnected, first.Type)
	require.Equal(t, 2, first.Total)

	require.Contains(t, frames[1], `"index":0`)
}

func TestStreamWriterNDJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewStreamWriter(rec, FramingNDJSON, nil)

	w.Publish(Event{Type: EventResult, Result: &model.TestResult{}, Stats: &Stats{Current: 1, Total: 1}})
	w.Publish(Event{Type: EventComplete, HistoryID: 3, Summary: &model.TestRunSummary{TotalQuestions: 1}})

	scanner := bufio.NewScanner(rec.Body)
	var types []EventType
	for scanner.Scan() {
		var ev Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		types = append(types, ev.Type)
	}
	require.Equal(t, []EventType{EventResult, EventComplete}, types)
	require.Equal(t, "application/x-ndjson", FramingNDJSON.ContentType())
}

type brokenWriter struct{ writes int }

func (b *brokenWriter) Write([]byte) (int, error) {
	b.writes++
	return 0, errors.New("broken pipe")
}

func TestStreamWriterStopsAfterConsumerGone(t *testing.T) {
	bw := &brokenWriter{}
	w := NewStreamWriter(bw, FramingSSE, nil)

	w.Publish(Event{Type: EventProgress})
	w.Publish(Event{Type: EventResult})
	w.Publish(Event{Type: EventComplete})

	require.True(t, w.Gone())
	require.Equal(t, 1, bw.writes)
}

func TestTeeAndRecorder(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	p := Tee(a, nil, b)

	p.Publish(Event{Type: EventConnected})
	p.Publish(Event{Type: EventError, Message: "boom"})

	require.Len(t, a.Events(), 2)
	require.Len(t, b.Events(), 2)
	last, ok := b.Last()
	require.True(t, ok)
	require.True(t, last.Type.Terminal())

	_, ok = (&Recorder{}).Last()
	require.False(t, ok)
}

func TestPreview(t *testing.T) {
	require.Equal(t, "short", Preview("short"))

	long := strings.Repeat("问", PreviewLimit+5)
	got := Preview(long)
	require.True(t, strings.HasSuffix(got, "..."))
	require.Len(t, []rune(got), PreviewLimit+3)
}
