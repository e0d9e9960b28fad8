package gptbots

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gptbots-qa/agent-tester/relay/meta"
	"github.com/gptbots-qa/agent-tester/relay/model"
)

type fakeAgent struct {
	createCalls  atomic.Int32
	messageCalls atomic.Int32

	createStatus int
	createBody   string
	messageDelay time.Duration
	messageBody  string
	lastMessage  atomic.Value
}

func (f *fakeAgent) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(CreateConversationPath, func(w http.ResponseWriter, r *http.Request) {
		f.createCalls.Add(1)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req CreateConversationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.UserID)

		status := f.createStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		body := f.createBody
		if body == "" {
			body = `{"conversation_id":"conv-1"}`
		}
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc(SendMessagePath, func(w http.ResponseWriter, r *http.Request) {
		f.messageCalls.Add(1)

		var req SendMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.lastMessage.Store(req)

		if f.messageDelay > 0 {
			select {
			case <-time.After(f.messageDelay):
			case <-r.Context().Done():
				return
			}
		}
		_, _ = w.Write([]byte(f.messageBody))
	})
	return mux
}

func newTestTarget(url string) meta.Target {
	return meta.Target{APIKey: "test-key", Region: meta.RegionCustom, BaseURL: url}
}

func TestCallSuccess(t *testing.T) {
	agent := &fakeAgent{
		messageBody: `{"message_id":"msg-1","output":[{"content":{"text":"4"}}],"usage":{"tokens":{"total_tokens":12},"credits":{"total_credits":0.5}}}`,
	}
	srv := httptest.NewServer(agent.handler(t))
	defer srv.Close()

	client := NewClient(srv.Client(), time.Second)
	outcome := client.Call(context.Background(), newTestTarget(srv.URL), "qa-user", "What is 2+2?")

	require.True(t, outcome.Success)
	require.Equal(t, "4", outcome.ResponseText)
	require.Empty(t, outcome.ErrorMessage)
	require.Equal(t, "conv-1", outcome.ConversationID)
	require.Equal(t, "msg-1", outcome.MessageID)
	require.Equal(t, int64(12), outcome.Tokens)
	require.InDelta(t, 0.5, outcome.Cost, 1e-9)
	require.Positive(t, outcome.ResponseTimeMs)

	sent := agent.lastMessage.Load().(SendMessageRequest)
	require.Equal(t, "conv-1", sent.ConversationID)
	require.Equal(t, ResponseModeBlocking, sent.ResponseMode)
	require.Len(t, sent.Messages, 1)
	require.Equal(t, "user", sent.Messages[0].Role)
	require.Equal(t, []ContentPart{{Type: "text", Text: "What is 2+2?"}}, sent.Messages[0].Content)
}

func TestCallCreateConversationFailureSkipsMessage(t *testing.T) {
	agent := &fakeAgent{createStatus: http.StatusUnauthorized, createBody: `{"message":"invalid api key"}`}
	srv := httptest.NewServer(agent.handler(t))
	defer srv.Close()

	outcome := NewClient(srv.Client(), time.Second).Call(context.Background(), newTestTarget(srv.URL), "", "q")

	require.False(t, outcome.Success)
	require.Equal(t, model.ErrorKindHTTPStatus, outcome.ErrorKind)
	require.Equal(t, "invalid api key", outcome.ErrorMessage)
	require.Equal(t, int32(1), agent.createCalls.Load())
	require.Equal(t, int32(0), agent.messageCalls.Load())
}

func TestCallMissingConversationID(t *testing.T) {
	agent := &fakeAgent{createBody: `{}`}
	srv := httptest.NewServer(agent.handler(t))
	defer srv.Close()

	outcome := NewClient(srv.Client(), time.Second).Call(context.Background(), newTestTarget(srv.URL), "", "q")

	require.False(t, outcome.Success)
	require.Equal(t, model.ErrorKindMissingConversationID, outcome.ErrorKind)
	require.Equal(t, int32(0), agent.messageCalls.Load())
}

func TestCallEmptyAnswerIsFailure(t *testing.T) {
	agent := &fakeAgent{messageBody: `{"message_id":"msg-2","output":[{"content":{"text":""}}]}`}
	srv := httptest.NewServer(agent.handler(t))
	defer srv.Close()

	outcome := NewClient(srv.Client(), time.Second).Call(context.Background(), newTestTarget(srv.URL), "", "q")

	require.False(t, outcome.Success)
	require.Equal(t, model.ErrorKindEmptyResponse, outcome.ErrorKind)
	require.Contains(t, outcome.ErrorMessage, "empty response")
	require.Equal(t, "conv-1", outcome.ConversationID)
	require.Equal(t, "msg-2", outcome.MessageID)
}

func TestCallTimeout(t *testing.T) {
	agent := &fakeAgent{messageDelay: time.Second, messageBody: `{"output":[{"content":{"text":"late"}}]}`}
	srv := httptest.NewServer(agent.handler(t))
	defer srv.Close()

	outcome := NewClient(srv.Client(), 50*time.Millisecond).Call(context.Background(), newTestTarget(srv.URL), "", "q")

	require.False(t, outcome.Success)
	require.Equal(t, model.ErrorKindTransport, outcome.ErrorKind)
	require.Contains(t, outcome.ErrorMessage, "timed out")
	require.GreaterOrEqual(t, outcome.ResponseTimeMs, int64(50))
}

func TestCallUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	outcome := NewClient(nil, time.Second).Call(context.Background(), newTestTarget(url), "", "q")
	require.False(t, outcome.Success)
	require.Equal(t, model.ErrorKindTransport, outcome.ErrorKind)
	require.NotEmpty(t, outcome.ErrorMessage)
}
