package gptbots

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"

	"github.com/gptbots-qa/agent-tester/relay/model"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    string
		wantErr error
	}{
		{
			name:   "object content",
			output: `[{"from":"assistant","type":"text","content":{"text":"4"}}]`,
			want:   "4",
		},
		{
			name:   "skips blank outputs",
			output: `[{"content":{"text":"  "}},{"content":{"text":"second"}}]`,
			want:   "second",
		},
		{
			name:   "array of parts",
			output: `[{"content":[{"type":"image","url":"x"},{"type":"text","text":"from parts"}]}]`,
			want:   "from parts",
		},
		{
			name:   "plain string content",
			output: `[{"content":"plain"}]`,
			want:   "plain",
		},
		{
			name:   "nested content branch",
			output: `[{"content":{"content":{"text":"deep"}}}]`,
			want:   "deep",
		},
		{
			name:    "empty output array",
			output:  `[]`,
			wantErr: ErrEmptyResponse,
		},
		{
			name:    "empty text",
			output:  `[{"content":{"text":""}}]`,
			wantErr: ErrEmptyResponse,
		},
		{
			name:    "no text field anywhere",
			output:  `[{"content":{"card":{"title":"x"}}}]`,
			wantErr: ErrUnexpectedShape,
		},
		{
			name:    "output not an array",
			output:  `{"text":"x"}`,
			wantErr: ErrUnexpectedShape,
		},
		{
			name:    "output missing",
			output:  ``,
			wantErr: ErrUnexpectedShape,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			payload := &MessageResponse{Output: json.RawMessage(tc.output)}
			got, err := ExtractText(payload)
			if tc.wantErr != nil {
				require.True(t, errors.Is(err, tc.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseMessageResponse(t *testing.T) {
	ok := ParseMessageResponse(http.StatusOK, []byte(`{"message_id":"m1","output":[{"content":{"text":"hi"}}]}`))
	require.Equal(t, ResultSuccess, ok.Kind)
	require.Equal(t, "m1", ok.Payload.MessageID)

	malformed := ParseMessageResponse(http.StatusOK, []byte(`<html>gateway</html>`))
	require.Equal(t, ResultMalformed, malformed.Kind)
	require.Nil(t, malformed.Payload)

	remote := ParseMessageResponse(http.StatusForbidden, []byte(`{"code":40300,"message":"api key disabled"}`))
	require.Equal(t, ResultTransport, remote.Kind)
	require.Equal(t, "api key disabled", remote.Err.Error())

	bare := ParseMessageResponse(http.StatusBadGateway, nil)
	require.Equal(t, "send message failed (HTTP 502)", bare.Err.Error())
}

func TestParseUsage(t *testing.T) {
	testCases := []struct {
		name       string
		raw        string
		wantTokens int64
		wantCost   float64
	}{
		{"numbers", `{"tokens":{"total_tokens":321},"credits":{"total_credits":0.0125}}`, 321, 0.0125},
		{"numeric strings", `{"tokens":{"total_tokens":"40"},"credits":"n/a"}`, 40, 0},
		{"absent", ``, 0, 0},
		{"infinite credits", `{"tokens":{"total_tokens":5},"credits":{"total_credits":"inf"}}`, 5, 0},
		{"overflowing credits", `{"credits":{"total_credits":"1e400"}}`, 0, 0},
		{"nan credits", `{"credits":{"total_credits":"NaN"}}`, 0, 0},
		{"tokens beyond int64", `{"tokens":{"total_tokens":"1e30"},"credits":{"total_credits":0.5}}`, 0, 0.5},
		{"negative values", `{"tokens":{"total_tokens":-3},"credits":{"total_credits":-1}}`, 0, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tokens, cost := ParseUsage(json.RawMessage(tc.raw))
			require.Equal(t, tc.wantTokens, tokens)
			require.InDelta(t, tc.wantCost, cost, 1e-12)
		})
	}
}

func TestClassifyUnreadableUsageStaysSuccessful(t *testing.T) {
	outcome := Classify(ParseMessageResponse(http.StatusOK, []byte(
		`{"output":[{"content":{"text":"ok"}}],"usage":{"tokens":{"total_tokens":"1e30"},"credits":{"total_credits":"inf"}}}`)))
	require.True(t, outcome.Success)
	require.Zero(t, outcome.Tokens)
	require.Zero(t, outcome.Cost)
}

func TestClassify(t *testing.T) {
	success := Classify(ParseMessageResponse(http.StatusOK,
		[]byte(`{"message_id":"m1","output":[{"content":{"text":"4"}}],"usage":{"tokens":{"total_tokens":10}}}`)))
	require.True(t, success.Success)
	require.Equal(t, "4", success.ResponseText)
	require.Equal(t, int64(10), success.Tokens)
	require.Empty(t, success.ErrorKind)

	empty := Classify(ParseMessageResponse(http.StatusOK, []byte(`{"message_id":"m2","output":[]}`)))
	require.False(t, empty.Success)
	require.Equal(t, model.ErrorKindEmptyResponse, empty.ErrorKind)
	require.Equal(t, "empty response", empty.ErrorMessage)
	require.Equal(t, "m2", empty.MessageID)

	shape := Classify(ParseMessageResponse(http.StatusOK, []byte(`{"message_id":"m3"}`)))
	require.Equal(t, model.ErrorKindMalformedPayload, shape.ErrorKind)

	status := Classify(ParseMessageResponse(http.StatusTooManyRequests, []byte(`{"message":"slow down"}`)))
	require.Equal(t, model.ErrorKindHTTPStatus, status.ErrorKind)
	require.Equal(t, "slow down", status.ErrorMessage)

	transport := Classify(TransportFailure(errors.New("connection reset")))
	require.Equal(t, model.ErrorKindTransport, transport.ErrorKind)
}
