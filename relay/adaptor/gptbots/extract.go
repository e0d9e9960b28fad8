package gptbots

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/Laisky/errors/v2"

	"github.com/gptbots-qa/agent-tester/relay/model"
)

// ResultKind tags a MessageResult.
type ResultKind int

const (
	// ResultSuccess carries a decoded payload; the answer may still be empty.
	ResultSuccess ResultKind = iota
	// ResultMalformed means a 2xx body that is not a message response.
	ResultMalformed
	// ResultTransport means the exchange itself failed: network error or non-2xx status.
	ResultTransport
)

// MessageResult is the tagged union produced from one send-message exchange.
type MessageResult struct {
	Kind ResultKind
	// Payload is set only for ResultSuccess.
	Payload *MessageResponse
	// StatusCode is the HTTP status, zero when no response arrived.
	StatusCode int
	Err        error
}

var (
	ErrEmptyResponse   = errors.New("empty response")
	ErrUnexpectedShape = errors.New("response output has no recognizable text field")
)

// TransportFailure wraps an error raised before any response was read.
func TransportFailure(err error) MessageResult {
	return MessageResult{Kind: ResultTransport, Err: err}
}

// ParseMessageResponse classifies a send-message response.
func ParseMessageResponse(status int, body []byte) MessageResult {
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return MessageResult{
			Kind:       ResultTransport,
			StatusCode: status,
			Err:        errors.New(remoteErrorMessage(body, "send message failed", status)),
		}
	}

	payload := new(MessageResponse)
	if err := json.Unmarshal(body, payload); err != nil {
		return MessageResult{
			Kind:       ResultMalformed,
			StatusCode: status,
			Err:        errors.Wrap(err, "decode message response"),
		}
	}

	return MessageResult{Kind: ResultSuccess, StatusCode: status, Payload: payload}
}

// ExtractText returns the first non-blank text fragment in payload.Output.
// Outputs whose content is an object with "text", an array of parts, a plain
// string, or a nested "content" branch are all searched in order.
//
// ErrEmptyResponse means the shape was recognized but held no text;
// ErrUnexpectedShape means no text-bearing field was found at all.
func ExtractText(payload *MessageResponse) (string, error) {
	if payload == nil {
		return "", ErrUnexpectedShape
	}

	raw := bytes.TrimSpace(payload.Output)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", errors.Wrap(ErrUnexpectedShape, "output field missing")
	}

	var outputs []any
	if err := json.Unmarshal(raw, &outputs); err != nil {
		return "", errors.Wrap(ErrUnexpectedShape, "output is not an array")
	}
	if len(outputs) == 0 {
		return "", ErrEmptyResponse
	}

	recognized := false
	for _, output := range outputs {
		obj, ok := output.(map[string]any)
		if !ok {
			continue
		}
		content, ok := obj["content"]
		if !ok {
			continue
		}
		if text, found := textFrom(content, &recognized); found {
			return text, nil
		}
	}

	if recognized {
		return "", ErrEmptyResponse
	}
	return "", ErrUnexpectedShape
}

// textFrom walks one content branch depth-first. recognized is set once any
// text-bearing field is seen, blank or not.
func textFrom(node any, recognized *bool) (string, bool) {
	switch v := node.(type) {
	case string:
		*recognized = true
		return v, strings.TrimSpace(v) != ""
	case map[string]any:
		if text, ok := v["text"].(string); ok {
			*recognized = true
			if strings.TrimSpace(text) != "" {
				return text, true
			}
		}
		if nested, ok := v["content"]; ok {
			return textFrom(nested, recognized)
		}
	case []any:
		for _, item := range v {
			if text, ok := textFrom(item, recognized); ok {
				return text, true
			}
		}
	}
	return "", false
}

// ParseUsage reads usage.tokens.total_tokens and usage.credits.total_credits.
// Any missing or unreadable field counts as zero.
func ParseUsage(raw json.RawMessage) (tokens int64, cost float64) {
	if len(raw) == 0 {
		return 0, 0
	}

	var usage struct {
		Tokens  map[string]any `json:"tokens"`
		Credits map[string]any `json:"credits"`
	}
	if err := json.Unmarshal(raw, &usage); err != nil {
		return 0, 0
	}

	if n, ok := number(usage.Tokens["total_tokens"]); ok && n > 0 && n < math.MaxInt64 {
		tokens = int64(n)
	}
	if n, ok := number(usage.Credits["total_credits"]); ok && n > 0 {
		cost = n
	}
	return tokens, cost
}

// number accepts finite JSON numbers and numeric strings.
func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(n), 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Classify maps a MessageResult onto outcome fields. The caller sets timing and ids.
func Classify(result MessageResult) model.AgentCallOutcome {
	switch result.Kind {
	case ResultTransport:
		kind := model.ErrorKindTransport
		if result.StatusCode != 0 {
			kind = model.ErrorKindHTTPStatus
		}
		return model.AgentCallOutcome{ErrorKind: kind, ErrorMessage: errorText(result.Err)}
	case ResultMalformed:
		return model.AgentCallOutcome{
			ErrorKind:    model.ErrorKindMalformedPayload,
			ErrorMessage: "malformed response: " + errorText(result.Err),
		}
	}

	outcome := model.AgentCallOutcome{MessageID: result.Payload.MessageID}
	outcome.Tokens, outcome.Cost = ParseUsage(result.Payload.Usage)

	text, err := ExtractText(result.Payload)
	switch {
	case err == nil:
		outcome.Success = true
		outcome.ResponseText = text
	case errors.Is(err, ErrEmptyResponse):
		outcome.ErrorKind = model.ErrorKindEmptyResponse
		outcome.ErrorMessage = "empty response"
	default:
		outcome.ErrorKind = model.ErrorKindMalformedPayload
		outcome.ErrorMessage = "malformed response: " + err.Error()
	}
	return outcome
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// remoteErrorMessage prefers the {"message": ...} of an error body.
func remoteErrorMessage(body []byte, action string, status int) string {
	var remote ErrorResponse
	if err := json.Unmarshal(body, &remote); err == nil && strings.TrimSpace(remote.Message) != "" {
		return remote.Message
	}
	return action + " (HTTP " + strconv.Itoa(status) + ")"
}
