package gptbots

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"

	"github.com/gptbots-qa/agent-tester/common/helper"
	"github.com/gptbots-qa/agent-tester/common/logger"
	"github.com/gptbots-qa/agent-tester/monitor"
	"github.com/gptbots-qa/agent-tester/relay/meta"
	"github.com/gptbots-qa/agent-tester/relay/model"
)

// Client calls GPTBots-style agents. It keeps no per-call state and is safe
// for concurrent use by any number of runs.
type Client struct {
	httpClient *http.Client
	// timeout bounds one whole call, both round trips included. Zero disables it.
	timeout time.Duration
}

func NewClient(httpClient *http.Client, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient, timeout: timeout}
}

// Call runs create-conversation then send-message for one question. It never
// returns an error: every failure is folded into a failed outcome.
// ResponseTimeMs covers both round trips from the start of the first one.
func (c *Client) Call(ctx context.Context, target meta.Target, userID string, question string) model.AgentCallOutcome {
	start := time.Now()
	if userID == "" {
		userID = meta.DefaultUserID()
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	outcome := c.call(ctx, target, userID, question)
	outcome.ResponseTimeMs = helper.CalcElapsedTime(start)

	monitor.RecordAgentCall(string(target.Region), outcome.Success, string(outcome.ErrorKind), time.Since(start))
	if !outcome.Success {
		logger.Logger.Debug("agent call failed",
			zap.String("region", string(target.Region)),
			zap.String("conversation_id", outcome.ConversationID),
			zap.String("error_kind", string(outcome.ErrorKind)),
			zap.String("error", outcome.ErrorMessage))
	}
	return outcome
}

func (c *Client) call(ctx context.Context, target meta.Target, userID, question string) model.AgentCallOutcome {
	conversationID, failure := c.createConversation(ctx, target, userID)
	if failure != nil {
		return *failure
	}

	result := c.sendMessage(ctx, target, conversationID, question)
	outcome := Classify(result)
	outcome.ConversationID = conversationID
	if result.Kind == ResultTransport && result.StatusCode == 0 {
		outcome.ErrorMessage = transportMessage(ctx, result.Err)
	}
	return outcome
}

// createConversation returns the conversation id, or the failed outcome that ends the call.
func (c *Client) createConversation(ctx context.Context, target meta.Target, userID string) (string, *model.AgentCallOutcome) {
	status, body, err := c.post(ctx, target, CreateConversationPath, CreateConversationRequest{UserID: userID})
	if err != nil {
		return "", &model.AgentCallOutcome{
			ErrorKind:    model.ErrorKindTransport,
			ErrorMessage: transportMessage(ctx, err),
		}
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return "", &model.AgentCallOutcome{
			ErrorKind:    model.ErrorKindHTTPStatus,
			ErrorMessage: remoteErrorMessage(body, "create conversation failed", status),
		}
	}

	var resp CreateConversationResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.ConversationID == "" {
		return "", &model.AgentCallOutcome{
			ErrorKind:    model.ErrorKindMissingConversationID,
			ErrorMessage: "no conversation_id in create conversation response",
		}
	}
	return resp.ConversationID, nil
}

func (c *Client) sendMessage(ctx context.Context, target meta.Target, conversationID, question string) MessageResult {
	req := SendMessageRequest{
		ConversationID: conversationID,
		ResponseMode:   ResponseModeBlocking,
		Messages: []Message{{
			Role:    "user",
			Content: []ContentPart{{Type: "text", Text: question}},
		}},
	}

	status, body, err := c.post(ctx, target, SendMessagePath, req)
	if err != nil {
		return TransportFailure(err)
	}
	return ParseMessageResponse(status, body)
}

func (c *Client) post(ctx context.Context, target meta.Target, path string, payload any) (int, []byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.BaseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return 0, nil, errors.Wrap(err, "new request")
	}
	req.Header.Set("Authorization", "Bearer "+target.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "post %s", path)
	}
	defer resp.Body.Close()

	limit := int64(maxResponseBodyBytes)
	if resp.StatusCode >= http.StatusMultipleChoices {
		limit = maxErrorBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return 0, nil, errors.Wrapf(err, "read %s response", path)
	}
	return resp.StatusCode, body, nil
}

func transportMessage(ctx context.Context, err error) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "request timed out: " + errorText(err)
	}
	return errorText(err)
}
