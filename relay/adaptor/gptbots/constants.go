package gptbots

const (
	CreateConversationPath = "/v1/conversation"
	SendMessagePath        = "/v2/conversation/message"

	ResponseModeBlocking = "blocking"

	// maxErrorBodyBytes bounds how much of a failed response is read for its message.
	maxErrorBodyBytes = 64 << 10
	// maxResponseBodyBytes bounds a successful message response.
	maxResponseBodyBytes = 16 << 20
)
