package helper

import (
	"fmt"

	gutils "github.com/Laisky/go-utils/v5"
)

const RequestIdKey = "X-Agent-Tester-Request-Id"

func GenRequestID() string {
	return gutils.UUID7()
}

func MessageWithRequestId(message string, id string) string {
	if id == "" {
		return message
	}
	return fmt.Sprintf("%s (request id: %s)", message, id)
}
