package middleware

import (
	"net/http"

	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/gptbots-qa/agent-tester/common/helper"
)

// AbortWithError aborts the request with the {"success": false} envelope.
// Server errors carry the request id so they can be found in the logs.
func AbortWithError(c *gin.Context, statusCode int, err error) {
	logger := gmw.GetLogger(c)
	message := err.Error()
	if statusCode >= http.StatusInternalServerError {
		logger.Error("server abort", zap.Int("status_code", statusCode), zap.Error(err))
		message = helper.MessageWithRequestId(message, c.GetString(helper.RequestIdKey))
	} else {
		logger.Debug("client error", zap.Int("status_code", statusCode), zap.Error(err))
	}

	c.AbortWithStatusJSON(statusCode, gin.H{
		"success": false,
		"message": message,
	})
}
