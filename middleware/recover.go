package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/gptbots-qa/agent-tester/common/helper"
)

// PanicRecover turns a handler panic into a 500 envelope. A streaming response
// that already started is only terminated.
func PanicRecover() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				gmw.GetLogger(c).Error("panic detected",
					zap.Any("panic", err),
					zap.String("stacktrace", string(debug.Stack())),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path))
				if c.Writer.Written() {
					c.Abort()
					return
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"message": helper.MessageWithRequestId(fmt.Sprintf("panic detected: %v", err), c.GetString(helper.RequestIdKey)),
				})
			}
		}()
		c.Next()
	}
}
