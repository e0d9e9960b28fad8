package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gptbots-qa/agent-tester/common"
	"github.com/gptbots-qa/agent-tester/common/graceful"
)

// GetStatus reports liveness. running is nil when no TestRunner is mounted.
func GetStatus(runner *TestRunner) gin.HandlerFunc {
	return func(c *gin.Context) {
		data := gin.H{
			"version":    common.Version,
			"start_time": common.StartTime,
			"draining":   graceful.IsDraining(),
		}
		if runner != nil {
			data["running_runs"] = runner.Registry.Running()
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "",
			"data":    data,
		})
	}
}
