package controller

import (
	"net/http"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/gptbots-qa/agent-tester/middleware"
	relaycontroller "github.com/gptbots-qa/agent-tester/relay/controller"
)

// GetRun handles GET /api/tests/runs/:runId.
func (r *TestRunner) GetRun(c *gin.Context) {
	runID := c.Param("runId")
	snapshot, err := r.Registry.Snapshot(gmw.Ctx(c), runID)
	if errors.Is(err, relaycontroller.ErrRunNotFound) {
		middleware.AbortWithError(c, http.StatusNotFound, errors.Wrapf(err, "run %s", runID))
		return
	}
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
		"data":    snapshot,
	})
}

// GetRunEvents handles GET /api/tests/runs/:runId/events. It replays the
// events a run owned by this instance has published so far.
func (r *TestRunner) GetRunEvents(c *gin.Context) {
	runID := c.Param("runId")
	handle, ok := r.Registry.Handle(runID)
	if !ok {
		middleware.AbortWithError(c, http.StatusNotFound,
			errors.Wrapf(relaycontroller.ErrRunNotFound, "run %s", runID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
		"data":    handle.Events(),
	})
}

// CancelRun handles DELETE /api/tests/runs/:runId. Only runs owned by this
// instance can be cancelled.
func (r *TestRunner) CancelRun(c *gin.Context) {
	runID := c.Param("runId")
	accepted, err := r.Registry.Cancel(runID)
	if errors.Is(err, relaycontroller.ErrRunNotFound) {
		middleware.AbortWithError(c, http.StatusNotFound, errors.Wrapf(err, "run %s", runID))
		return
	}
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, err)
		return
	}
	if !accepted {
		middleware.AbortWithError(c, http.StatusConflict, errors.Errorf("run %s already finished", runID))
		return
	}

	gmw.GetLogger(c).Info("test run cancel requested", zap.String("run_id", runID))
	handle, _ := r.Registry.Handle(runID)
	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "",
		"data":    handle.Snapshot(),
	})
}
