package controller

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/gin-gonic/gin"

	"github.com/gptbots-qa/agent-tester/middleware"
	"github.com/gptbots-qa/agent-tester/model"
	"github.com/gptbots-qa/agent-tester/relay/report"
)

func historyID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		middleware.AbortWithError(c, http.StatusBadRequest, errors.Errorf("invalid history id %q", c.Param("id")))
		return 0, false
	}
	return id, true
}

func abortHistoryError(c *gin.Context, err error) {
	if model.IsRecordNotFound(err) {
		middleware.AbortWithError(c, http.StatusNotFound, err)
		return
	}
	middleware.AbortWithError(c, http.StatusInternalServerError, err)
}

// GetHistory handles GET /api/history/:id.
func GetHistory(c *gin.Context) {
	id, ok := historyID(c)
	if !ok {
		return
	}

	history, err := model.GetHistoryById(gmw.Ctx(c), id)
	if err != nil {
		abortHistoryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "",
		"data":    history,
	})
}

// DownloadHistoryReport handles GET /api/history/:id/download?format=excel|markdown|json.
func DownloadHistoryReport(c *gin.Context) {
	id, ok := historyID(c)
	if !ok {
		return
	}

	format := c.DefaultQuery("format", report.FormatExcel)
	ext, known := report.Extension[format]
	if !known {
		middleware.AbortWithError(c, http.StatusBadRequest,
			errors.Errorf("format must be one of excel, markdown, json; got %q", format))
		return
	}

	data, err := model.GetHistoryReport(gmw.Ctx(c), id, format)
	if err != nil {
		abortHistoryError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="test_report_%d.%s"`, id, ext))
	c.Data(http.StatusOK, report.ContentType[format], data)
}
