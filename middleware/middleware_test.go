package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/gptbots-qa/agent-tester/common/helper"
	"github.com/gptbots-qa/agent-tester/common/logger"
)

func newEngine(handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		gmw.SetLogger(c, logger.Logger)
		c.Next()
	}, RequestId(), PanicRecover())
	r.GET("/", handler)
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAbortWithErrorClientError(t *testing.T) {
	r := newEngine(func(c *gin.Context) {
		AbortWithError(c, http.StatusBadRequest, errors.New("agentId is required"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	require.Equal(t, false, body["success"])
	require.Equal(t, "agentId is required", body["message"])
}

func TestAbortWithErrorServerErrorCarriesRequestId(t *testing.T) {
	r := newEngine(func(c *gin.Context) {
		AbortWithError(c, http.StatusInternalServerError, errors.New("db down"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	requestID := w.Header().Get(helper.RequestIdKey)
	require.NotEmpty(t, requestID)
	require.Contains(t, decode(t, w)["message"], requestID)
}

func TestPanicRecover(t *testing.T) {
	r := newEngine(func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, decode(t, w)["message"], "boom")
}
