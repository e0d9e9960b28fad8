package client

import (
	"net"
	"net/http"
	"time"

	"github.com/Laisky/zap"

	"github.com/gptbots-qa/agent-tester/common/config"
	"github.com/gptbots-qa/agent-tester/common/logger"
)

// HTTPClient is shared by every run; its transport pools connections per agent host.
var HTTPClient *http.Client

func init() {
	HTTPClient = newClient(0)
}

// Init rebuilds HTTPClient from config. Per-call deadlines are applied by the caller
// through the request context, so the client timeout only guards against hung transports.
func Init() {
	HTTPClient = newClient(config.AgentRequestTimeout)
	logger.Logger.Info("agent http client initialized",
		zap.Duration("request_timeout", config.AgentRequestTimeout))
}

func newClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   config.MaxConcurrency,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	c := &http.Client{Transport: transport}
	if timeout > 0 {
		// two round trips per question share one budget
		c.Timeout = 2 * timeout
	}
	return c
}
