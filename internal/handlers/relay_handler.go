package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"feed-proxy/internal/relay"
	"feed-proxy/pkg/lambda"
)

// RelayHandler handles relay requests for both the server and the function runtime
type RelayHandler struct {
	relay *relay.Relay
}

// NewRelayHandler creates a new relay handler
func NewRelayHandler(r *relay.Relay) *RelayHandler {
	return &RelayHandler{
		relay: r,
	}
}

// @Summary Relay a URL
// @Description Fetch the target URL server-side and return its body with surrounding whitespace stripped
// @Tags relay
// @Produce plain
// @Param url query string true "URL to fetch"
// @Success 200 {string} string "Fetched body, empty when the upstream did not answer 2xx"
// @Failure 400 "Missing url"
// @Failure 502 "Upstream fetch fault"
// @Router / [get]
func (h *RelayHandler) Relay(c *gin.Context) {
	params := relay.ParseQuery(c.Request.URL.RawQuery)

	resp, err := h.relay.Handle(c.Request.Context(), params)
	if err != nil {
		// ErrorHandler renders the fault
		_ = c.Error(err)
		c.Abort()
		return
	}

	for key, value := range resp.Headers {
		c.Header(key, value)
	}
	c.Status(resp.StatusCode)
	if resp.Body != "" {
		_, _ = c.Writer.WriteString(resp.Body)
	}
	c.Writer.WriteHeaderNow()
}

// @Summary Health check
// @Tags relay
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *RelayHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"variant":   h.relay.Variant().String(),
		"timestamp": time.Now().UTC(),
	})
}

// HandleRelay handles a relay request for Lambda.
// A fetch fault is returned as an error so the platform reports the invocation as failed.
func (h *RelayHandler) HandleRelay(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	resp, err := h.relay.Handle(ctx, relay.ParamsFromMap(req.QueryParams))
	if err != nil {
		return nil, err
	}

	return &lambda.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       []byte(resp.Body),
	}, nil
}
