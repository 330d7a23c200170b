package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"unidown/internal/httputil"
	"unidown/internal/logging"
	"unidown/internal/platform"
	"unidown/internal/proxy"
)

// API handles the HTTP endpoints.
type API struct {
	dispatcher *platform.Dispatcher
	forwarder  *proxy.Forwarder
	log        logrus.FieldLogger
}

// NewAPI creates a new API handler.
func NewAPI(dispatcher *platform.Dispatcher, forwarder *proxy.Forwarder, log logrus.FieldLogger) *API {
	return &API{
		dispatcher: dispatcher,
		forwarder:  forwarder,
		log:        log,
	}
}

// Extract runs the dispatch loop for the submitted input. Both a result and
// the aggregated diagnostics are answered with 200.
func (a *API) Extract(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("invalid request: %v", err),
		})
		return
	}

	ctx := c.Request.Context()
	logging.FromContext(ctx, a.log).WithField("input", req.Input).Info("extract request")

	outcome := a.dispatcher.Dispatch(ctx, req.Input, platform.ExtractContext{
		RequestURL: requestURL(c.Request),
	})
	if info, ok := outcome.Left(); ok {
		c.JSON(http.StatusOK, info)
		return
	}
	diag, _ := outcome.Right()
	c.JSON(http.StatusOK, diag)
}

// Fetch forwards a caller-described request and relays the raw response.
func (a *API) Fetch(c *gin.Context) {
	var req FetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("invalid request: %v", err),
		})
		return
	}

	a.forward(c, proxy.Request{
		URL:     req.URL,
		Method:  req.Method,
		Headers: req.Headers,
		Body:    []byte(req.Body),
	})
}

// Get forwards a GET built from the query string. Every query parameter other
// than url becomes a header, overriding the caller's own request headers.
func (a *API) Get(c *gin.Context) {
	target := c.Query("url")
	if target == "" {
		c.Status(http.StatusNoContent)
		return
	}

	query := make(map[string]string)
	for k, vs := range c.Request.URL.Query() {
		if k == "url" || len(vs) == 0 {
			continue
		}
		query[k] = vs[0]
	}

	a.forward(c, proxy.Request{
		URL:     target,
		Method:  http.MethodGet,
		Headers: httputil.MergeHeaders(proxy.InboundHeaders(c.Request.Header), query),
	})
}

// Platforms lists the registered extractors.
func (a *API) Platforms(c *gin.Context) {
	c.JSON(http.StatusOK, PlatformsResponse{
		Platforms: a.dispatcher.Registry().ListPlatforms(),
	})
}

func (a *API) forward(c *gin.Context, req proxy.Request) {
	resp, err := a.forwarder.Forward(c.Request.Context(), req)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, proxy.ErrInvalidTarget) {
			status = http.StatusBadRequest
		}
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}
	defer resp.Body.Close()

	if _, err := proxy.CopyResponse(c.Writer, resp); err != nil {
		// Headers are already sent; record the truncated relay for the logger.
		c.Error(err)
	}
}

// requestURL reconstructs the absolute URL the caller used to reach us.
func requestURL(r *http.Request) *url.URL {
	u := *r.URL
	u.Host = r.Host
	u.Scheme = "http"
	if r.TLS != nil {
		u.Scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		u.Scheme = proto
	}
	return &u
}
