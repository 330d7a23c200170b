// Package proxy forwards caller-described requests upstream with a spoofed
// browser header set and streams the raw response back.
package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"unidown/internal/httputil"
	"unidown/internal/logging"
)

// ErrInvalidTarget is returned when the target is not an absolute http(s) URL.
var ErrInvalidTarget = errors.New("invalid proxy target")

// hopHeaders are never forwarded from the inbound request.
var hopHeaders = []string{
	"Connection", "Keep-Alive", "Proxy-Authenticate", "Proxy-Authorization",
	"Proxy-Connection", "Te", "Trailer", "Transfer-Encoding", "Upgrade",
	"Host", "Content-Length",
}

// passHeaders are copied from the upstream response.
var passHeaders = []string{
	"Content-Type", "Content-Length", "Content-Range", "Content-Encoding",
	"Content-Disposition", "Accept-Ranges", "Cache-Control", "ETag", "Last-Modified",
}

// Request describes one forwarded call.
type Request struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    []byte
}

// Forwarder issues proxied requests.
type Forwarder struct {
	client   *http.Client
	defaults map[string]string
	log      logrus.FieldLogger
}

// New creates a forwarder. defaults are sent with every request unless the
// caller overrides them.
func New(client *http.Client, defaults map[string]string, log logrus.FieldLogger) *Forwarder {
	return &Forwarder{
		client:   client,
		defaults: httputil.MergeHeaders(defaults),
		log:      log,
	}
}

// Forward sends req upstream. The caller closes the response body.
func (f *Forwarder) Forward(ctx context.Context, req Request) (*http.Response, error) {
	target, err := httputil.ValidateURL(req.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	out, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	headers := httputil.MergeHeaders(f.defaults, req.Headers)
	for k, v := range headers {
		out.Header.Set(k, v)
	}

	log := logging.FromContext(ctx, f.log).WithFields(logrus.Fields{
		"component": "proxy",
		"method":    method,
		"url":       target.String(),
	})
	log.WithField("headers", lo.Keys(headers)).Debug("forwarding")

	resp, err := f.client.Do(out)
	if err != nil {
		log.WithError(err).Warn("upstream request failed")
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	log.WithField("status", resp.StatusCode).Debug("upstream responded")
	return resp, nil
}

// InboundHeaders flattens the caller's request headers, dropping hop-by-hop
// and framing headers that must not be replayed upstream.
func InboundHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		if len(vs) == 0 || lo.Contains(hopHeaders, http.CanonicalHeaderKey(k)) {
			continue
		}
		out[k] = strings.Join(vs, ", ")
	}
	return out
}

// CopyResponse writes the upstream status, content headers and body to w.
func CopyResponse(w http.ResponseWriter, resp *http.Response) (int64, error) {
	for _, k := range passHeaders {
		if v := resp.Header.Get(k); v != "" {
			w.Header().Set(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	return io.Copy(w, resp.Body)
}
