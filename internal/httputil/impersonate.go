package httputil

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// errNoH2 is returned by the h2 dialer when the server picked http/1.1.
var errNoH2 = errors.New("server did not negotiate h2")

// impersonatingTransport sends https requests over uTLS connections with a
// Chrome 120 fingerprint. It tries HTTP/2 first and falls back to HTTP/1.1.
type impersonatingTransport struct {
	h2     *http2.Transport
	h1     *http.Transport
	dialer *net.Dialer
}

func newImpersonatingTransport(timeout time.Duration) *impersonatingTransport {
	t := &impersonatingTransport{
		dialer: &net.Dialer{Timeout: timeout},
	}
	t.h2 = &http2.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			return t.dialTLS(ctx, network, addr, true)
		},
	}
	t.h1 = &http.Transport{
		DialContext: t.dialer.DialContext,
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return t.dialTLS(ctx, network, addr, false)
		},
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     30 * time.Second,
	}
	return t
}

func (t *impersonatingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.h1.RoundTrip(req)
	}

	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}

	retry, rerr := rewind(req)
	if rerr != nil {
		return nil, err
	}
	return t.h1.RoundTrip(retry)
}

// rewind clones req with a fresh body so it can be sent again.
func rewind(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone.Body = body
	return clone, nil
}

// dialTLS opens a uTLS connection mimicking Chrome 120. For the h2 path the
// connection is rejected unless the server negotiated h2.
func (t *impersonatingTransport) dialTLS(ctx context.Context, network, addr string, wantH2 bool) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	conn, err := t.dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	cfg := &utls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}

	var tlsConn *utls.UConn
	if wantH2 {
		tlsConn = utls.UClient(conn, cfg, utls.HelloChrome_120)
	} else {
		tlsConn, err = h1Client(conn, cfg)
		if err != nil {
			conn.Close()
			return nil, err
		}
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	if wantH2 && tlsConn.ConnectionState().NegotiatedProtocol != http2.NextProtoTLS {
		tlsConn.Close()
		return nil, errNoH2
	}
	return tlsConn, nil
}

// h1Client builds a Chrome 120 hello whose ALPN only offers http/1.1. The
// preset overrides Config.NextProtos, so the extension is edited directly.
func h1Client(conn net.Conn, cfg *utls.Config) (*utls.UConn, error) {
	spec, err := utls.UTLSIdToSpec(utls.HelloChrome_120)
	if err != nil {
		return nil, fmt.Errorf("chrome spec: %w", err)
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}

	uconn := utls.UClient(conn, cfg, utls.HelloCustom)
	if err := uconn.ApplyPreset(&spec); err != nil {
		return nil, fmt.Errorf("apply preset: %w", err)
	}
	return uconn, nil
}
