// Package transport implements session.Transport over net/http.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/systmms/vaultsess/internal/logging"
	"github.com/systmms/vaultsess/pkg/session"
)

// maxBodySize caps how much of a response is read into memory.
const maxBodySize = 32 << 20

// Options configures the HTTP client.
type Options struct {
	Timeout time.Duration
	CACert  string // PEM bundle path
	TLSSkip bool
	Logger  *logging.Logger
}

// HTTP sends session requests with a shared *http.Client.
type HTTP struct {
	client *http.Client
	logger *logging.Logger
}

// New builds a transport. It fails only when the CA bundle cannot be loaded.
func New(opts Options) (*HTTP, error) {
	client := &http.Client{Timeout: opts.Timeout}

	if opts.TLSSkip || opts.CACert != "" {
		tlsConfig := &tls.Config{
			InsecureSkipVerify: opts.TLSSkip, //nolint:gosec // opt-in via tls_skip / VAULT_SKIP_VERIFY
			MinVersion:         tls.VersionTLS12,
		}
		if opts.CACert != "" {
			pem, err := os.ReadFile(opts.CACert)
			if err != nil {
				return nil, fmt.Errorf("failed to read CA certificate: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(pem) {
				return nil, fmt.Errorf("no certificates found in %s", opts.CACert)
			}
			tlsConfig.RootCAs = pool
		}
		base := http.DefaultTransport.(*http.Transport).Clone()
		base.TLSClientConfig = tlsConfig
		client.Transport = base
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.New(false, true)
	}
	return &HTTP{client: client, logger: logger}, nil
}

// NewWithClient wraps an existing client, e.g. httptest.Server.Client().
func NewWithClient(client *http.Client, logger *logging.Logger) *HTTP {
	if logger == nil {
		logger = logging.New(false, true)
	}
	return &HTTP{client: client, logger: logger}
}

// Do performs the request and reads the whole body. Non-2xx statuses are not
// errors here; the caller classifies them.
func (h *HTTP) Do(ctx context.Context, r *session.Request) (*session.Response, error) {
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range r.Header {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	h.logger.Debug("%s %s -> %d (%s)", r.Method, r.URL, resp.StatusCode, time.Since(start).Round(time.Millisecond))
	return &session.Response{StatusCode: resp.StatusCode, Body: data}, nil
}

var _ session.Transport = (*HTTP)(nil)
