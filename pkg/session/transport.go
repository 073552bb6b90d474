package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Transport performs a single HTTP exchange. It is supplied by the caller;
// TLS, timeouts and connection reuse are its concern.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Request is an outgoing call to the store.
type Request struct {
	Method string
	URL    string
	Header map[string]string
	Body   []byte
}

// Response is the store's reply. Body is fully read.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client binds a Transport to the store's URL prefix, e.g. "http://localhost:8200/v1/".
type Client struct {
	Transport Transport
	Prefix    string
	Namespace string
}

// Call sends a JSON request to path, relative to the prefix. An empty token
// sends no X-Vault-Token header; a nil payload sends no body.
func (c *Client) Call(ctx context.Context, method, path, token string, payload any) (*Response, error) {
	req := &Request{
		Method: method,
		URL:    c.url(path),
		Header: map[string]string{},
	}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		req.Body = body
		req.Header["Content-Type"] = "application/json"
	}
	if token != "" {
		req.Header["X-Vault-Token"] = token
	}
	if c.Namespace != "" {
		req.Header["X-Vault-Namespace"] = c.Namespace
	}
	return c.Transport.Do(ctx, req)
}

func (c *Client) url(path string) string {
	prefix := c.Prefix
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + strings.TrimPrefix(path, "/")
}

// errorList decodes the store's {"errors": [...]} body. ok is false when the
// body is not of that shape.
func errorList(body []byte) (msgs []string, ok bool) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, false
	}
	var payload struct {
		Errors *[]string `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Errors == nil {
		return nil, false
	}
	return *payload.Errors, true
}
