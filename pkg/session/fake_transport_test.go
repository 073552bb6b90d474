package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
)

const testPrefix = "http://vault.test:8200/v1/"

// fakeTransport records every request and answers from a routing function.
type fakeTransport struct {
	mu      sync.Mutex
	calls   []*Request
	handler func(req *Request) (*Response, error)
}

func newFakeTransport(handler func(req *Request) (*Response, error)) *fakeTransport {
	return &fakeTransport{handler: handler}
}

func (f *fakeTransport) Do(_ context.Context, req *Request) (*Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.handler == nil {
		return nil, errors.New("unexpected request " + req.Method + " " + req.URL)
	}
	return f.handler(req)
}

func (f *fakeTransport) Calls() []*Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Request, len(f.calls))
	copy(out, f.calls)
	return out
}

// count returns how many requests hit path with method.
func (f *fakeTransport) count(method, path string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Method == method && c.URL == testPrefix+path {
			n++
		}
	}
	return n
}

func jsonResponse(status int, v any) *Response {
	body, _ := json.Marshal(v)
	return &Response{StatusCode: status, Body: body}
}

func loginResponse(token string) *Response {
	return jsonResponse(http.StatusOK, map[string]any{
		"auth": map[string]any{
			"client_token":   token,
			"accessor":       "acc-" + token,
			"policies":       []string{"default", "app"},
			"lease_duration": 3600,
		},
	})
}

func errorsResponse(status int, msgs ...string) *Response {
	if msgs == nil {
		msgs = []string{}
	}
	return jsonResponse(status, map[string]any{"errors": msgs})
}

func dataResponse(data map[string]any) *Response {
	return jsonResponse(http.StatusOK, map[string]any{"data": data})
}

// vaultStub is a tiny in-memory store: one valid token at a time, a map of
// secrets, and a userpass account.
type vaultStub struct {
	mu        sync.Mutex
	valid     string
	next      []string
	password  string
	secrets   map[string]map[string]any
	loginFail []string
}

func (v *vaultStub) handle(req *Request) (*Response, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	path := strings.TrimPrefix(req.URL, testPrefix)
	if strings.HasPrefix(path, "auth/") {
		if v.loginFail != nil {
			return errorsResponse(http.StatusBadRequest, v.loginFail...), nil
		}
		var body map[string]string
		_ = json.Unmarshal(req.Body, &body)
		if v.password != "" && body["password"] != v.password {
			return errorsResponse(http.StatusBadRequest, "invalid username or password"), nil
		}
		token := "s.default"
		if len(v.next) > 0 {
			token, v.next = v.next[0], v.next[1:]
		}
		v.valid = token
		return loginResponse(token), nil
	}

	if req.Header["X-Vault-Token"] != v.valid || v.valid == "" {
		return errorsResponse(http.StatusForbidden, "permission denied"), nil
	}

	switch req.Method {
	case http.MethodGet:
		data, ok := v.secrets[path]
		if !ok {
			return errorsResponse(http.StatusNotFound), nil
		}
		return dataResponse(data), nil
	case http.MethodPut:
		var data map[string]any
		if err := json.Unmarshal(req.Body, &data); err != nil {
			return errorsResponse(http.StatusBadRequest, "failed to parse JSON input"), nil
		}
		if v.secrets == nil {
			v.secrets = map[string]map[string]any{}
		}
		v.secrets[path] = data
		return &Response{StatusCode: http.StatusNoContent}, nil
	}
	return errorsResponse(http.StatusMethodNotAllowed, "unsupported operation"), nil
}
