package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

const (
	opRead  = "read"
	opWrite = "write"
)

// keyNotFound is reported when the store answers 404 with an empty error list.
const keyNotFound = "Key not found"

// Executor performs single secret operations with the store's current token.
// It never authenticates; it only classifies the outcome.
type Executor struct {
	store  *Store
	client *Client
	logger Logger
}

// NewExecutor returns an executor reading its token from store.
func NewExecutor(store *Store, client *Client, logger Logger) *Executor {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Executor{store: store, client: client, logger: logger}
}

// Read fetches the secret at path and returns its data object.
func (e *Executor) Read(ctx context.Context, path string) (map[string]any, error) {
	return e.do(ctx, opRead, http.MethodGet, path, nil)
}

// Write stores payload at path. The returned map is the response's data
// object, or nil when the store replies without a body.
func (e *Executor) Write(ctx context.Context, path string, payload map[string]any) (map[string]any, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	return e.do(ctx, opWrite, http.MethodPut, path, payload)
}

func (e *Executor) do(ctx context.Context, op, method, path string, payload any) (map[string]any, error) {
	token, ok := e.store.Get()
	if !ok {
		return nil, &OpError{Op: op, Path: path, Kind: OpAuthFailure, Err: ErrNotAuthenticated}
	}

	e.logger.Debug("%s %s", method, path)
	resp, err := e.client.Call(ctx, method, path, token, payload)
	if err != nil {
		return nil, &OpError{Op: op, Path: path, Kind: OpOther, Err: err}
	}
	return classify(op, path, resp)
}

// classify maps a store response to a result. Only 401 and 403 are treated as
// token problems; everything else, including 404, is final. Vault also answers
// 403 when a valid token lacks the policy for path, so such a denial costs one
// extra login before the second 403 is returned.
func classify(op, path string, resp *Response) (map[string]any, error) {
	if resp.OK() {
		if len(resp.Body) == 0 || resp.StatusCode == http.StatusNoContent {
			return nil, nil
		}
		var body struct {
			Data map[string]any `json:"data"`
		}
		if err := json.Unmarshal(resp.Body, &body); err != nil {
			return nil, &OpError{Op: op, Path: path, Kind: OpOther, Status: resp.StatusCode,
				Err: errors.New("malformed response body: " + err.Error())}
		}
		return body.Data, nil
	}

	msgs, _ := errorList(resp.Body)
	opErr := &OpError{Op: op, Path: path, Kind: OpOther, Status: resp.StatusCode, Messages: msgs}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		opErr.Kind = OpAuthFailure
	case http.StatusNotFound:
		if len(msgs) == 0 {
			opErr.Messages = []string{keyNotFound}
		}
	}
	return nil, opErr
}
