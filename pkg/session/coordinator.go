package session

import (
	"context"
	"sync"
)

// Coordinator dispatches logins to the exchanger of the requested backend and
// records the resulting token in the store.
type Coordinator struct {
	// mu serializes exchange-and-update so two logins never interleave their
	// store writes.
	mu         sync.Mutex
	exchangers map[Backend]Exchanger
	store      *Store
	client     *Client
	logger     Logger
	recorder   Recorder
}

// NewCoordinator builds a coordinator over a fixed dispatch table.
func NewCoordinator(store *Store, client *Client, exchangers map[Backend]Exchanger, logger Logger, recorder Recorder) *Coordinator {
	if exchangers == nil {
		exchangers = DefaultExchangers()
	}
	if logger == nil {
		logger = nopLogger{}
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Coordinator{
		exchangers: exchangers,
		store:      store,
		client:     client,
		logger:     logger,
		recorder:   recorder,
	}
}

// Authenticate exchanges cred for a token using backend. On success the token
// replaces whatever the store held. On failure the store is untouched and the
// exchanger's error is returned as is.
func (c *Coordinator) Authenticate(ctx context.Context, backend Backend, cred Credential) error {
	ex, ok := c.exchangers[backend]
	if !ok {
		return &ContractError{Backend: backend, Reason: "unknown authentication backend"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Debug("Authenticating with %s backend", backend)
	login, err := ex.Exchange(ctx, cred, c.client)
	c.recorder.RecordAuth(backend, err)
	if err != nil {
		c.logger.Debug("Authentication with %s backend failed: %v", backend, err)
		return err
	}

	c.store.Set(login.Token, login.Metadata)
	c.logger.Debug("Authenticated with %s backend", backend)
	return nil
}
