package session

import "context"

// Options configures a Session.
type Options struct {
	// Transport performs the HTTP exchanges. Required.
	Transport Transport
	// Prefix is the store's API root, e.g. "http://localhost:8200/v1/".
	Prefix string
	// Namespace is sent as X-Vault-Namespace when set.
	Namespace string
	// Exchangers overrides the backend dispatch table. Defaults to DefaultExchangers().
	Exchangers map[Backend]Exchanger
	Logger     Logger
	Recorder   Recorder
}

// Session is a caller owned handle on one authenticated session.
type Session struct {
	store       *Store
	coordinator *Coordinator
	executor    *Executor
	logger      Logger
	recorder    Recorder
}

// New builds a session with an empty store.
func New(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	client := &Client{Transport: opts.Transport, Prefix: opts.Prefix, Namespace: opts.Namespace}
	store := NewStore()
	return &Session{
		store:       store,
		coordinator: NewCoordinator(store, client, opts.Exchangers, opts.Logger, opts.Recorder),
		executor:    NewExecutor(store, client, opts.Logger),
		logger:      opts.Logger,
		recorder:    opts.Recorder,
	}
}

// Authenticate logs in and replaces the current token.
func (s *Session) Authenticate(ctx context.Context, backend Backend, cred Credential) error {
	return s.coordinator.Authenticate(ctx, backend, cred)
}

// Token returns the current token, or ErrNotAuthenticated.
func (s *Session) Token() (string, error) {
	token, ok := s.store.Get()
	if !ok {
		return "", ErrNotAuthenticated
	}
	return token, nil
}

// Metadata returns what the store recorded about the current login.
func (s *Session) Metadata() map[string]string {
	return s.store.Metadata()
}

// Logout forgets the current token locally. The store is not contacted.
func (s *Session) Logout() {
	s.store.Clear()
}

// Read returns the data at path, logging in with backend and cred at most
// once if the current token is missing or rejected. A nil cred disables the
// login; the auth failure is returned as is and wraps ErrNotAuthenticated when
// there was no token.
func (s *Session) Read(ctx context.Context, path string, backend Backend, cred Credential) (map[string]any, error) {
	return s.run(ctx, opRead, backend, cred, func() (map[string]any, error) {
		return s.executor.Read(ctx, path)
	})
}

// Write stores payload at path with the same retry behaviour as Read.
func (s *Session) Write(ctx context.Context, path string, payload map[string]any, backend Backend, cred Credential) (map[string]any, error) {
	return s.run(ctx, opWrite, backend, cred, func() (map[string]any, error) {
		return s.executor.Write(ctx, path, payload)
	})
}

type attemptState int

const (
	stateAttempt attemptState = iota
	stateRetried
)

// run drives attempt -> (login) -> retried. The retried state is terminal:
// whatever the second attempt returns is the answer.
func (s *Session) run(ctx context.Context, op string, backend Backend, cred Credential, attempt func() (map[string]any, error)) (map[string]any, error) {
	state := stateAttempt
	for {
		data, err := attempt()
		s.recorder.RecordOperation(op, err)
		if state == stateRetried || !IsAuthFailure(err) {
			return data, err
		}
		// Without a credential there is nothing to log in with.
		if cred == nil {
			return nil, err
		}

		s.logger.Debug("%s rejected for lack of a valid token, re-authenticating with %s", op, backend)
		if authErr := s.coordinator.Authenticate(ctx, backend, cred); authErr != nil {
			return nil, authErr
		}
		s.recorder.RecordRetry(op)
		state = stateRetried
	}
}
