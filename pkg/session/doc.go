// Package session manages an authenticated session against a Vault-compatible
// secret store reachable over HTTP.
//
// A Session holds at most one token. Read and Write take the backend and the
// credential to use if the store rejects the current token (or there is no
// token yet): the operation is attempted, and on an authentication failure the
// session logs in once with the supplied credential and retries the operation
// exactly once. Any other failure, including "key not found", is returned
// immediately.
//
// # Backends
//
// Five authentication backends are supported, each with its own credential
// shape:
//
//	approle   AppRole{RoleID, SecretID}    POST auth/approle/login
//	app_id    AppID{AppID, UserID}         POST auth/app-id/login
//	userpass  UserPass{Username, Password} POST auth/userpass/login/<username>
//	github    GitHub{Token}                POST auth/github/login
//	token     Token{Token}                 no network call
//
// Passing a credential of the wrong shape for a backend is a programming error
// and fails with a *ContractError before anything is sent.
//
// # Usage
//
//	s := session.New(session.Options{
//	    Transport: httpTransport,
//	    Prefix:    "http://localhost:8200/v1/",
//	})
//
//	data, err := s.Read(ctx, "secret/foo", session.BackendUserPass,
//	    session.UserPass{Username: "app", Password: pw})
//	if err != nil {
//	    var authErr *session.AuthError
//	    if errors.As(err, &authErr) {
//	        // authErr.Messages is the store's own error list
//	    }
//	    return err
//	}
//
// # Errors
//
// Failures are always returned as values:
//
//   - *AuthError: the store rejected the login (Messages passed through verbatim)
//   - *OpError with Kind OpAuthFailure: the token was missing or rejected
//   - *OpError with Kind OpOther: anything else (not found, bad request, transport)
//   - *ContractError: unknown backend or credential of the wrong shape
//
// ErrNotAuthenticated is returned by Token before the first successful login and
// is wrapped by the OpError produced when an operation finds no token.
//
// # Concurrency
//
// A Session is safe for concurrent use. The token is guarded by the Store's lock,
// and login-and-update sequences are serialized so two callers never interleave
// an exchange with another caller's store update. Network calls are made without
// holding the store lock.
package session
