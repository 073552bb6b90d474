// Package testutil provides an in-process fake Vault server for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// FakeVault is an httptest server speaking enough of the Vault HTTP API for
// login, read and write. It accepts one token at a time, like a store that
// expires every earlier token on each login.
//
// Example usage:
//
//	fv := testutil.NewFakeVault(t).
//	    WithUser("bob", "hunter2").
//	    WithSecret("secret/foo", map[string]any{"value": "bar"})
//
//	prefix := fv.Prefix() // http://127.0.0.1:port/v1/
type FakeVault struct {
	server *httptest.Server

	mu        sync.Mutex
	users     map[string]string // username -> password
	roles     map[string]string // role_id -> secret_id
	appIDs    map[string]string // app_id -> user_id
	github    map[string]bool
	secrets   map[string]map[string]any
	valid     map[string]bool
	issued    int
	calls     map[string]int // "METHOD path" -> count
	namespace string
}

// NewFakeVault starts a server that is closed when the test ends.
func NewFakeVault(t *testing.T) *FakeVault {
	t.Helper()

	fv := &FakeVault{
		users:   map[string]string{},
		roles:   map[string]string{},
		appIDs:  map[string]string{},
		github:  map[string]bool{},
		secrets: map[string]map[string]any{},
		valid:   map[string]bool{},
		calls:   map[string]int{},
	}
	fv.server = httptest.NewServer(http.HandlerFunc(fv.handle))
	t.Cleanup(fv.server.Close)
	return fv
}

// WithUser registers a userpass account.
func (f *FakeVault) WithUser(username, password string) *FakeVault {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[username] = password
	return f
}

// WithAppRole registers an approle role/secret pair.
func (f *FakeVault) WithAppRole(roleID, secretID string) *FakeVault {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[roleID] = secretID
	return f
}

// WithAppID registers an app-id/user-id mapping.
func (f *FakeVault) WithAppID(appID, userID string) *FakeVault {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appIDs[appID] = userID
	return f
}

// WithGitHubToken accepts token on the github backend.
func (f *FakeVault) WithGitHubToken(token string) *FakeVault {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.github[token] = true
	return f
}

// WithSecret seeds data at path (relative to /v1/).
func (f *FakeVault) WithSecret(path string, data map[string]any) *FakeVault {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.secrets[path] = data
	return f
}

// WithToken marks token as valid, as if issued out of band.
func (f *FakeVault) WithToken(token string) *FakeVault {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.valid[token] = true
	return f
}

// RequireNamespace rejects requests without this X-Vault-Namespace.
func (f *FakeVault) RequireNamespace(ns string) *FakeVault {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.namespace = ns
	return f
}

// Expire invalidates every token issued so far.
func (f *FakeVault) Expire() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.valid = map[string]bool{}
}

// Prefix returns the API prefix to hand to a session.
func (f *FakeVault) Prefix() string {
	return f.server.URL + "/v1/"
}

// URL returns the server's base address.
func (f *FakeVault) URL() string {
	return f.server.URL
}

// Client returns an HTTP client for the server.
func (f *FakeVault) Client() *http.Client {
	return f.server.Client()
}

// Secret returns what is stored at path.
func (f *FakeVault) Secret(path string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.secrets[path]
}

// Calls returns how many requests were made with method to path.
func (f *FakeVault) Calls(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method+" "+path]
}

// Logins returns the number of login requests across all backends.
func (f *FakeVault) Logins() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k, v := range f.calls {
		if strings.HasPrefix(k, http.MethodPost+" auth/") {
			n += v
		}
	}
	return n
}

func (f *FakeVault) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/v1/")
	f.calls[r.Method+" "+path]++

	if f.namespace != "" && r.Header.Get("X-Vault-Namespace") != f.namespace {
		writeErrors(w, http.StatusForbidden, "namespace not authorized")
		return
	}

	if r.Method == http.MethodPost && strings.HasPrefix(path, "auth/") {
		f.login(w, r, path)
		return
	}

	token := r.Header.Get("X-Vault-Token")
	if token == "" {
		writeErrors(w, http.StatusBadRequest, "missing client token")
		return
	}
	if !f.valid[token] {
		writeErrors(w, http.StatusForbidden, "permission denied")
		return
	}

	switch r.Method {
	case http.MethodGet:
		data, ok := f.secrets[path]
		if !ok {
			writeErrors(w, http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": data})
	case http.MethodPut, http.MethodPost:
		var data map[string]any
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			writeErrors(w, http.StatusBadRequest, "failed to parse JSON input: "+err.Error())
			return
		}
		f.secrets[path] = data
		w.WriteHeader(http.StatusNoContent)
	default:
		writeErrors(w, http.StatusMethodNotAllowed, "unsupported operation")
	}
}

func (f *FakeVault) login(w http.ResponseWriter, r *http.Request, path string) {
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErrors(w, http.StatusBadRequest, "failed to parse JSON input")
		return
	}

	ok := false
	switch {
	case path == "auth/approle/login":
		secret, known := f.roles[body["role_id"]]
		ok = known && secret == body["secret_id"]
		if !ok {
			writeErrors(w, http.StatusBadRequest, "invalid role or secret ID")
			return
		}
	case path == "auth/app-id/login":
		user, known := f.appIDs[body["app_id"]]
		ok = known && user == body["user_id"]
	case path == "auth/github/login":
		ok = f.github[body["token"]]
	case strings.HasPrefix(path, "auth/userpass/login/"):
		pw, known := f.users[strings.TrimPrefix(path, "auth/userpass/login/")]
		ok = known && pw == body["password"]
		if !ok {
			writeErrors(w, http.StatusBadRequest, "invalid username or password")
			return
		}
	default:
		writeErrors(w, http.StatusNotFound, "no handler for route '"+path+"'")
		return
	}
	if !ok {
		writeErrors(w, http.StatusBadRequest, "invalid credentials")
		return
	}

	f.issued++
	token := fmt.Sprintf("s.fake-%d", f.issued)
	f.valid = map[string]bool{token: true}
	writeJSON(w, http.StatusOK, map[string]any{
		"auth": map[string]any{
			"client_token":   token,
			"accessor":       fmt.Sprintf("accessor-%d", f.issued),
			"policies":       []string{"default"},
			"lease_duration": 2764800,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrors(w http.ResponseWriter, status int, msgs ...string) {
	if msgs == nil {
		msgs = []string{}
	}
	writeJSON(w, status, map[string]any{"errors": msgs})
}
