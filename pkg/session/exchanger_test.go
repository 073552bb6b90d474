package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchangers_RejectWrongShapeWithoutNetwork(t *testing.T) {
	t.Parallel()

	all := []struct {
		owner Backend
		cred  Credential
	}{
		{BackendAppRole, AppRole{RoleID: "r", SecretID: "s"}},
		{BackendAppID, AppID{AppID: "a", UserID: "u"}},
		{BackendUserPass, UserPass{Username: "u", Password: "p"}},
		{BackendGitHub, GitHub{Token: "g"}},
		{BackendToken, Token{Token: "t"}},
		{"", nil},
		{"", (*UserPass)(nil)},
	}

	for _, backend := range Backends() {
		for _, c := range all {
			if c.owner == backend {
				continue
			}
			cred := c.cred
			backend := backend
			t.Run(string(backend), func(t *testing.T) {
				t.Parallel()

				ft := newFakeTransport(nil)
				ex := DefaultExchangers()[backend]
				require.NotNil(t, ex)

				login, err := ex.Exchange(context.Background(), cred, &Client{Transport: ft, Prefix: testPrefix})

				assert.Nil(t, login)
				var contractErr *ContractError
				require.ErrorAs(t, err, &contractErr)
				assert.Equal(t, backend, contractErr.Backend)
				assert.Empty(t, ft.Calls())
			})
		}
	}
}

func TestExchangers_RejectEmptyFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		backend Backend
		cred    Credential
		field   string
	}{
		{BackendAppRole, AppRole{RoleID: "r"}, "secret_id"},
		{BackendAppID, AppID{UserID: "u"}, "app_id"},
		{BackendUserPass, UserPass{Password: "p"}, "username"},
		{BackendGitHub, GitHub{}, "token"},
		{BackendToken, Token{}, "token"},
	}

	for _, tt := range tests {
		t.Run(string(tt.backend), func(t *testing.T) {
			t.Parallel()

			ft := newFakeTransport(nil)
			_, err := DefaultExchangers()[tt.backend].Exchange(context.Background(), tt.cred, &Client{Transport: ft, Prefix: testPrefix})

			var contractErr *ContractError
			require.ErrorAs(t, err, &contractErr)
			assert.Contains(t, contractErr.Reason, tt.field)
			assert.Empty(t, ft.Calls())
		})
	}
}

func TestExchangers_AcceptPointerCredentials(t *testing.T) {
	t.Parallel()

	ft := newFakeTransport(func(*Request) (*Response, error) { return loginResponse("s.ptr"), nil })

	login, err := DefaultExchangers()[BackendAppRole].Exchange(context.Background(),
		&AppRole{RoleID: "r", SecretID: "s"}, &Client{Transport: ft, Prefix: testPrefix})

	require.NoError(t, err)
	assert.Equal(t, "s.ptr", login.Token)

	_, err = DefaultExchangers()[BackendAppRole].Exchange(context.Background(),
		&AppRole{RoleID: "r"}, &Client{Transport: ft, Prefix: testPrefix})
	var contractErr *ContractError
	require.ErrorAs(t, err, &contractErr)
	assert.Contains(t, contractErr.Reason, "secret_id")
	assert.Len(t, ft.Calls(), 1)
}

func TestExchangers_LoginRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		backend Backend
		cred    Credential
		url     string
		body    map[string]string
	}{
		{
			backend: BackendAppRole,
			cred:    AppRole{RoleID: "role-1", SecretID: "secret-1"},
			url:     testPrefix + "auth/approle/login",
			body:    map[string]string{"role_id": "role-1", "secret_id": "secret-1"},
		},
		{
			backend: BackendAppID,
			cred:    AppID{AppID: "app-1", UserID: "user-1"},
			url:     testPrefix + "auth/app-id/login",
			body:    map[string]string{"app_id": "app-1", "user_id": "user-1"},
		},
		{
			backend: BackendUserPass,
			cred:    UserPass{Username: "alice", Password: "pw"},
			url:     testPrefix + "auth/userpass/login/alice",
			body:    map[string]string{"password": "pw"},
		},
		{
			backend: BackendGitHub,
			cred:    GitHub{Token: "ghp_123"},
			url:     testPrefix + "auth/github/login",
			body:    map[string]string{"token": "ghp_123"},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.backend), func(t *testing.T) {
			t.Parallel()

			ft := newFakeTransport(func(*Request) (*Response, error) { return loginResponse("s.issued"), nil })
			login, err := DefaultExchangers()[tt.backend].Exchange(context.Background(), tt.cred, &Client{Transport: ft, Prefix: testPrefix})
			require.NoError(t, err)
			assert.Equal(t, "s.issued", login.Token)

			calls := ft.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, http.MethodPost, calls[0].Method)
			assert.Equal(t, tt.url, calls[0].URL)
			assert.Equal(t, "application/json", calls[0].Header["Content-Type"])
			assert.NotContains(t, calls[0].Header, "X-Vault-Token")

			var body map[string]string
			require.NoError(t, json.Unmarshal(calls[0].Body, &body))
			assert.Equal(t, tt.body, body)
		})
	}
}

func TestExchangers_LoginFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		resp     *Response
		err      error
		messages []string
	}{
		{
			name:     "store error list is passed through",
			resp:     errorsResponse(http.StatusBadRequest, "invalid role ID", "second reason"),
			messages: []string{"invalid role ID", "second reason"},
		},
		{
			name:     "error list on 200",
			resp:     errorsResponse(http.StatusOK, "warning turned error"),
			messages: []string{"warning turned error"},
		},
		{
			name:     "transport failure",
			err:      errors.New("dial tcp: connection refused"),
			messages: []string{"dial tcp: connection refused"},
		},
		{
			name:     "non-2xx without error body",
			resp:     &Response{StatusCode: http.StatusBadGateway, Body: []byte("<html>bad gateway</html>")},
			messages: []string{"login failed with status 502"},
		},
		{
			name:     "success without client token",
			resp:     jsonResponse(http.StatusOK, map[string]any{"auth": map[string]any{}}),
			messages: []string{"no client token in login response"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ft := newFakeTransport(func(*Request) (*Response, error) { return tt.resp, tt.err })
			_, err := DefaultExchangers()[BackendAppRole].Exchange(context.Background(),
				AppRole{RoleID: "r", SecretID: "s"}, &Client{Transport: ft, Prefix: testPrefix})

			var authErr *AuthError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, BackendAppRole, authErr.Backend)
			assert.Equal(t, tt.messages, authErr.Messages)
		})
	}
}

func TestExchangers_TokenBackendTrustsValue(t *testing.T) {
	t.Parallel()

	ft := newFakeTransport(nil)
	login, err := DefaultExchangers()[BackendToken].Exchange(context.Background(), Token{Token: "s.literal"}, &Client{Transport: ft, Prefix: testPrefix})

	require.NoError(t, err)
	assert.Equal(t, "s.literal", login.Token)
	assert.Empty(t, ft.Calls())
}

func TestCredentials_StringRedactsSecrets(t *testing.T) {
	t.Parallel()

	creds := []Credential{
		AppRole{RoleID: "role", SecretID: "topsecret"},
		AppID{AppID: "app", UserID: "topsecret"},
		UserPass{Username: "bob", Password: "topsecret"},
		GitHub{Token: "topsecret"},
		Token{Token: "topsecret"},
	}
	for _, c := range creds {
		assert.NotContains(t, fmtAll(c), "topsecret", "%s leaks its secret", c.Backend())
	}
}

func fmtAll(c Credential) string {
	return fmt.Sprintf("%v %+v %#v %s", c, c, c, c)
}
