package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Login is the outcome of a successful credential exchange.
type Login struct {
	Token string
	// Metadata is passed through from the login response (accessor, policies,
	// lease duration). It is informational only.
	Metadata map[string]string
}

// Exchanger turns a backend specific credential into a token.
// Implementations must not touch the session store.
type Exchanger interface {
	Exchange(ctx context.Context, cred Credential, c *Client) (*Login, error)
}

// DefaultExchangers returns the dispatch table for every supported backend.
func DefaultExchangers() map[Backend]Exchanger {
	return map[Backend]Exchanger{
		BackendAppRole:  appRoleExchanger{},
		BackendAppID:    appIDExchanger{},
		BackendUserPass: userPassExchanger{},
		BackendGitHub:   gitHubExchanger{},
		BackendToken:    tokenExchanger{},
	}
}

type appRoleExchanger struct{}

func (appRoleExchanger) Exchange(ctx context.Context, cred Credential, c *Client) (*Login, error) {
	ar, err := credentialAs[AppRole](BackendAppRole, cred)
	if err != nil {
		return nil, err
	}
	return login(ctx, c, BackendAppRole, "auth/approle/login", map[string]string{
		"role_id":   ar.RoleID,
		"secret_id": ar.SecretID,
	})
}

type appIDExchanger struct{}

func (appIDExchanger) Exchange(ctx context.Context, cred Credential, c *Client) (*Login, error) {
	ai, err := credentialAs[AppID](BackendAppID, cred)
	if err != nil {
		return nil, err
	}
	return login(ctx, c, BackendAppID, "auth/app-id/login", map[string]string{
		"app_id":  ai.AppID,
		"user_id": ai.UserID,
	})
}

type userPassExchanger struct{}

func (userPassExchanger) Exchange(ctx context.Context, cred Credential, c *Client) (*Login, error) {
	up, err := credentialAs[UserPass](BackendUserPass, cred)
	if err != nil {
		return nil, err
	}
	return login(ctx, c, BackendUserPass, "auth/userpass/login/"+url.PathEscape(up.Username), map[string]string{
		"password": up.Password,
	})
}

type gitHubExchanger struct{}

func (gitHubExchanger) Exchange(ctx context.Context, cred Credential, c *Client) (*Login, error) {
	gh, err := credentialAs[GitHub](BackendGitHub, cred)
	if err != nil {
		return nil, err
	}
	return login(ctx, c, BackendGitHub, "auth/github/login", map[string]string{
		"token": gh.Token,
	})
}

// tokenExchanger trusts the supplied token without asking the store.
type tokenExchanger struct{}

func (tokenExchanger) Exchange(_ context.Context, cred Credential, _ *Client) (*Login, error) {
	tk, err := credentialAs[Token](BackendToken, cred)
	if err != nil {
		return nil, err
	}
	return &Login{Token: tk.Token, Metadata: map[string]string{"backend": string(BackendToken)}}, nil
}

// credentialAs checks that cred has the shape T expected by backend b and
// that every field is set. Pointers to the credential struct are accepted.
func credentialAs[T Credential](b Backend, cred Credential) (T, error) {
	var zero T
	if c, ok := cred.(T); ok {
		if err := c.validate(); err != nil {
			return zero, err
		}
		return c, nil
	}
	if c, ok := any(cred).(*T); ok && c != nil {
		if err := (*c).validate(); err != nil {
			return zero, err
		}
		return *c, nil
	}
	return zero, &ContractError{
		Backend: b,
		Reason:  fmt.Sprintf("expected %T credential, got %T", zero, cred),
	}
}

// login posts the payload to a login endpoint and extracts auth.client_token.
func login(ctx context.Context, c *Client, b Backend, path string, payload map[string]string) (*Login, error) {
	resp, err := c.Call(ctx, http.MethodPost, path, "", payload)
	if err != nil {
		return nil, &AuthError{Backend: b, Messages: []string{err.Error()}}
	}

	if msgs, ok := errorList(resp.Body); ok && (!resp.OK() || len(msgs) > 0) {
		return nil, &AuthError{Backend: b, Messages: msgs}
	}
	if !resp.OK() {
		return nil, &AuthError{Backend: b, Messages: []string{fmt.Sprintf("login failed with status %d", resp.StatusCode)}}
	}

	var body struct {
		Auth *struct {
			ClientToken   string   `json:"client_token"`
			Accessor      string   `json:"accessor"`
			Policies      []string `json:"policies"`
			LeaseDuration int      `json:"lease_duration"`
		} `json:"auth"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, &AuthError{Backend: b, Messages: []string{"malformed login response: " + err.Error()}}
	}
	if body.Auth == nil || body.Auth.ClientToken == "" {
		return nil, &AuthError{Backend: b, Messages: []string{"no client token in login response"}}
	}

	meta := map[string]string{"backend": string(b)}
	if body.Auth.Accessor != "" {
		meta["accessor"] = body.Auth.Accessor
	}
	if len(body.Auth.Policies) > 0 {
		meta["policies"] = strings.Join(body.Auth.Policies, ",")
	}
	if body.Auth.LeaseDuration > 0 {
		meta["lease_duration"] = strconv.Itoa(body.Auth.LeaseDuration)
	}
	return &Login{Token: body.Auth.ClientToken, Metadata: meta}, nil
}
