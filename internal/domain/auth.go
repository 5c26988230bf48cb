package domain

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"time"
)

// requestTimeout caps each outbound tracker request end to end. There is no
// retry and no per-call escalation; a hung remote call fails after this long.
const requestTimeout = 30 * time.Second

// Credentials identify the single tracker account every request runs as.
// Jira Cloud uses basic authentication with the account email as username
// and an API token in place of a password.
type Credentials struct {
	Username string
	APIToken string
}

// Validate checks that the credentials are complete enough to authenticate.
func (c Credentials) Validate() error {
	if c.Username == "" {
		return fmt.Errorf("username is required for basic authentication")
	}
	if c.APIToken == "" {
		return fmt.Errorf("api token is required for basic authentication")
	}
	return nil
}

// NewAuthenticatedClient builds the long-lived HTTP client used for every
// tracker request. The client attaches a Basic Authorization header to each
// request and enforces the fixed request timeout. It is acquired once at
// startup, shared by all operations, and safe for concurrent reuse.
func NewAuthenticatedClient(creds Credentials) (*http.Client, error) {
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}

	return &http.Client{
		Timeout: requestTimeout,
		Transport: &basicAuthTransport{
			base:        http.DefaultTransport,
			credentials: creds,
		},
	}, nil
}

// basicAuthTransport is an http.RoundTripper that adds a Basic Authorization
// header built from the configured credentials.
type basicAuthTransport struct {
	base        http.RoundTripper
	credentials Credentials
}

// RoundTrip implements http.RoundTripper. The request is cloned before the
// header is set; the RoundTripper contract forbids mutating the caller's
// request.
func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())

	auth := t.credentials.Username + ":" + t.credentials.APIToken
	encoded := base64.StdEncoding.EncodeToString([]byte(auth))
	cloned.Header.Set("Authorization", "Basic "+encoded)

	return t.base.RoundTrip(cloned)
}
