// Package identity calls the identity service to resolve an API credential
// to a principal.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrUnreachable marks failures to reach the identity service, as opposed to
// the service answering with a rejection.
var ErrUnreachable = errors.New("identity service unreachable")

const principalPath = "/v4/auth/principal"

// Principal is the identity service's answer for a credential.
type Principal struct {
	CanonicalName string `json:"canonicalName"`
	IsAdmin       bool   `json:"isAdmin"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Principal resolves the credential. A non-200 answer is an error carrying
// the status code; transport failures wrap ErrUnreachable.
func (c *Client) Principal(ctx context.Context, credential string) (Principal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+principalPath, nil)
	if err != nil {
		return Principal{}, fmt.Errorf("build principal request: %w", err)
	}
	req.Header.Set("X-Api-Key", credential)

	resp, err := c.http.Do(req)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Principal{}, fmt.Errorf("%d - error getting user status", resp.StatusCode)
	}

	var principal Principal
	if err := json.NewDecoder(resp.Body).Decode(&principal); err != nil {
		return Principal{}, fmt.Errorf("decode principal response: %w", err)
	}
	return principal, nil
}
