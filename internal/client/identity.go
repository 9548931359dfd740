package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-faster/errors"
)

// Identity resolves user profiles. Used only on best-effort paths: a failed
// lookup degrades confirmation messaging, never an order or payment.
type Identity interface {
	GetUser(ctx context.Context, userID int64) (*User, error)
}

// HTTPIdentity is the user-directory client.
type HTTPIdentity struct {
	baseURL string
	http    *http.Client
}

// NewHTTPIdentity creates an identity client for the given base URL.
func NewHTTPIdentity(baseURL string, httpClient *http.Client) *HTTPIdentity {
	return &HTTPIdentity{baseURL: baseURL, http: httpClient}
}

// GetUser fetches a user profile by id.
func (c *HTTPIdentity) GetUser(ctx context.Context, userID int64) (*User, error) {
	url := fmt.Sprintf("%s/api/auth/users/%d", c.baseURL, userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build identity request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UnavailableError{Collaborator: "identity", Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, &UnavailableError{
			Collaborator: "identity",
			Err:          errors.Errorf("user %d: status %d", userID, resp.StatusCode),
		}
	}

	var u User
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, &UnavailableError{Collaborator: "identity", Err: errors.Wrap(err, "decode user")}
	}

	if u.ID == 0 {
		u.ID = userID
	}
	return &u, nil
}
