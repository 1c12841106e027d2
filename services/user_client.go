package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// UserDirectory resolves a user id to the contact details the notifier
// needs. Identity is owned by an external service.
type UserDirectory interface {
	EmailForUser(ctx context.Context, userID string) (string, error)
}

// HTTPUserDirectory calls the user service's internal lookup endpoint.
type HTTPUserDirectory struct {
	baseURL string
	client  *http.Client
}

func NewHTTPUserDirectory(baseURL string) *HTTPUserDirectory {
	return &HTTPUserDirectory{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (d *HTTPUserDirectory) EmailForUser(ctx context.Context, userID string) (string, error) {
	url := fmt.Sprintf("%s/users/internal/%s", d.baseURL, userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("user service returned %d", resp.StatusCode)
	}

	var out struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Email, nil
}
