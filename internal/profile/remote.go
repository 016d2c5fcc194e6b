package profile

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RemoteStore fetches profile records from an external profile service.
// Requests carry a short-lived HS256 admin token derived from an
// "id:hex-secret" key, the scheme the nutrition platform's admin API
// expects.
type RemoteStore struct {
	baseURL    string
	adminKey   string
	httpClient *http.Client
}

// NewRemoteStore creates a client for the profile service at baseURL.
func NewRemoteStore(baseURL, adminKey string) *RemoteStore {
	return &RemoteStore{
		baseURL:  strings.TrimRight(baseURL, "/"),
		adminKey: adminKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// FetchRecord retrieves the raw record for userCode. The service has no
// "any record" endpoint, so an empty userCode resolves to no record and
// the caller falls back to defaults.
func (s *RemoteStore) FetchRecord(ctx context.Context, userCode string) (json.RawMessage, error) {
	if userCode == "" {
		return nil, ErrNoRecord
	}

	token, err := s.createAdminToken()
	if err != nil {
		return nil, fmt.Errorf("failed to create admin token: %w", err)
	}

	url := fmt.Sprintf("%s/profiles/%s", s.baseURL, userCode)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoRecord
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("profile service error: status %d, body: %s", resp.StatusCode, string(body))
	}

	record, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if !json.Valid(record) {
		return nil, fmt.Errorf("profile service returned invalid JSON")
	}
	return json.RawMessage(record), nil
}

// createAdminToken generates a short-lived JWT for the profile service
// admin API.
func (s *RemoteStore) createAdminToken() (string, error) {
	keyParts := strings.Split(s.adminKey, ":")
	if len(keyParts) != 2 {
		return "", fmt.Errorf("invalid admin key format: expected id:secret")
	}

	id := keyParts[0]
	secret, err := hex.DecodeString(keyParts[1])
	if err != nil {
		return "", fmt.Errorf("failed to decode secret hex: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(5 * time.Minute).Unix(),
		"aud": "/admin/",
	})
	token.Header["kid"] = id

	return token.SignedString(secret)
}
