package yandex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const (
	iamURL = "https://iam.api.cloud.yandex.net/iam/v1/tokens"

	// used when the exchange response carries no expiresAt
	iamLifetime = 11 * time.Hour
	iamSkew     = time.Minute
)

// IamClient exchanges an OAuth token for a short-lived IAM token and caches it.
type IamClient struct {
	httpc *http.Client
	oauth string
	url   string

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewIamClient(oauth string) *IamClient {
	return &IamClient{
		httpc: &http.Client{Timeout: 20 * time.Second},
		oauth: oauth,
		url:   iamURL,
	}
}

// Token returns the cached IAM token, exchanging the OAuth token when the
// cached one is missing or about to expire.
func (c *IamClient) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid(time.Now()) {
		return c.token, nil
	}
	tok, exp, err := c.fetch(ctx)
	if err != nil {
		return "", err
	}
	c.token, c.expires = tok, exp
	return tok, nil
}

func (c *IamClient) valid(now time.Time) bool {
	return c.token != "" && now.Add(iamSkew).Before(c.expires)
}

type iamResponse struct {
	IamToken  string    `json:"iamToken"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (c *IamClient) fetch(ctx context.Context) (string, time.Time, error) {
	body, _ := json.Marshal(map[string]string{"yandexPassportOauthToken": c.oauth})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", time.Time{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", time.Time{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("iam %d", resp.StatusCode)
	}

	var out iamResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", time.Time{}, fmt.Errorf("iam: bad JSON: %w", err)
	}
	if out.ExpiresAt.IsZero() {
		out.ExpiresAt = time.Now().Add(iamLifetime)
	}
	return out.IamToken, out.ExpiresAt, nil
}

// Invalidate drops the cached token so the next call fetches a new one.
func (c *IamClient) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}
