package aeralogin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 5 * time.Second

// Config holds the settings for an HTTPClient
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// HTTPClient talks to an aeralogin server
type HTTPClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	http         *http.Client
}

var _ Client = (*HTTPClient)(nil)

// New creates a client for the server at cfg.BaseURL
func New(cfg Config) *HTTPClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &HTTPClient{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		http:         &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) AuthorizeURL(redirectURI, state string) string {
	params := url.Values{}
	params.Set("client_id", c.clientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("response_type", "code")
	if state != "" {
		params.Set("state", state)
	}
	return fmt.Sprintf("%s/oauth/authorize?%s", c.baseURL, params.Encode())
}

func (c *HTTPClient) Exchange(ctx context.Context, code, redirectURI string) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	var token Token
	if err := c.do(req, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

func (c *HTTPClient) Verify(ctx context.Context, accessToken string) (*Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/verify", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var resp struct {
		Valid     bool   `json:"valid"`
		Wallet    string `json:"wallet"`
		Score     int64  `json:"score"`
		HasNFT    bool   `json:"has_nft"`
		ClientID  string `json:"client_id"`
		IssuedAt  int64  `json:"issued_at"`
		ExpiresAt int64  `json:"expires_at"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	if !resp.Valid {
		return nil, ErrInvalidToken
	}

	return &Session{
		Wallet:    resp.Wallet,
		Score:     resp.Score,
		HasNFT:    resp.HasNFT,
		ClientID:  resp.ClientID,
		IssuedAt:  time.Unix(resp.IssuedAt, 0),
		ExpiresAt: time.Unix(resp.ExpiresAt, 0),
	}, nil
}

func (c *HTTPClient) VerifyNFT(ctx context.Context, accessToken string) (*NFTStatus, error) {
	body, err := json.Marshal(map[string]string{
		"access_token":  accessToken,
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/oauth/verify-nft", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var status NFTStatus
	if err := c.do(req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("aeralogin: network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errorFromResponse(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("aeralogin: failed to decode response: %w", err)
	}
	return nil
}

func errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var payload struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	e := &Error{StatusCode: resp.StatusCode, Code: http.StatusText(resp.StatusCode)}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		e.Code = payload.Error
		e.Description = payload.Description
	}
	return e
}
