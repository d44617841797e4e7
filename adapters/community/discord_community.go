package community

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/layer-3/aeralogin/core"
	"github.com/layer-3/aeralogin/ports"
	"github.com/rs/zerolog/log"
)

const (
	DefaultDiscordAPIURL = "https://discord.com/api/v10"
	discordInviteBase    = "https://discord.gg/"
)

// DiscordConfig configures single-use invites for one channel
type DiscordConfig struct {
	APIURL    string
	BotToken  string
	ChannelID string
	LinkTTL   time.Duration
	Timeout   time.Duration
}

// DiscordCommunity creates a unique invite with max_uses=1 per hand-off
type DiscordCommunity struct {
	apiURL    string
	token     string
	channelID string
	linkTTL   time.Duration
	client    *http.Client
}

var _ ports.Community = (*DiscordCommunity)(nil)

// NewDiscordCommunity creates a REST API backed community adapter
func NewDiscordCommunity(cfg DiscordConfig) *DiscordCommunity {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultDiscordAPIURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &DiscordCommunity{
		apiURL:    strings.TrimRight(apiURL, "/"),
		token:     cfg.BotToken,
		channelID: cfg.ChannelID,
		linkTTL:   cfg.LinkTTL,
		client:    &http.Client{Timeout: timeout},
	}
}

// InviteLink calls POST /channels/{id}/invites
func (c *DiscordCommunity) InviteLink(ctx context.Context, _ string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"max_age":   int64(c.linkTTL.Seconds()),
		"max_uses":  1,
		"unique":    true,
		"temporary": false,
	})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/channels/%s/invites", c.apiURL, c.channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bot "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: discord: %v", core.ErrCommunityUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		log.Error().Str("channel", c.channelID).Int("status", resp.StatusCode).Int("code", apiErr.Code).Str("message", apiErr.Message).Msg("Failed to create Discord invite")
		return "", fmt.Errorf("%w: discord: %s", core.ErrCommunityUnavailable, apiErr.Message)
	}

	var out struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Code == "" {
		return "", fmt.Errorf("%w: discord: invalid invite response", core.ErrCommunityUnavailable)
	}

	return discordInviteBase + out.Code, nil
}
