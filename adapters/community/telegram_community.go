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

const DefaultTelegramAPIURL = "https://api.telegram.org"

// TelegramConfig configures single-use invite links for one chat
type TelegramConfig struct {
	APIURL   string
	BotToken string
	ChatID   string
	// LinkTTL is how long an unused link stays valid
	LinkTTL time.Duration
	Timeout time.Duration
}

// TelegramCommunity mints an invite link with member_limit=1 for every
// hand-off, so each pending grant has a link of its own
type TelegramCommunity struct {
	apiURL  string
	token   string
	chatID  string
	linkTTL time.Duration
	client  *http.Client
	now     func() time.Time
}

var _ ports.Community = (*TelegramCommunity)(nil)

// NewTelegramCommunity creates a Bot API backed community adapter
func NewTelegramCommunity(cfg TelegramConfig) *TelegramCommunity {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultTelegramAPIURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &TelegramCommunity{
		apiURL:  strings.TrimRight(apiURL, "/"),
		token:   cfg.BotToken,
		chatID:  cfg.ChatID,
		linkTTL: cfg.LinkTTL,
		client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		InviteLink  string `json:"invite_link"`
		MemberLimit int    `json:"member_limit"`
		ExpireDate  int64  `json:"expire_date"`
	} `json:"result"`
}

// InviteLink calls createChatInviteLink
func (c *TelegramCommunity) InviteLink(ctx context.Context, _ string) (string, error) {
	params := map[string]any{
		"chat_id":              c.chatID,
		"member_limit":         1,
		"creates_join_request": false,
	}
	if c.linkTTL > 0 {
		params["expire_date"] = c.now().Add(c.linkTTL).Unix()
	}
	body, err := json.Marshal(params)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/bot%s/createChatInviteLink", c.apiURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// The error text carries the bot token in the URL
		log.Error().Str("chat", c.chatID).Msg("Telegram API unreachable")
		return "", fmt.Errorf("%w: telegram api unreachable", core.ErrCommunityUnavailable)
	}
	defer resp.Body.Close()

	var out telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: telegram: invalid response (status %d)", core.ErrCommunityUnavailable, resp.StatusCode)
	}
	if !out.OK || out.Result.InviteLink == "" {
		log.Error().Str("chat", c.chatID).Str("description", out.Description).Msg("Failed to create Telegram invite")
		return "", fmt.Errorf("%w: telegram: %s", core.ErrCommunityUnavailable, out.Description)
	}

	log.Debug().Str("chat", c.chatID).Int64("expire_date", out.Result.ExpireDate).Msg("Single-use Telegram invite created")
	return out.Result.InviteLink, nil
}
