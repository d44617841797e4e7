package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/layer-3/aeralogin/core"
	"github.com/layer-3/aeralogin/ports"
)

// androidFallbackWindow is how long the client waits for the intent before
// falling back to the store link
const androidFallbackWindow = 2500 * time.Millisecond

// HandoffStrategy builds the instruction for one device class
type HandoffStrategy interface {
	Prepare(ctx context.Context, platform core.Platform, target string) (*core.HandoffInstruction, error)
}

// redirectIssuer mints one-time redirect tokens that resolve server-side
type redirectIssuer struct {
	store       ports.Store
	ttl         time.Duration
	redirectURL string
	now         func() time.Time
}

func (r *redirectIssuer) issue(ctx context.Context, platform, target string) (*core.RedirectToken, string, error) {
	token, err := randomToken(24)
	if err != nil {
		return nil, "", err
	}

	now := r.now()
	rt := &core.RedirectToken{
		Token:     token,
		Target:    target,
		Platform:  platform,
		CreatedAt: now,
		ExpiresAt: now.Add(r.ttl),
	}
	if err := putRecord(ctx, r.store, prefixRedirect+token, rt, r.ttl); err != nil {
		return nil, "", err
	}

	u, err := url.Parse(r.redirectURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid redirect endpoint: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return rt, u.String(), nil
}

func (r *redirectIssuer) instruction(ctx context.Context, method core.HandoffMethod, platform, target string) (*core.HandoffInstruction, error) {
	rt, redirectURL, err := r.issue(ctx, platform, target)
	if err != nil {
		return nil, err
	}
	return &core.HandoffInstruction{
		Method:           method,
		RedirectToken:    rt.Token,
		RedirectURL:      redirectURL,
		ExpiresInSeconds: int64(r.ttl.Seconds()),
	}, nil
}

// AndroidIntentStrategy leaves the wallet webview through an intent that
// opens the one-time redirect endpoint in the system browser
type AndroidIntentStrategy struct {
	redirects *redirectIssuer
}

func (s *AndroidIntentStrategy) Prepare(ctx context.Context, platform core.Platform, target string) (*core.HandoffInstruction, error) {
	instr, err := s.redirects.instruction(ctx, core.HandoffIntentBridge, platform.Name, target)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(instr.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect url: %w", err)
	}
	instr.IntentURL = fmt.Sprintf("intent://%s%s?%s#Intent;scheme=%s;action=android.intent.action.VIEW;S.browser_fallback_url=%s;end",
		u.Host, u.Path, u.RawQuery, u.Scheme, url.QueryEscape(instr.RedirectURL))
	instr.FallbackURL = platform.StoreURL()
	instr.FallbackAfterMS = androidFallbackWindow.Milliseconds()
	return instr, nil
}

// IOSUniversalLinkStrategy redirects onto the host the native app claims
type IOSUniversalLinkStrategy struct {
	redirects *redirectIssuer
}

func (s *IOSUniversalLinkStrategy) Prepare(ctx context.Context, platform core.Platform, target string) (*core.HandoffInstruction, error) {
	return s.redirects.instruction(ctx, core.HandoffUniversalLink, platform.Name, platform.UniversalLink(target))
}

// StandardRedirectStrategy is a plain one-time redirect
type StandardRedirectStrategy struct {
	redirects *redirectIssuer
}

func (s *StandardRedirectStrategy) Prepare(ctx context.Context, platform core.Platform, target string) (*core.HandoffInstruction, error) {
	return s.redirects.instruction(ctx, core.HandoffStandardRedirect, platform.Name, target)
}
