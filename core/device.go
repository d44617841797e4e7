package core

import (
	"strings"
	"time"
)

// DeviceClass is the closed set of hand-off behaviours
type DeviceClass string

const (
	DeviceAndroidEmbedded DeviceClass = "android_embedded"
	DeviceIOSEmbedded     DeviceClass = "ios_embedded"
	DeviceDesktopOrOther  DeviceClass = "desktop_or_other"
)

// walletBrowserMarkers identify in-app browsers of mobile wallets
var walletBrowserMarkers = []string{
	"metamask",
	"trust",
	"coinbase",
	"coinbasewallet",
	"base",
	"rainbow",
	"phantom",
	"uniswap",
	"1inch",
	"zerion",
	"wallet",
}

// ClassifyDevice infers the device class from request metadata. An explicit
// hint naming a class wins over the user agent.
func ClassifyDevice(userAgent, hint string) DeviceClass {
	switch DeviceClass(strings.ToLower(strings.TrimSpace(hint))) {
	case DeviceAndroidEmbedded:
		return DeviceAndroidEmbedded
	case DeviceIOSEmbedded:
		return DeviceIOSEmbedded
	case DeviceDesktopOrOther:
		return DeviceDesktopOrOther
	}

	ua := strings.ToLower(userAgent)
	embedded := false
	for _, marker := range walletBrowserMarkers {
		if strings.Contains(ua, marker) {
			embedded = true
			break
		}
	}
	if !embedded {
		return DeviceDesktopOrOther
	}

	switch {
	case strings.Contains(ua, "android"):
		return DeviceAndroidEmbedded
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"), strings.Contains(ua, "ios"):
		return DeviceIOSEmbedded
	default:
		return DeviceDesktopOrOther
	}
}

// HandoffMethod tells the client how to act on a HandoffInstruction
type HandoffMethod string

const (
	HandoffIntentBridge     HandoffMethod = "intent_bridge"
	HandoffUniversalLink    HandoffMethod = "ios_universal_link"
	HandoffStandardRedirect HandoffMethod = "standard_redirect"
)

// HandoffInstruction is returned to the client. It never contains the
// community destination itself.
type HandoffInstruction struct {
	Method           HandoffMethod `json:"method"`
	Platform         string        `json:"platform"`
	Device           DeviceClass   `json:"device"`
	RedirectToken    string        `json:"redirect_token,omitempty"`
	RedirectURL      string        `json:"redirect_url,omitempty"`
	IntentURL        string        `json:"intent_url,omitempty"`
	FallbackURL      string        `json:"fallback_url,omitempty"`
	FallbackAfterMS  int64         `json:"fallback_after_ms,omitempty"`
	ExpiresInSeconds int64         `json:"expires_in_seconds"`
}

// RedirectToken indirects a client to a destination resolved server-side
type RedirectToken struct {
	Token     string    `json:"token"`
	Target    string    `json:"target"`
	Platform  string    `json:"platform"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the token TTL has elapsed at t
func (r *RedirectToken) Expired(t time.Time) bool {
	return !t.Before(r.ExpiresAt)
}
