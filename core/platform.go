package core

import (
	"net/url"
	"strings"
)

// Platform describes how to reach an external community app on each device
type Platform struct {
	Name           string
	AndroidPackage string
	// LinkHosts maps invite hosts to the host the iOS app claims as a
	// universal link
	LinkHosts map[string]string
}

var platforms = map[string]Platform{
	"telegram": {
		Name:           "telegram",
		AndroidPackage: "org.telegram.messenger",
		LinkHosts:      map[string]string{"t.me": "telegram.me"},
	},
	"discord": {
		Name:           "discord",
		AndroidPackage: "com.discord",
	},
}

// LookupPlatform returns the catalogue entry for name
func LookupPlatform(name string) (Platform, error) {
	p, ok := platforms[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Platform{}, ErrUnknownPlatform
	}
	return p, nil
}

// StoreURL opens the Play Store listing for the Android app
func (p Platform) StoreURL() string {
	if p.AndroidPackage == "" {
		return ""
	}
	return "market://details?id=" + url.QueryEscape(p.AndroidPackage)
}

// UniversalLink rewrites target onto the host the native app intercepts.
// Targets on other hosts, or that do not parse, are returned unchanged.
func (p Platform) UniversalLink(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	host, ok := p.LinkHosts[strings.ToLower(u.Host)]
	if !ok {
		return target
	}
	u.Host = host
	u.Scheme = "https"
	return u.String()
}
