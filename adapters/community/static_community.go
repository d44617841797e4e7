package community

import (
	"context"
	"strings"

	"github.com/layer-3/aeralogin/core"
	"github.com/layer-3/aeralogin/ports"
)

// StaticCommunity serves invite links from configuration. Every hand-off for
// a platform shares one link, so only one capability grant can be pending
// on it at a time. Production deployments mint single-use links instead.
type StaticCommunity struct {
	links map[string]string
}

var _ ports.Community = (*StaticCommunity)(nil)

// NewStaticCommunity creates a community adapter from platform -> link
func NewStaticCommunity(links map[string]string) *StaticCommunity {
	normalized := make(map[string]string, len(links))
	for platform, link := range links {
		normalized[strings.ToLower(platform)] = link
	}
	return &StaticCommunity{links: normalized}
}

func (c *StaticCommunity) InviteLink(_ context.Context, platform string) (string, error) {
	link, ok := c.links[strings.ToLower(platform)]
	if !ok || link == "" {
		return "", core.ErrInviteUnavailable
	}
	return link, nil
}
