package community

import (
	"context"
	"strings"

	"github.com/layer-3/aeralogin/core"
	"github.com/layer-3/aeralogin/ports"
)

// Platforms routes invite requests to the adapter serving each platform
type Platforms map[string]ports.Community

var _ ports.Community = Platforms(nil)

func (p Platforms) InviteLink(ctx context.Context, platform string) (string, error) {
	c, ok := p[strings.ToLower(platform)]
	if !ok || c == nil {
		return "", core.ErrInviteUnavailable
	}
	return c.InviteLink(ctx, platform)
}
