package ports

import "context"

// Community resolves invite destinations on an external community platform
type Community interface {
	InviteLink(ctx context.Context, platform string) (string, error)
}
