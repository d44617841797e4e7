package ports

import "github.com/layer-3/aeralogin/core"

// Tokenizer converts between domain objects and signed tokens
type Tokenizer interface {
	// Session tokens
	SessionToToken(session *core.Session) (string, error)
	TokenToSession(token string) (*core.Session, error)

	// Capability tokens handed to community bots
	GrantToToken(grant *core.CapabilityGrant) (string, error)
	TokenToGrant(token string) (*core.CapabilityGrant, error)
}
