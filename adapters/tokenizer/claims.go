package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims combines standard claims with the identity snapshot
type SessionClaims struct {
	jwt.RegisteredClaims
	Score   int64 `json:"score"`
	HasNFT  bool  `json:"has_nft"`
	ChainID int64 `json:"chain_id"`
}

// CapabilityClaims carry a capability grant. They never include the wallet
// address or the score.
type CapabilityClaims struct {
	jwt.RegisteredClaims
	Capabilities []string `json:"caps"`
	Link         string   `json:"link"`
}
