package aeralogin

import (
	"context"
	"time"
)

// Client is what a relying party uses to sign wallets in through aeralogin
type Client interface {
	// AuthorizeURL is where the user is sent to start a sign-in
	AuthorizeURL(redirectURI, state string) string

	// Exchange redeems an authorization code for a session token
	Exchange(ctx context.Context, code, redirectURI string) (*Token, error)

	// Verify introspects a session token
	Verify(ctx context.Context, accessToken string) (*Session, error)

	// VerifyNFT re-reads identity NFT possession for a token holder
	VerifyNFT(ctx context.Context, accessToken string) (*NFTStatus, error)
}

// Token is an issued session token with its eligibility snapshot
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Wallet      string `json:"wallet"`
	Score       int64  `json:"score"`
	HasNFT      bool   `json:"has_nft"`
}

// Session is the introspection result for a valid token
type Session struct {
	Wallet    string
	Score     int64
	HasNFT    bool
	ClientID  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// NFTStatus is a fresh ledger read
type NFTStatus struct {
	Wallet string `json:"wallet"`
	HasNFT bool   `json:"has_nft"`
	Score  int64  `json:"score"`
}
