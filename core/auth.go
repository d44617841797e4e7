package core

import "time"

// Challenge is a single-use nonce a wallet must embed in the signed message
type Challenge struct {
	Nonce     string    `json:"nonce"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Consumed  bool      `json:"consumed"`
}

// Expired reports whether the challenge TTL has elapsed at t
func (c *Challenge) Expired(t time.Time) bool {
	return !t.Before(c.ExpiresAt)
}

// RequestStatus is the lifecycle position of an authorization request
type RequestStatus string

const (
	RequestPending     RequestStatus = "pending"
	RequestCodeIssued  RequestStatus = "code_issued"
	RequestTokenIssued RequestStatus = "token_issued"
)

// AuthorizationRequest is a third-party login attempt.
// Transitions are one-way: pending -> code_issued -> token_issued.
type AuthorizationRequest struct {
	StateID     string        `json:"state_id"`
	ClientID    string        `json:"client_id"`
	RedirectURI string        `json:"redirect_uri"`
	ClientState string        `json:"client_state,omitempty"`
	MinScore    int64         `json:"min_score"`
	RequireNFT  bool          `json:"require_nft"`
	CreatedAt   time.Time     `json:"created_at"`
	ExpiresAt   time.Time     `json:"expires_at"`
	Status      RequestStatus `json:"status"`

	// Set once the wallet signature has been verified
	Code          string `json:"code,omitempty"`
	Address       string `json:"address,omitempty"`
	ScoreSnapshot int64  `json:"score_snapshot,omitempty"`
	HasNFT        bool   `json:"has_nft,omitempty"`
}

// Expired reports whether the request TTL has elapsed at t
func (r *AuthorizationRequest) Expired(t time.Time) bool {
	return !t.Before(r.ExpiresAt)
}

// Session is the payload of a signed, stateless session token
type Session struct {
	ID        string    // Unique token identifier (jti)
	Subject   string    // Lower-cased wallet address
	Issuer    string    // Token issuer
	Audience  string    // Client the token was minted for; informational only
	IssuedAt  time.Time // When the token was issued
	ExpiresAt time.Time // When the token stops being valid
	Score     int64     // Score snapshot at issuance
	HasNFT    bool      // Identity NFT snapshot at issuance
	ChainID   int64     // Chain the identity lives on
}

// Client is a registered third-party application
type Client struct {
	ID           string    `json:"client_id"`
	Name         string    `json:"client_name"`
	SecretHash   string    `json:"-"`
	RedirectURIs []string  `json:"redirect_uris"`
	MinScore     int64     `json:"min_score"`
	RequireNFT   bool      `json:"require_nft"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// AllowsRedirect reports whether uri is whitelisted for the client.
// Matching is exact.
func (c *Client) AllowsRedirect(uri string) bool {
	for _, allowed := range c.RedirectURIs {
		if allowed == uri {
			return true
		}
	}
	return false
}
