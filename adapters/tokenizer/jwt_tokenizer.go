package tokenizer

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/aeralogin/core"
	"github.com/layer-3/aeralogin/ports"
)

const AudienceCapability = "community:capability"

// JWTTokenizer implements the Tokenizer interface using HS256 JWTs. Session
// and capability tokens are signed with different secrets so neither can
// stand in for the other.
type JWTTokenizer struct {
	sessionKey    []byte
	capabilityKey []byte
	issuer        string
	now           func() time.Time
}

// Option configures a JWTTokenizer
type Option func(*JWTTokenizer)

// WithClock overrides the time source used for validation
func WithClock(now func() time.Time) Option {
	return func(j *JWTTokenizer) { j.now = now }
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(sessionKey, capabilityKey []byte, issuer string, opts ...Option) *JWTTokenizer {
	j := &JWTTokenizer{
		sessionKey:    sessionKey,
		capabilityKey: capabilityKey,
		issuer:        issuer,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

var _ ports.Tokenizer = (*JWTTokenizer)(nil)

// SessionToToken converts a Session to a signed JWT
func (j *JWTTokenizer) SessionToToken(session *core.Session) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   session.Subject,
			ID:        session.ID,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
		},
		Score:   session.Score,
		HasNFT:  session.HasNFT,
		ChainID: session.ChainID,
	}
	if session.Audience != "" {
		claims.Audience = jwt.ClaimStrings{session.Audience}
	}

	signedToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.sessionKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signedToken, nil
}

// TokenToSession validates signature, issuer and expiry. The audience is
// carried through but never checked.
func (j *JWTTokenizer) TokenToSession(tokenStr string) (*core.Session, error) {
	claims := &SessionClaims{}
	if err := j.parse(tokenStr, claims, j.sessionKey); err != nil {
		return nil, err
	}

	session := &core.Session{
		ID:        claims.ID,
		Subject:   claims.Subject,
		Issuer:    claims.Issuer,
		IssuedAt:  timeOf(claims.IssuedAt),
		ExpiresAt: timeOf(claims.ExpiresAt),
		Score:     claims.Score,
		HasNFT:    claims.HasNFT,
		ChainID:   claims.ChainID,
	}
	if len(claims.Audience) > 0 {
		session.Audience = claims.Audience[0]
	}
	return session, nil
}

// GrantToToken converts a CapabilityGrant to a signed JWT
func (j *JWTTokenizer) GrantToToken(grant *core.CapabilityGrant) (string, error) {
	claims := CapabilityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			ID:        grant.ID,
			Audience:  jwt.ClaimStrings{AudienceCapability},
			ExpiresAt: jwt.NewNumericDate(grant.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(j.now()),
		},
		Capabilities: grant.Capabilities,
		Link:         grant.Link,
	}

	signedToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.capabilityKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign capability token: %w", err)
	}
	return signedToken, nil
}

// TokenToGrant parses a capability token
func (j *JWTTokenizer) TokenToGrant(tokenStr string) (*core.CapabilityGrant, error) {
	claims := &CapabilityClaims{}
	if err := j.parse(tokenStr, claims, j.capabilityKey, jwt.WithAudience(AudienceCapability)); err != nil {
		return nil, err
	}

	return &core.CapabilityGrant{
		ID:           claims.ID,
		Capabilities: core.CapabilitySet(claims.Capabilities),
		Link:         claims.Link,
		ExpiresAt:    timeOf(claims.ExpiresAt),
	}, nil
}

func (j *JWTTokenizer) parse(tokenStr string, claims jwt.Claims, key []byte, extra ...jwt.ParserOption) error {
	opts := append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	}, extra...)

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return key, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return core.ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", core.ErrTokenSignatureInvalid, err)
	}
	if !token.Valid {
		return core.ErrTokenSignatureInvalid
	}
	return nil
}

func timeOf(d *jwt.NumericDate) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}
