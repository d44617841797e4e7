package tokenizer

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/aeralogin/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sessionKey    = []byte("0123456789abcdef0123456789abcdef")
	capabilityKey = []byte("fedcba9876543210fedcba9876543210")
)

func testSession(now time.Time) *core.Session {
	return &core.Session{
		ID:        "jti-1",
		Subject:   "0x1111111111111111111111111111111111111111",
		Audience:  "aera_client",
		IssuedAt:  now,
		ExpiresAt: now.Add(24 * time.Hour),
		Score:     73,
		HasNFT:    true,
		ChainID:   8453,
	}
}

func TestSessionRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	tok := NewJWTTokenizer(sessionKey, capabilityKey, "aeralogin")

	token, err := tok.SessionToToken(testSession(now))
	require.NoError(t, err)

	session, err := tok.TokenToSession(token)
	require.NoError(t, err)

	assert.Equal(t, "jti-1", session.ID)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", session.Subject)
	assert.Equal(t, "aeralogin", session.Issuer)
	assert.Equal(t, "aera_client", session.Audience)
	assert.Equal(t, int64(73), session.Score)
	assert.True(t, session.HasNFT)
	assert.Equal(t, int64(8453), session.ChainID)
	assert.True(t, session.IssuedAt.Equal(now))
	assert.True(t, session.ExpiresAt.Equal(now.Add(24*time.Hour)))
}

func TestSessionAudienceIsNotChecked(t *testing.T) {
	now := time.Now()
	tok := NewJWTTokenizer(sessionKey, capabilityKey, "aeralogin")

	for _, aud := range []string{"", "some_other_client", "aeralogin"} {
		s := testSession(now)
		s.Audience = aud
		token, err := tok.SessionToToken(s)
		require.NoError(t, err)

		_, err = tok.TokenToSession(token)
		assert.NoError(t, err, aud)
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	token, err := NewJWTTokenizer(sessionKey, capabilityKey, "aeralogin").SessionToToken(testSession(now))
	require.NoError(t, err)

	later := NewJWTTokenizer(sessionKey, capabilityKey, "aeralogin", WithClock(func() time.Time {
		return now.Add(25 * time.Hour)
	}))
	_, err = later.TokenToSession(token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestSessionRejectsForeignTokens(t *testing.T) {
	now := time.Now()
	tok := NewJWTTokenizer(sessionKey, capabilityKey, "aeralogin")

	other, err := NewJWTTokenizer([]byte("another-secret-another-secret-xx"), capabilityKey, "aeralogin").SessionToToken(testSession(now))
	require.NoError(t, err)
	_, err = tok.TokenToSession(other)
	assert.ErrorIs(t, err, core.ErrTokenSignatureInvalid)

	wrongIssuer, err := NewJWTTokenizer(sessionKey, capabilityKey, "someone-else").SessionToToken(testSession(now))
	require.NoError(t, err)
	_, err = tok.TokenToSession(wrongIssuer)
	assert.ErrorIs(t, err, core.ErrTokenSignatureInvalid)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"iss": "aeralogin",
		"sub": "0x1111111111111111111111111111111111111111",
		"exp": now.Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tok.TokenToSession(unsigned)
	assert.ErrorIs(t, err, core.ErrTokenSignatureInvalid)

	_, err = tok.TokenToSession("garbage")
	assert.ErrorIs(t, err, core.ErrTokenSignatureInvalid)
}

func TestGrantRoundTrip(t *testing.T) {
	tok := NewJWTTokenizer(sessionKey, capabilityKey, "aeralogin")
	grant := &core.CapabilityGrant{
		ID:           "grant-1",
		Capabilities: core.CapabilitySet{"poll_50", "write"},
		Link:         "https://t.me/+abc",
		ExpiresAt:    time.Now().Add(2 * time.Minute).Truncate(time.Second),
	}

	token, err := tok.GrantToToken(grant)
	require.NoError(t, err)

	parsed, err := tok.TokenToGrant(token)
	require.NoError(t, err)
	assert.Equal(t, grant.ID, parsed.ID)
	assert.Equal(t, grant.Capabilities, parsed.Capabilities)
	assert.Equal(t, grant.Link, parsed.Link)
	assert.True(t, grant.ExpiresAt.Equal(parsed.ExpiresAt))

	// A capability token is not a session
	_, err = tok.TokenToSession(token)
	assert.ErrorIs(t, err, core.ErrTokenSignatureInvalid)
}
