package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveCapabilities(t *testing.T) {
	policy := DefaultCapabilityPolicy()

	caps := DeriveCapabilities(62, true, policy)
	assert.Equal(t, CapabilitySet{"poll_50", "poll_55", "poll_60", "write"}, caps)

	assert.Empty(t, DeriveCapabilities(62, false, policy))
	assert.Empty(t, DeriveCapabilities(49, true, policy))

	policy.RequireNFT = false
	assert.Equal(t, CapabilitySet{"poll_50", "write"}, DeriveCapabilities(50, false, policy))
}

func TestDeriveCapabilitiesIsDeterministic(t *testing.T) {
	policy := DefaultCapabilityPolicy()
	for score := int64(0); score <= 200; score++ {
		assert.Equal(t, DeriveCapabilities(score, true, policy), DeriveCapabilities(score, true, policy))
	}
}

func TestDeriveCapabilitiesIsMonotonic(t *testing.T) {
	policy := DefaultCapabilityPolicy()
	for _, nft := range []bool{true, false} {
		for low := int64(40); low <= 200; low++ {
			lower := DeriveCapabilities(low, nft, policy)
			higher := DeriveCapabilities(low+1, nft, policy)
			for _, c := range lower {
				assert.True(t, higher.Has(c), "score %d lost %s", low+1, c)
			}
		}
	}
}

func TestDeriveCapabilitiesDoesNotLeakScore(t *testing.T) {
	policy := DefaultCapabilityPolicy()
	// Scores within one level band are indistinguishable
	assert.Equal(t, DeriveCapabilities(101, true, policy), DeriveCapabilities(187, true, policy))
	assert.Equal(t, DeriveCapabilities(61, true, policy), DeriveCapabilities(64, true, policy))
}
