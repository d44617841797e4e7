package core

import (
	"fmt"
	"sort"
	"time"
)

const CapabilityWrite = "write"

// CapabilityPolicy configures how a score maps onto capabilities for a community
type CapabilityPolicy struct {
	RequireNFT    bool
	WriteMinScore int64
	PollLevels    []int64
}

// DefaultCapabilityPolicy mirrors the gated chat defaults
func DefaultCapabilityPolicy() CapabilityPolicy {
	return CapabilityPolicy{
		RequireNFT:    true,
		WriteMinScore: 50,
		PollLevels:    []int64{50, 55, 60, 65, 70, 75, 80, 85, 90, 95, 100},
	}
}

// CapabilitySet is a sorted list of opaque permission strings
type CapabilitySet []string

// Has reports whether the set contains capability
func (s CapabilitySet) Has(capability string) bool {
	for _, c := range s {
		if c == capability {
			return true
		}
	}
	return false
}

// DeriveCapabilities maps a total score into capabilities. The mapping is
// monotonic in score: a higher score always yields a superset. The numeric
// score is not recoverable from the result beyond the configured levels.
func DeriveCapabilities(total int64, hasNFT bool, policy CapabilityPolicy) CapabilitySet {
	caps := CapabilitySet{}
	if policy.RequireNFT && !hasNFT {
		return caps
	}

	if total >= policy.WriteMinScore {
		caps = append(caps, CapabilityWrite)
	}
	for _, level := range policy.PollLevels {
		if total >= level {
			caps = append(caps, fmt.Sprintf("poll_%d", level))
		}
	}

	sort.Strings(caps)
	return caps
}

// CapabilityGrant is what an external bot receives; it never carries the
// wallet address or the score.
type CapabilityGrant struct {
	ID           string        `json:"id"`
	Capabilities CapabilitySet `json:"capabilities"`
	Link         string        `json:"link"`
	ExpiresAt    time.Time     `json:"expires_at"`
}
