package core

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// IdentityStatus is administratively controlled
type IdentityStatus string

const (
	IdentityActive    IdentityStatus = "active"
	IdentitySuspended IdentityStatus = "suspended"
	IdentityRevoked   IdentityStatus = "revoked"
)

// Valid reports whether s is one of the known statuses
func (s IdentityStatus) Valid() bool {
	switch s {
	case IdentityActive, IdentitySuspended, IdentityRevoked:
		return true
	}
	return false
}

// Identity is keyed by the lower-cased wallet address
type Identity struct {
	Address   string         `json:"address"`
	Status    IdentityStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}

// NormalizeAddress validates a hex address and returns its lower-case form
func NormalizeAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", ErrInvalidAddress
	}
	return strings.ToLower(common.HexToAddress(address).Hex()), nil
}

// ShortAddress truncates an address for log output
func ShortAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:10]
}
