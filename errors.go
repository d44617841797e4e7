package aeralogin

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGrant is returned when a code is unknown, expired or already used
	ErrInvalidGrant = errors.New("invalid grant")

	// ErrInvalidClient is returned when the client credentials are rejected
	ErrInvalidClient = errors.New("invalid client")

	// ErrTokenExpired is returned when a session token has expired
	ErrTokenExpired = errors.New("token has expired")

	// ErrInvalidToken is returned when a session token does not verify
	ErrInvalidToken = errors.New("invalid token")

	// ErrNotEligible is returned when the wallet misses the NFT or score requirement
	ErrNotEligible = errors.New("wallet not eligible")

	// ErrLedgerUnavailable is returned when the server cannot reach the chain
	ErrLedgerUnavailable = errors.New("ledger unavailable")
)

var codeErrors = map[string]error{
	"invalid_grant":       ErrInvalidGrant,
	"request_expired":     ErrInvalidGrant,
	"invalid_client":      ErrInvalidClient,
	"unknown_client":      ErrInvalidClient,
	"token_expired":       ErrTokenExpired,
	"invalid_token":       ErrInvalidToken,
	"nft_required":        ErrNotEligible,
	"score_too_low":       ErrNotEligible,
	"identity_inactive":   ErrNotEligible,
	"eligibility_not_met": ErrNotEligible,
	"ledger_unavailable":  ErrLedgerUnavailable,
}

// Error is an error response from the server
type Error struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *Error) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("aeralogin: %s: %s (status %d)", e.Code, e.Description, e.StatusCode)
	}
	return fmt.Sprintf("aeralogin: %s (status %d)", e.Code, e.StatusCode)
}

// Unwrap maps the error code onto the package sentinels
func (e *Error) Unwrap() error {
	return codeErrors[e.Code]
}
