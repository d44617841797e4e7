package core

import (
	"errors"
	"fmt"
)

var (
	ErrChallengeNotFound    = errors.New("challenge not found")
	ErrChallengeExpired     = errors.New("challenge has expired")
	ErrChallengeAlreadyUsed = errors.New("challenge already used")
	ErrChallengeMismatch    = errors.New("signed message does not contain the challenge")

	ErrInvalidAddress   = errors.New("invalid ethereum address")
	ErrSignatureInvalid = errors.New("invalid signature")

	ErrUnknownClient             = errors.New("unknown client")
	ErrRedirectURINotWhitelisted = errors.New("redirect uri not whitelisted")
	ErrUnsupportedResponseType   = errors.New("unsupported response type")
	ErrUnsupportedGrantType      = errors.New("unsupported grant type")
	ErrInvalidClientCredentials  = errors.New("invalid client credentials")
	ErrInvalidClientMetadata     = errors.New("invalid client metadata")
	ErrRequestExpiredOrConsumed  = errors.New("authorization request expired or already used")

	ErrEligibilityNotMet = errors.New("eligibility requirements not met")
	ErrNFTRequired       = fmt.Errorf("%w: nft_required", ErrEligibilityNotMet)
	ErrScoreTooLow       = fmt.Errorf("%w: score_too_low", ErrEligibilityNotMet)
	ErrIdentityInactive  = fmt.Errorf("%w: identity_inactive", ErrEligibilityNotMet)

	ErrTokenExpired          = errors.New("token has expired")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")

	ErrRedirectTokenInvalidOrConsumed = errors.New("redirect token invalid or already used")
	ErrUnknownPlatform                = errors.New("unknown community platform")
	ErrInviteUnavailable              = errors.New("community invite link not configured")
	ErrGrantNotFound                  = errors.New("no pending capability grant for invite link")
	ErrInviteInUse                    = errors.New("invite link already carries a pending grant")
	ErrCommunityUnavailable           = errors.New("community platform unavailable")

	ErrLedgerUnavailable = errors.New("ledger unavailable")

	ErrIdentityNotFound = errors.New("identity not found")
	ErrInvalidStatus    = errors.New("invalid identity status")
	ErrInvalidWeight    = errors.New("interaction weight must be positive")
	ErrScoreOutOfRange  = errors.New("score out of range")
	ErrSelfFollow       = errors.New("identity cannot follow itself")
)
