package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/aeralogin/core"
	"github.com/rs/zerolog/log"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorMappings is matched in order with errors.Is. Specific eligibility
// errors must stay ahead of ErrEligibilityNotMet.
var errorMappings = []errorMapping{
	{core.ErrInvalidAddress, http.StatusBadRequest, "invalid_address"},
	{core.ErrSignatureInvalid, http.StatusUnauthorized, "signature_invalid"},
	{core.ErrChallengeExpired, http.StatusBadRequest, "challenge_expired"},
	{core.ErrChallengeAlreadyUsed, http.StatusBadRequest, "challenge_used"},
	{core.ErrChallengeNotFound, http.StatusBadRequest, "challenge_not_found"},
	{core.ErrChallengeMismatch, http.StatusBadRequest, "challenge_mismatch"},

	{core.ErrUnknownClient, http.StatusBadRequest, "unknown_client"},
	{core.ErrRedirectURINotWhitelisted, http.StatusBadRequest, "redirect_uri_not_whitelisted"},
	{core.ErrUnsupportedResponseType, http.StatusBadRequest, "unsupported_response_type"},
	{core.ErrUnsupportedGrantType, http.StatusBadRequest, "unsupported_grant_type"},
	{core.ErrInvalidClientCredentials, http.StatusUnauthorized, "invalid_client"},
	{core.ErrInvalidClientMetadata, http.StatusBadRequest, "invalid_client_metadata"},
	{core.ErrRequestExpiredOrConsumed, http.StatusBadRequest, "request_expired"},

	{core.ErrNFTRequired, http.StatusForbidden, "nft_required"},
	{core.ErrScoreTooLow, http.StatusForbidden, "score_too_low"},
	{core.ErrIdentityInactive, http.StatusForbidden, "identity_inactive"},
	{core.ErrEligibilityNotMet, http.StatusForbidden, "eligibility_not_met"},

	{core.ErrTokenExpired, http.StatusUnauthorized, "token_expired"},
	{core.ErrTokenSignatureInvalid, http.StatusUnauthorized, "invalid_token"},

	{core.ErrRedirectTokenInvalidOrConsumed, http.StatusGone, "redirect_token_invalid"},
	{core.ErrUnknownPlatform, http.StatusBadRequest, "unknown_platform"},
	{core.ErrInviteUnavailable, http.StatusNotFound, "invite_unavailable"},
	{core.ErrGrantNotFound, http.StatusNotFound, "grant_not_found"},
	{core.ErrInviteInUse, http.StatusConflict, "invite_in_use"},
	{core.ErrCommunityUnavailable, http.StatusBadGateway, "community_unavailable"},

	{core.ErrLedgerUnavailable, http.StatusServiceUnavailable, "ledger_unavailable"},

	{core.ErrIdentityNotFound, http.StatusNotFound, "identity_not_found"},
	{core.ErrInvalidStatus, http.StatusBadRequest, "invalid_status"},
	{core.ErrInvalidWeight, http.StatusBadRequest, "invalid_weight"},
	{core.ErrScoreOutOfRange, http.StatusBadRequest, "score_out_of_range"},
	{core.ErrSelfFollow, http.StatusBadRequest, "self_follow"},
}

// oauthCodes overrides codes on the token endpoint with the RFC 6749 names
var oauthCodes = map[string]string{
	"request_expired": "invalid_grant",
	"unknown_client":  "invalid_client",
}

func lookupError(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "server_error"
}

// respondError writes {error, error_description} for err
func respondError(c *gin.Context, err error) {
	status, code := lookupError(err)
	writeError(c, status, code, err)
}

// respondOAuthError is respondError with token endpoint error codes
func respondOAuthError(c *gin.Context, err error) {
	status, code := lookupError(err)
	if oauthCode, ok := oauthCodes[code]; ok {
		code = oauthCode
	}
	writeError(c, status, code, err)
}

func writeError(c *gin.Context, status int, code string, err error) {
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}

	description := err.Error()
	if status == http.StatusInternalServerError {
		description = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": code, "error_description": description})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": err.Error()})
}
