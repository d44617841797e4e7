package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/aeralogin/service"
)

// AuthHandlers contains HTTP handlers for the sign-in and OAuth endpoints
type AuthHandlers struct {
	authService *service.AuthService
	scores      *service.ScoreService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, scores *service.ScoreService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		scores:      scores,
	}
}

// Nonce issues a sign-in challenge
func (h *AuthHandlers) Nonce(c *gin.Context) {
	challenge, err := h.authService.IssueNonce(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nonce":      challenge.Nonce,
		"expires_at": challenge.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Authorize opens a pending authorization request for a client
func (h *AuthHandlers) Authorize(c *gin.Context) {
	var req struct {
		ClientID     string `form:"client_id" binding:"required"`
		RedirectURI  string `form:"redirect_uri" binding:"required"`
		ResponseType string `form:"response_type" binding:"required"`
		State        string `form:"state"`
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.authService.Authorize(c.Request.Context(), service.AuthorizeRequest{
		ClientID:     req.ClientID,
		RedirectURI:  req.RedirectURI,
		ResponseType: req.ResponseType,
		State:        req.State,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"oauth_nonce":  result.Request.StateID,
		"client_name":  result.ClientName,
		"redirect_uri": result.Request.RedirectURI,
		"expires_at":   result.Request.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Complete verifies the wallet for a pending request and returns the code.
// The pending request is named by oauth_nonce or, equivalently, state.
func (h *AuthHandlers) Complete(c *gin.Context) {
	var req struct {
		OAuthNonce string `json:"oauth_nonce"`
		State      string `json:"state"`
		Address    string `json:"address" binding:"required"`
		Nonce      string `json:"nonce" binding:"required"`
		Message    string `json:"message" binding:"required"`
		Signature  string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	stateID := req.OAuthNonce
	if stateID == "" {
		stateID = req.State
	}
	if stateID == "" {
		badRequest(c, errors.New("oauth_nonce or state is required"))
		return
	}

	result, err := h.authService.Complete(c.Request.Context(), service.CompleteRequest{
		State:     stateID,
		Address:   req.Address,
		Nonce:     req.Nonce,
		Message:   req.Message,
		Signature: req.Signature,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":         result.Code,
		"redirect_uri": result.RedirectURI,
		"state":        result.State,
	})
}

// Token exchanges an authorization code. Accepts JSON or form bodies and
// HTTP basic client authentication.
func (h *AuthHandlers) Token(c *gin.Context) {
	var req struct {
		GrantType    string `form:"grant_type" json:"grant_type" binding:"required"`
		Code         string `form:"code" json:"code" binding:"required"`
		RedirectURI  string `form:"redirect_uri" json:"redirect_uri" binding:"required"`
		ClientID     string `form:"client_id" json:"client_id"`
		ClientSecret string `form:"client_secret" json:"client_secret"`
	}
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}
	if id, secret, ok := c.Request.BasicAuth(); ok {
		req.ClientID, req.ClientSecret = id, secret
	}

	c.Header("Cache-Control", "no-store")
	result, err := h.authService.Exchange(c.Request.Context(), service.ExchangeRequest{
		GrantType:    req.GrantType,
		Code:         req.Code,
		RedirectURI:  req.RedirectURI,
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
	})
	if err != nil {
		respondOAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse(result))
}

// Login signs a wallet in to the first-party app
func (h *AuthHandlers) Login(c *gin.Context) {
	var req struct {
		Address   string `json:"address" binding:"required"`
		Nonce     string `json:"nonce" binding:"required"`
		Message   string `json:"message" binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), service.LoginRequest{
		Address:   req.Address,
		Nonce:     req.Nonce,
		Message:   req.Message,
		Signature: req.Signature,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse(result))
}

// Verify introspects a bearer token
func (h *AuthHandlers) Verify(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"valid": false, "authenticated": false, "error": "invalid_token"})
		return
	}

	session, err := h.authService.Verify(c.Request.Context(), token)
	if err != nil {
		status, code := lookupError(err)
		c.JSON(status, gin.H{"valid": false, "authenticated": false, "error": code})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":         true,
		"authenticated": true,
		"wallet":        session.Subject,
		"score":         session.Score,
		"has_nft":       session.HasNFT,
		"issued_at":     session.IssuedAt.Unix(),
		"expires_at":    session.ExpiresAt.Unix(),
		"client_id":     session.Audience,
	})
}

// VerifyNFT re-reads NFT possession for a token holder on behalf of a client
func (h *AuthHandlers) VerifyNFT(c *gin.Context) {
	var req struct {
		AccessToken  string `json:"access_token" binding:"required"`
		ClientID     string `json:"client_id" binding:"required"`
		ClientSecret string `json:"client_secret" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	check, err := h.authService.VerifyNFT(c.Request.Context(), req.AccessToken, req.ClientID, req.ClientSecret)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":   true,
		"wallet":  check.Wallet,
		"has_nft": check.HasNFT,
		"score":   check.Score,
	})
}

// Me returns the session and the current score of the authenticated wallet
func (h *AuthHandlers) Me(c *gin.Context) {
	session := sessionFrom(c)
	if session == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	rec, err := h.scores.Score(c.Request.Context(), session.Subject)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"wallet":     session.Subject,
		"has_nft":    session.HasNFT,
		"chain_id":   session.ChainID,
		"expires_at": session.ExpiresAt.Unix(),
		"score": gin.H{
			"own":        rec.OwnScore,
			"bonus":      rec.OwnerBonus,
			"total":      rec.TotalInt(),
			"followers":  rec.FollowerCount,
			"sync_state": rec.SyncState,
		},
	})
}

func tokenResponse(result *service.TokenResult) gin.H {
	return gin.H{
		"access_token": result.AccessToken,
		"token_type":   result.TokenType,
		"expires_in":   result.ExpiresIn,
		"wallet":       result.Session.Subject,
		"score":        result.Session.Score,
		"has_nft":      result.Session.HasNFT,
	}
}
