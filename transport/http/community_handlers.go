package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/aeralogin/service"
)

// CommunityHandlers serve the community hand-off endpoints
type CommunityHandlers struct {
	handoff *service.HandoffService
}

// NewCommunityHandlers creates community handlers
func NewCommunityHandlers(handoff *service.HandoffService) *CommunityHandlers {
	return &CommunityHandlers{handoff: handoff}
}

// Invite prepares a hand-off for the authenticated wallet
func (h *CommunityHandlers) Invite(c *gin.Context) {
	var req struct {
		Address    string `json:"address"`
		Platform   string `json:"platform" binding:"required"`
		DeviceHint string `json:"device_hint"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	session := sessionFrom(c)
	if session == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	if req.Address != "" && !strings.EqualFold(req.Address, session.Subject) {
		c.JSON(http.StatusForbidden, gin.H{"error": "address_mismatch", "error_description": "address does not match the session"})
		return
	}

	instr, err := h.handoff.PrepareHandoff(c.Request.Context(), service.HandoffRequest{
		Address:    session.Subject,
		Platform:   req.Platform,
		DeviceHint: req.DeviceHint,
		UserAgent:  c.Request.UserAgent(),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, instr)
}

// Redirect resolves a one-time redirect token
func (h *CommunityHandlers) Redirect(c *gin.Context) {
	target, err := h.handoff.Resolve(c.Request.Context(), c.Query("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Header("Referrer-Policy", "no-referrer")
	c.Redirect(http.StatusFound, target)
}

// Claim hands the pending capability grant for an invite link to the bot
func (h *CommunityHandlers) Claim(c *gin.Context) {
	var req struct {
		InviteLink string `json:"invite_link" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	grant, token, err := h.handoff.ClaimCapabilities(c.Request.Context(), req.InviteLink)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"capability_token": token,
		"capabilities":     grant.Capabilities,
		"expires_at":       grant.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// VerifyCapabilities lets a bot check a capability token it was handed
func (h *CommunityHandlers) VerifyCapabilities(c *gin.Context) {
	var req struct {
		CapabilityToken string `json:"capability_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	grant, err := h.handoff.VerifyCapabilities(req.CapabilityToken)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":        true,
		"grant_id":     grant.ID,
		"capabilities": grant.Capabilities,
		"invite_link":  grant.Link,
		"expires_at":   grant.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
