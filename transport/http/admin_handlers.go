package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/aeralogin/core"
	"github.com/layer-3/aeralogin/service"
	"github.com/shopspring/decimal"
)

const actorHeader = "X-Admin-Actor"

// AdminHandlers serve client registration and score administration
type AdminHandlers struct {
	clients *service.ClientService
	scores  *service.ScoreService
}

// NewAdminHandlers creates admin handlers
func NewAdminHandlers(clients *service.ClientService, scores *service.ScoreService) *AdminHandlers {
	return &AdminHandlers{clients: clients, scores: scores}
}

// RegisterClient registers a third-party application
func (h *AdminHandlers) RegisterClient(c *gin.Context) {
	var req struct {
		ClientName   string   `json:"client_name" binding:"required"`
		RedirectURIs []string `json:"redirect_uris" binding:"required"`
		MinScore     int64    `json:"min_score"`
		RequireNFT   bool     `json:"require_nft"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	client, secret, err := h.clients.Register(c.Request.Context(), service.RegisterClientRequest{
		Name:         req.ClientName,
		RedirectURIs: req.RedirectURIs,
		MinScore:     req.MinScore,
		RequireNFT:   req.RequireNFT,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"client_id":     client.ID,
		"client_secret": secret,
		"client_name":   client.Name,
		"redirect_uris": client.RedirectURIs,
		"min_score":     client.MinScore,
		"require_nft":   client.RequireNFT,
	})
}

// Interaction applies an interaction weight to an identity
func (h *AdminHandlers) Interaction(c *gin.Context) {
	var req struct {
		Address string           `json:"address" binding:"required"`
		Weight  *decimal.Decimal `json:"weight" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	rec, err := h.scores.ApplyInteraction(c.Request.Context(), req.Address, *req.Weight)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, scoreResponse(rec))
}

// Follower adds or removes a follower
func (h *AdminHandlers) Follower(c *gin.Context) {
	var req struct {
		Owner    string `json:"owner" binding:"required"`
		Follower string `json:"follower" binding:"required"`
		Remove   bool   `json:"remove"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var (
		rec *core.ScoreRecord
		err error
	)
	if req.Remove {
		rec, err = h.scores.RemoveFollower(c.Request.Context(), req.Owner, req.Follower)
	} else {
		rec, err = h.scores.AddFollower(c.Request.Context(), req.Owner, req.Follower)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, scoreResponse(rec))
}

// RecomputeBonus refreshes an owner bonus from the current followers
func (h *AdminHandlers) RecomputeBonus(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	rec, err := h.scores.RecomputeOwnerBonus(c.Request.Context(), req.Address)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, scoreResponse(rec))
}

// AdjustScore overrides an identity's own score
func (h *AdminHandlers) AdjustScore(c *gin.Context) {
	var req struct {
		Address string           `json:"address" binding:"required"`
		Score   *decimal.Decimal `json:"score" binding:"required"`
		Reason  string           `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	rec, err := h.scores.AdminAdjust(c.Request.Context(), service.AdminAdjustRequest{
		Address:  req.Address,
		OwnScore: *req.Score,
		Actor:    actor(c),
		Reason:   req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, scoreResponse(rec))
}

// IdentityStatus suspends, revokes or reactivates an identity
func (h *AdminHandlers) IdentityStatus(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
		Status  string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	err := h.scores.SetIdentityStatus(c.Request.Context(), req.Address, core.IdentityStatus(req.Status), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": req.Address, "status": req.Status})
}

func actor(c *gin.Context) string {
	if a := c.GetHeader(actorHeader); a != "" {
		return a
	}
	return "admin"
}

func scoreResponse(rec *core.ScoreRecord) gin.H {
	return gin.H{
		"address":    rec.Address,
		"own":        rec.OwnScore,
		"bonus":      rec.OwnerBonus,
		"total":      rec.TotalInt(),
		"followers":  rec.FollowerCount,
		"sync_state": rec.SyncState,
		"version":    rec.Version,
	}
}
