package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/aeralogin/core"
	"github.com/layer-3/aeralogin/internal/metrics"
	"github.com/layer-3/aeralogin/ports"
	"github.com/rs/zerolog/log"
)

// HandoffConfig holds the hand-off settings loaded at startup
type HandoffConfig struct {
	// RedirectURL is the public address of the one-time redirect endpoint
	RedirectURL   string
	RedirectTTL   time.Duration
	CapabilityTTL time.Duration
	Policy        core.CapabilityPolicy
}

// HandoffRequest asks for access to a community on behalf of a wallet
type HandoffRequest struct {
	Address    string
	Platform   string
	DeviceHint string
	UserAgent  string
}

// HandoffService hands verified wallets off to external communities
type HandoffService struct {
	scores     *ScoreService
	identities ports.IdentityRepository
	ledger     ports.Ledger
	community  ports.Community
	tokenizer  ports.Tokenizer
	store      ports.Store
	strategies map[core.DeviceClass]HandoffStrategy

	cfg HandoffConfig
	now func() time.Time
}

// NewHandoffService creates a hand-off service with one strategy per device class
func NewHandoffService(
	cfg HandoffConfig,
	scores *ScoreService,
	identities ports.IdentityRepository,
	ledger ports.Ledger,
	community ports.Community,
	tokenizer ports.Tokenizer,
	store ports.Store,
) *HandoffService {
	s := &HandoffService{
		scores:     scores,
		identities: identities,
		ledger:     ledger,
		community:  community,
		tokenizer:  tokenizer,
		store:      store,
		cfg:        cfg,
		now:        time.Now,
	}

	redirects := &redirectIssuer{
		store:       store,
		ttl:         cfg.RedirectTTL,
		redirectURL: cfg.RedirectURL,
		now:         func() time.Time { return s.now() },
	}
	s.strategies = map[core.DeviceClass]HandoffStrategy{
		core.DeviceAndroidEmbedded: &AndroidIntentStrategy{redirects: redirects},
		core.DeviceIOSEmbedded:     &IOSUniversalLinkStrategy{redirects: redirects},
		core.DeviceDesktopOrOther:  &StandardRedirectStrategy{redirects: redirects},
	}
	return s
}

// PrepareHandoff derives the wallet's capabilities, parks them for the
// community bot under the invite link and returns device-specific
// instructions. The invite link itself is only revealed when the redirect
// token is resolved. Each hand-off needs a link of its own; a link that
// already carries a grant yields core.ErrInviteInUse.
func (s *HandoffService) PrepareHandoff(ctx context.Context, req HandoffRequest) (*core.HandoffInstruction, error) {
	addr, err := core.NormalizeAddress(req.Address)
	if err != nil {
		return nil, err
	}
	platform, err := core.LookupPlatform(req.Platform)
	if err != nil {
		return nil, err
	}

	identity, err := s.identities.GetIdentity(ctx, addr)
	if err != nil && !errors.Is(err, ports.ErrNotFound) {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}
	if identity != nil && identity.Status != core.IdentityActive {
		return nil, core.ErrIdentityInactive
	}

	hasNFT, err := s.ledger.HasIdentityNFT(ctx, addr)
	if err != nil {
		return nil, ledgerError(err)
	}
	if s.cfg.Policy.RequireNFT && !hasNFT {
		return nil, core.ErrNFTRequired
	}

	link, err := s.community.InviteLink(ctx, platform.Name)
	if err != nil {
		return nil, err
	}

	rec, err := s.scores.Score(ctx, addr)
	if err != nil {
		return nil, err
	}
	grant := &core.CapabilityGrant{
		ID:           uuid.NewString(),
		Capabilities: core.DeriveCapabilities(rec.TotalInt(), hasNFT, s.cfg.Policy),
		Link:         link,
		ExpiresAt:    s.now().Add(s.cfg.CapabilityTTL),
	}
	// A grant is bound to exactly one link; a link never carries a second grant
	if err := insertRecord(ctx, s.store, prefixGrant+link, grant, s.cfg.CapabilityTTL); err != nil {
		if errors.Is(err, ports.ErrKeyExists) {
			log.Warn().Str("platform", platform.Name).Msg("Invite link already has a pending grant")
			return nil, core.ErrInviteInUse
		}
		return nil, err
	}

	device := core.ClassifyDevice(req.UserAgent, req.DeviceHint)
	instr, err := s.strategies[device].Prepare(ctx, platform, link)
	if err != nil {
		return nil, err
	}
	instr.Platform = platform.Name
	instr.Device = device

	metrics.Handoffs.WithLabelValues(string(device)).Inc()
	log.Info().
		Str("address", core.ShortAddress(addr)).
		Str("platform", platform.Name).
		Str("device", string(device)).
		Int("capabilities", len(grant.Capabilities)).
		Msg("Community hand-off prepared")
	return instr, nil
}

// Resolve consumes a redirect token and returns its destination
func (s *HandoffService) Resolve(ctx context.Context, token string) (string, error) {
	var rt core.RedirectToken
	if err := consumeRecord(ctx, s.store, prefixRedirect+token, &rt); err != nil {
		metrics.RedirectResolutions.WithLabelValues(metrics.OutcomeFailure).Inc()
		if errors.Is(err, ports.ErrNotFound) || errors.Is(err, ports.ErrAlreadyConsumed) {
			return "", core.ErrRedirectTokenInvalidOrConsumed
		}
		return "", fmt.Errorf("failed to resolve redirect token: %w", err)
	}
	if rt.Expired(s.now()) {
		metrics.RedirectResolutions.WithLabelValues(metrics.OutcomeFailure).Inc()
		return "", core.ErrRedirectTokenInvalidOrConsumed
	}

	metrics.RedirectResolutions.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return rt.Target, nil
}

// ClaimCapabilities hands the parked grant for an invite link to the
// community bot, once, as a signed capability token
func (s *HandoffService) ClaimCapabilities(ctx context.Context, link string) (*core.CapabilityGrant, string, error) {
	var grant core.CapabilityGrant
	if err := consumeRecord(ctx, s.store, prefixGrant+link, &grant); err != nil {
		if errors.Is(err, ports.ErrNotFound) || errors.Is(err, ports.ErrAlreadyConsumed) {
			return nil, "", core.ErrGrantNotFound
		}
		return nil, "", fmt.Errorf("failed to claim grant: %w", err)
	}
	if !s.now().Before(grant.ExpiresAt) {
		return nil, "", core.ErrGrantNotFound
	}

	token, err := s.tokenizer.GrantToToken(&grant)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign capability grant: %w", err)
	}
	return &grant, token, nil
}

// VerifyCapabilities checks a capability token previously issued by
// ClaimCapabilities
func (s *HandoffService) VerifyCapabilities(token string) (*core.CapabilityGrant, error) {
	return s.tokenizer.TokenToGrant(token)
}
