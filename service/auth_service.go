package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/aeralogin/core"
	"github.com/layer-3/aeralogin/internal/eth"
	"github.com/layer-3/aeralogin/internal/metrics"
	"github.com/layer-3/aeralogin/ports"
	"github.com/rs/zerolog/log"
)

const (
	ResponseTypeCode           = "code"
	GrantTypeAuthorizationCode = "authorization_code"
	TokenTypeBearer            = "Bearer"
)

// SignatureVerifier checks a wallet signature over a message
type SignatureVerifier interface {
	Verify(ctx context.Context, address, message, signature string) (eth.Result, error)
}

// AuthConfig holds the flow settings loaded at startup
type AuthConfig struct {
	Issuer     string
	ChainID    int64
	SessionTTL time.Duration
	RequestTTL time.Duration
	CodeTTL    time.Duration
}

// AuthorizeRequest starts a third-party login
type AuthorizeRequest struct {
	ClientID     string
	RedirectURI  string
	ResponseType string
	State        string
}

// AuthorizeResult is what the sign-in UI needs to continue
type AuthorizeResult struct {
	Request    *core.AuthorizationRequest
	ClientName string
}

// CompleteRequest carries the signed challenge for a pending request
type CompleteRequest struct {
	State     string
	Address   string
	Nonce     string
	Message   string
	Signature string
}

// CompleteResult tells the UI where to send the user with the code
type CompleteResult struct {
	Code        string
	RedirectURI string
	State       string
}

// ExchangeRequest redeems an authorization code
type ExchangeRequest struct {
	GrantType    string
	Code         string
	RedirectURI  string
	ClientID     string
	ClientSecret string
}

// LoginRequest is a first-party sign-in without a client
type LoginRequest struct {
	Address   string
	Nonce     string
	Message   string
	Signature string
}

// TokenResult is an issued session token with its embedded snapshot
type TokenResult struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int64
	Session     *core.Session
}

// NFTCheck is a fresh ledger read for a token holder
type NFTCheck struct {
	Wallet string
	HasNFT bool
	Score  int64
}

// AuthService owns authorization requests, codes and session issuance
type AuthService struct {
	challenges *ChallengeService
	clients    *ClientService
	scores     *ScoreService
	verifier   SignatureVerifier
	identities ports.IdentityRepository
	ledger     ports.Ledger
	tokenizer  ports.Tokenizer
	store      ports.Store

	cfg AuthConfig
	now func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(
	cfg AuthConfig,
	challenges *ChallengeService,
	clients *ClientService,
	scores *ScoreService,
	verifier SignatureVerifier,
	identities ports.IdentityRepository,
	ledger ports.Ledger,
	tokenizer ports.Tokenizer,
	store ports.Store,
) *AuthService {
	return &AuthService{
		challenges: challenges,
		clients:    clients,
		scores:     scores,
		verifier:   verifier,
		identities: identities,
		ledger:     ledger,
		tokenizer:  tokenizer,
		store:      store,
		cfg:        cfg,
		now:        time.Now,
	}
}

// IssueNonce creates a sign-in challenge
func (s *AuthService) IssueNonce(ctx context.Context) (*core.Challenge, error) {
	return s.challenges.Issue(ctx)
}

// Authorize validates the client and opens a pending request
func (s *AuthService) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error) {
	client, err := s.clients.Get(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	if !client.AllowsRedirect(req.RedirectURI) {
		return nil, core.ErrRedirectURINotWhitelisted
	}
	if req.ResponseType != ResponseTypeCode {
		return nil, core.ErrUnsupportedResponseType
	}

	stateID, err := randomToken(32)
	if err != nil {
		return nil, err
	}

	now := s.now()
	authReq := &core.AuthorizationRequest{
		StateID:     stateID,
		ClientID:    client.ID,
		RedirectURI: req.RedirectURI,
		ClientState: req.State,
		MinScore:    client.MinScore,
		RequireNFT:  client.RequireNFT,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.RequestTTL),
		Status:      core.RequestPending,
	}
	if err := putRecord(ctx, s.store, prefixRequest+stateID, authReq, s.cfg.RequestTTL); err != nil {
		return nil, err
	}

	log.Debug().Str("client_id", client.ID).Msg("Authorization request created")
	return &AuthorizeResult{Request: authReq, ClientName: client.Name}, nil
}

// Complete verifies the wallet for a pending request and mints a code.
// The request is consumed first, so every failure is terminal.
func (s *AuthService) Complete(ctx context.Context, req CompleteRequest) (*CompleteResult, error) {
	result, err := s.complete(ctx, req)
	if err != nil {
		metrics.AuthorizationsCompleted.WithLabelValues(metrics.OutcomeFailure).Inc()
		return nil, err
	}
	metrics.AuthorizationsCompleted.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return result, nil
}

func (s *AuthService) complete(ctx context.Context, req CompleteRequest) (*CompleteResult, error) {
	var authReq core.AuthorizationRequest
	if err := consumeRecord(ctx, s.store, prefixRequest+req.State, &authReq); err != nil {
		return nil, requestError(err)
	}
	if authReq.Status != core.RequestPending || authReq.Expired(s.now()) {
		return nil, core.ErrRequestExpiredOrConsumed
	}

	address, err := s.authenticateWallet(ctx, req.Address, req.Nonce, req.Message, req.Signature)
	if err != nil {
		return nil, err
	}

	hasNFT, total, err := s.snapshot(ctx, address)
	if err != nil {
		return nil, err
	}
	if authReq.RequireNFT && !hasNFT {
		return nil, core.ErrNFTRequired
	}
	if total < authReq.MinScore {
		return nil, core.ErrScoreTooLow
	}

	code, err := randomToken(32)
	if err != nil {
		return nil, err
	}
	authReq.Status = core.RequestCodeIssued
	authReq.Code = code
	authReq.Address = address
	authReq.ScoreSnapshot = total
	authReq.HasNFT = hasNFT
	authReq.ExpiresAt = s.now().Add(s.cfg.CodeTTL)
	if err := putRecord(ctx, s.store, prefixCode+code, authReq, s.cfg.CodeTTL); err != nil {
		return nil, err
	}

	log.Info().
		Str("client_id", authReq.ClientID).
		Str("address", core.ShortAddress(address)).
		Int64("score", total).
		Bool("has_nft", hasNFT).
		Msg("Authorization code issued")

	return &CompleteResult{Code: code, RedirectURI: authReq.RedirectURI, State: authReq.ClientState}, nil
}

// Exchange redeems a code for a session token. Of concurrent exchanges of
// the same code exactly one succeeds.
func (s *AuthService) Exchange(ctx context.Context, req ExchangeRequest) (*TokenResult, error) {
	result, err := s.exchange(ctx, req)
	if err != nil {
		metrics.CodeExchanges.WithLabelValues(metrics.OutcomeFailure).Inc()
		return nil, err
	}
	metrics.CodeExchanges.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return result, nil
}

func (s *AuthService) exchange(ctx context.Context, req ExchangeRequest) (*TokenResult, error) {
	client, err := s.clients.Authenticate(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}
	if req.GrantType != GrantTypeAuthorizationCode {
		return nil, core.ErrUnsupportedGrantType
	}

	var authReq core.AuthorizationRequest
	if err := consumeRecord(ctx, s.store, prefixCode+req.Code, &authReq); err != nil {
		return nil, requestError(err)
	}
	if authReq.Status != core.RequestCodeIssued || authReq.Expired(s.now()) {
		return nil, core.ErrRequestExpiredOrConsumed
	}
	if authReq.ClientID != client.ID {
		return nil, fmt.Errorf("%w: code was issued to another client", core.ErrRequestExpiredOrConsumed)
	}
	if authReq.RedirectURI != req.RedirectURI {
		return nil, fmt.Errorf("%w: redirect uri mismatch", core.ErrRequestExpiredOrConsumed)
	}

	result, err := s.issueSession(client.ID, authReq.Address, authReq.ScoreSnapshot, authReq.HasNFT)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("client_id", client.ID).
		Str("address", core.ShortAddress(authReq.Address)).
		Str("jti", result.Session.ID).
		Msg("Authorization code exchanged")
	return result, nil
}

// Login signs a wallet in to the first-party app
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*TokenResult, error) {
	address, err := s.authenticateWallet(ctx, req.Address, req.Nonce, req.Message, req.Signature)
	if err != nil {
		return nil, err
	}

	hasNFT, total, err := s.snapshot(ctx, address)
	if err != nil {
		return nil, err
	}

	result, err := s.issueSession(s.cfg.Issuer, address, total, hasNFT)
	if err != nil {
		return nil, err
	}

	log.Info().Str("address", core.ShortAddress(address)).Msg("First-party login")
	return result, nil
}

// Verify validates a bearer token statelessly. The audience is informational
// and is not checked.
func (s *AuthService) Verify(_ context.Context, bearer string) (*core.Session, error) {
	return s.tokenizer.TokenToSession(bearer)
}

// VerifyNFT re-reads NFT possession for the holder of accessToken on behalf
// of an authenticated client
func (s *AuthService) VerifyNFT(ctx context.Context, accessToken, clientID, clientSecret string) (*NFTCheck, error) {
	if _, err := s.clients.Authenticate(ctx, clientID, clientSecret); err != nil {
		return nil, err
	}
	session, err := s.Verify(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	hasNFT, total, err := s.snapshot(ctx, session.Subject)
	if err != nil {
		return nil, err
	}
	return &NFTCheck{Wallet: session.Subject, HasNFT: hasNFT, Score: total}, nil
}

// authenticateWallet consumes the nonce, checks the message is bound to it
// and verifies the signature. A consumed nonce fails regardless of the
// signature.
func (s *AuthService) authenticateWallet(ctx context.Context, address, nonce, message, signature string) (string, error) {
	addr, err := core.NormalizeAddress(address)
	if err != nil {
		return "", err
	}

	if _, err := s.challenges.Consume(ctx, nonce); err != nil {
		return "", err
	}
	if !messageBindsChallenge(message, nonce, addr) {
		return "", core.ErrChallengeMismatch
	}

	result, err := s.verifier.Verify(ctx, addr, message, signature)
	if err != nil || !result.Valid {
		metrics.SignatureVerifications.WithLabelValues("none", metrics.OutcomeFailure).Inc()
		log.Info().Err(err).Str("address", core.ShortAddress(addr)).Msg("Signature rejected")
		return "", core.ErrSignatureInvalid
	}
	metrics.SignatureVerifications.WithLabelValues(string(result.Method), metrics.OutcomeSuccess).Inc()

	identity, created, err := s.identities.CreateIdentity(ctx, addr)
	if err != nil {
		return "", fmt.Errorf("failed to load identity: %w", err)
	}
	if created {
		log.Info().Str("address", core.ShortAddress(addr)).Str("method", string(result.Method)).Msg("Identity created")
	}
	if identity.Status != core.IdentityActive {
		return "", core.ErrIdentityInactive
	}
	return addr, nil
}

// snapshot reads NFT possession from the ledger and the total from the
// local score record
func (s *AuthService) snapshot(ctx context.Context, address string) (bool, int64, error) {
	hasNFT, err := s.ledger.HasIdentityNFT(ctx, address)
	if err != nil {
		return false, 0, ledgerError(err)
	}
	rec, err := s.scores.Score(ctx, address)
	if err != nil {
		return false, 0, err
	}
	return hasNFT, rec.TotalInt(), nil
}

func (s *AuthService) issueSession(audience, address string, score int64, hasNFT bool) (*TokenResult, error) {
	now := s.now()
	session := &core.Session{
		ID:        uuid.NewString(),
		Subject:   address,
		Issuer:    s.cfg.Issuer,
		Audience:  audience,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
		Score:     score,
		HasNFT:    hasNFT,
		ChainID:   s.cfg.ChainID,
	}

	token, err := s.tokenizer.SessionToToken(session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session token: %w", err)
	}
	metrics.SessionsIssued.Inc()

	return &TokenResult{
		AccessToken: token,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   int64(s.cfg.SessionTTL.Seconds()),
		Session:     session,
	}, nil
}

// messageBindsChallenge reports whether the signed message carries nonce
// (and, for structured messages, the signing address)
func messageBindsChallenge(message, nonce, address string) bool {
	parsed, err := eth.ParseMessage(message)
	if err != nil {
		return strings.Contains(message, nonce)
	}
	if parsed.Nonce != nonce {
		return false
	}
	return parsed.Address == "" || strings.EqualFold(parsed.Address, address)
}

func requestError(err error) error {
	if errors.Is(err, ports.ErrNotFound) || errors.Is(err, ports.ErrAlreadyConsumed) {
		return core.ErrRequestExpiredOrConsumed
	}
	return fmt.Errorf("failed to load authorization request: %w", err)
}

func ledgerError(err error) error {
	if errors.Is(err, core.ErrLedgerUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", core.ErrLedgerUnavailable, err)
}
