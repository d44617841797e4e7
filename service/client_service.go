package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/layer-3/aeralogin/core"
	"github.com/layer-3/aeralogin/ports"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const clientIDPrefix = "aera_"

// RegisterClientRequest describes a new third-party application
type RegisterClientRequest struct {
	Name         string
	RedirectURIs []string
	MinScore     int64
	RequireNFT   bool
}

// ClientService manages registered OAuth clients
type ClientService struct {
	repo ports.ClientRepository
}

// NewClientService creates a client service
func NewClientService(repo ports.ClientRepository) *ClientService {
	return &ClientService{repo: repo}
}

// Register stores a new client and returns it with its plaintext secret.
// The secret is not recoverable afterwards.
func (s *ClientService) Register(ctx context.Context, req RegisterClientRequest) (*core.Client, string, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, "", fmt.Errorf("%w: client name is required", core.ErrInvalidClientMetadata)
	}
	if len(req.RedirectURIs) == 0 {
		return nil, "", fmt.Errorf("%w: at least one redirect uri is required", core.ErrInvalidClientMetadata)
	}
	for _, uri := range req.RedirectURIs {
		u, err := url.Parse(uri)
		if err != nil || u.Scheme == "" || u.Host == "" || u.Fragment != "" {
			return nil, "", fmt.Errorf("%w: invalid redirect uri %q", core.ErrInvalidClientMetadata, uri)
		}
	}
	if req.MinScore < 0 {
		return nil, "", fmt.Errorf("%w: min score must not be negative", core.ErrInvalidClientMetadata)
	}

	id, err := randomToken(8)
	if err != nil {
		return nil, "", err
	}
	secret, err := randomToken(32)
	if err != nil {
		return nil, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash client secret: %w", err)
	}

	client := &core.Client{
		ID:           clientIDPrefix + id,
		Name:         name,
		SecretHash:   string(hash),
		RedirectURIs: req.RedirectURIs,
		MinScore:     req.MinScore,
		RequireNFT:   req.RequireNFT,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateClient(ctx, client); err != nil {
		return nil, "", fmt.Errorf("failed to store client: %w", err)
	}

	log.Info().Str("client_id", client.ID).Str("client_name", client.Name).Msg("Client registered")
	return client, secret, nil
}

// Get returns an active client
func (s *ClientService) Get(ctx context.Context, clientID string) (*core.Client, error) {
	client, err := s.repo.GetClient(ctx, clientID)
	if errors.Is(err, ports.ErrNotFound) {
		return nil, core.ErrUnknownClient
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load client: %w", err)
	}
	if !client.Active {
		return nil, core.ErrUnknownClient
	}
	return client, nil
}

// Authenticate checks client credentials
func (s *ClientService) Authenticate(ctx context.Context, clientID, secret string) (*core.Client, error) {
	client, err := s.Get(ctx, clientID)
	if errors.Is(err, core.ErrUnknownClient) {
		return nil, core.ErrInvalidClientCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(client.SecretHash), []byte(secret)) != nil {
		return nil, core.ErrInvalidClientCredentials
	}
	return client, nil
}
