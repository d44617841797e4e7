package service

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/aeralogin/adapters/community"
	"github.com/layer-3/aeralogin/adapters/ledger"
	"github.com/layer-3/aeralogin/adapters/repository"
	"github.com/layer-3/aeralogin/adapters/store"
	"github.com/layer-3/aeralogin/adapters/tokenizer"
	"github.com/layer-3/aeralogin/core"
	"github.com/layer-3/aeralogin/internal/eth"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer      = "aeralogin-test"
	testRedirectURI = "https://app.example.com/callback"
	testInvite      = "https://t.me/+aeraCommunity"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	scores []core.ScoreChangedEvent
	err    error
}

func (p *recordingPublisher) PublishScoreChanged(_ context.Context, event core.ScoreChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scores = append(p.scores, event)
	return p.err
}

func (p *recordingPublisher) ScoreEvents() []core.ScoreChangedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]core.ScoreChangedEvent(nil), p.scores...)
}

type harness struct {
	clock      *fakeClock
	store      *store.MemoryStore
	repo       *repository.MemoryRepository
	ledger     *ledger.MemoryLedger
	events     *recordingPublisher
	tokenizer  *tokenizer.JWTTokenizer
	challenges *ChallengeService
	clients    *ClientService
	scores     *ScoreService
	auth       *AuthService
	handoff    *HandoffService
	sync       *SyncWorker
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		clock:  &fakeClock{t: time.Now().UTC()},
		store:  store.NewMemoryStore(),
		repo:   repository.NewMemoryRepository(),
		ledger: ledger.NewMemoryLedger(),
		events: &recordingPublisher{},
	}
	t.Cleanup(func() { _ = h.store.Close() })

	h.tokenizer = tokenizer.NewJWTTokenizer(
		[]byte("session-secret-0123456789abcdef0123"),
		[]byte("capability-secret-0123456789abcdef"),
		testIssuer,
		tokenizer.WithClock(h.clock.Now),
	)

	h.challenges = NewChallengeService(h.store, 5*time.Minute)
	h.challenges.now = h.clock.Now
	h.clients = NewClientService(h.repo)
	h.scores = NewScoreService(h.repo, h.events)
	h.scores.now = h.clock.Now

	h.auth = NewAuthService(
		AuthConfig{
			Issuer:     testIssuer,
			ChainID:    8453,
			SessionTTL: time.Hour,
			RequestTTL: 10 * time.Minute,
			CodeTTL:    10 * time.Minute,
		},
		h.challenges, h.clients, h.scores,
		eth.NewVerifier(nil, time.Second),
		h.repo, h.ledger, h.tokenizer, h.store,
	)
	h.auth.now = h.clock.Now

	h.handoff = NewHandoffService(
		HandoffConfig{
			RedirectURL:   "https://login.example.com/api/community/redirect",
			RedirectTTL:   30 * time.Second,
			CapabilityTTL: 2 * time.Minute,
			Policy:        core.DefaultCapabilityPolicy(),
		},
		h.scores, h.repo, h.ledger,
		community.NewStaticCommunity(map[string]string{"telegram": testInvite}),
		h.tokenizer, h.store,
	)
	h.handoff.now = h.clock.Now

	h.sync = NewSyncWorker(h.scores, h.ledger)
	return h
}

type wallet struct {
	key     *ecdsa.PrivateKey
	address string
}

func newWallet(t *testing.T) wallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return wallet{key: key, address: strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())}
}

func (w wallet) sign(t *testing.T, message string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), w.key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}

func signInMessage(nonce string) string {
	return fmt.Sprintf("Sign in to Aera\nNonce: %s", nonce)
}

func (h *harness) registerClient(t *testing.T, minScore int64, requireNFT bool) (*core.Client, string) {
	t.Helper()
	client, secret, err := h.clients.Register(context.Background(), RegisterClientRequest{
		Name:         "Test App",
		RedirectURIs: []string{testRedirectURI},
		MinScore:     minScore,
		RequireNFT:   requireNFT,
	})
	require.NoError(t, err)
	return client, secret
}

// completeFor runs authorize and complete for w and returns the code
func (h *harness) completeFor(t *testing.T, client *core.Client, w wallet) (*CompleteResult, error) {
	t.Helper()
	ctx := context.Background()

	authz, err := h.auth.Authorize(ctx, AuthorizeRequest{
		ClientID:     client.ID,
		RedirectURI:  testRedirectURI,
		ResponseType: ResponseTypeCode,
		State:        "xyz",
	})
	require.NoError(t, err)

	challenge, err := h.auth.IssueNonce(ctx)
	require.NoError(t, err)

	message := signInMessage(challenge.Nonce)
	return h.auth.Complete(ctx, CompleteRequest{
		State:     authz.Request.StateID,
		Address:   w.address,
		Nonce:     challenge.Nonce,
		Message:   message,
		Signature: w.sign(t, message),
	})
}
