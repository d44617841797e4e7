package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/big"
	nethttp "net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/aeralogin/adapters/community"
	"github.com/layer-3/aeralogin/adapters/events"
	"github.com/layer-3/aeralogin/adapters/ledger"
	"github.com/layer-3/aeralogin/adapters/repository"
	"github.com/layer-3/aeralogin/adapters/store"
	"github.com/layer-3/aeralogin/adapters/tokenizer"
	"github.com/layer-3/aeralogin/config"
	"github.com/layer-3/aeralogin/core"
	"github.com/layer-3/aeralogin/internal/eth"
	"github.com/layer-3/aeralogin/internal/logging"
	"github.com/layer-3/aeralogin/internal/metrics"
	"github.com/layer-3/aeralogin/ports"
	"github.com/layer-3/aeralogin/service"
	"github.com/layer-3/aeralogin/transport/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const syncConsumerGroup = "aeralogin-ledger-sync"

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("Server stopped with error")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	var redisClient *redis.Client
	if cfg.StorageBackend == config.StorageRedis {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
	}

	// Single-use records
	var recordStore ports.Store
	if redisClient != nil {
		recordStore = store.NewRedisStore(redisClient)
	} else {
		memStore := store.NewMemoryStore()
		closers = append(closers, func() { _ = memStore.Close() })
		recordStore = memStore
	}

	// Identities, scores and clients
	var identities ports.IdentityRepository
	var clientRepo ports.ClientRepository
	switch cfg.RepositoryBackend {
	case config.RepositoryMongo:
		repo, err := repository.NewMongoRepository(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return err
		}
		closers = append(closers, func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = repo.Close(shutdownCtx)
		})
		identities, clientRepo = repo, repo
	default:
		repo := repository.NewMemoryRepository()
		identities, clientRepo = repo, repo
	}

	// Chain access
	var caller ports.ContractCaller
	var baseLedger ports.Ledger
	writable := true
	if cfg.NFTContract != "" && cfg.RegistryContract != "" {
		client, err := ethclient.DialContext(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("failed to dial rpc: %w", err)
		}
		closers = append(closers, client.Close)
		caller = client

		operator, err := operatorOpts(cfg)
		if err != nil {
			return err
		}
		writable = operator != nil
		ethLedger, err := ledger.NewEthLedger(client, common.HexToAddress(cfg.NFTContract), common.HexToAddress(cfg.RegistryContract), operator, cfg.RPCTimeout)
		if err != nil {
			return err
		}
		baseLedger = ethLedger
	} else {
		log.Warn().Msg("No ledger contracts configured, using in-memory ledger")
		baseLedger = ledger.NewMemoryLedger()
	}
	chainLedger := ledger.NewRetryingLedger(baseLedger, cfg.LedgerRetries, cfg.LedgerRetryBackoff)

	// Events
	wmLogger := logging.NewWatermillLogger()
	publisher, subscriber, err := pubSub(redisClient, wmLogger)
	if err != nil {
		return err
	}
	closers = append(closers, func() {
		_ = publisher.Close()
		_ = subscriber.Close()
	})
	eventPub := events.NewWatermillPublisher(publisher)

	tok := tokenizer.NewJWTTokenizer([]byte(cfg.JWTSecret), []byte(cfg.CapabilitySecret), cfg.Issuer)
	verifier := eth.NewVerifier(caller, cfg.RPCTimeout)

	policy := core.DefaultCapabilityPolicy()
	policy.WriteMinScore = cfg.WriteMinScore

	challenges := service.NewChallengeService(recordStore, cfg.NonceTTL)
	clients := service.NewClientService(clientRepo)
	scores := service.NewScoreService(identities, eventPub)
	authService := service.NewAuthService(
		service.AuthConfig{
			Issuer:     cfg.Issuer,
			ChainID:    cfg.ChainID,
			SessionTTL: cfg.SessionTTL,
			RequestTTL: cfg.RequestTTL,
			CodeTTL:    cfg.CodeTTL,
		},
		challenges, clients, scores, verifier, identities, chainLedger, tok, recordStore,
	)
	handoff := service.NewHandoffService(
		service.HandoffConfig{
			RedirectURL:   cfg.RedirectURL(),
			RedirectTTL:   cfg.RedirectTTL,
			CapabilityTTL: cfg.CapabilityTTL,
			Policy:        policy,
		},
		scores, identities, chainLedger,
		communities(cfg),
		tok, recordStore,
	)

	var worker *service.SyncWorker
	if cfg.SyncWorker && writable {
		worker = service.NewSyncWorker(scores, chainLedger)
		go func() {
			err := events.ConsumeScoreChanged(ctx, subscriber, worker.HandleScoreChanged)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("Ledger sync worker stopped")
			}
		}()
	}

	reconciler := service.NewReconciler(scores, identities, worker, cfg.ReconcileBatch)
	go func() {
		err := reconciler.Run(ctx, cfg.ReconcileInterval)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Reconciler stopped")
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(reg)

	gin.SetMode(gin.ReleaseMode)
	router := http.SetupRouter(
		http.Services{Auth: authService, Handoff: handoff, Scores: scores, Clients: clients},
		http.RouterConfig{AdminKey: cfg.AdminKey, BotKey: cfg.BotKey, Gatherer: reg},
	)

	server := &nethttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("storage", string(cfg.StorageBackend)).Str("repository", string(cfg.RepositoryBackend)).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// operatorOpts builds the transactor for score writes. Without a key the
// ledger is read-only and the sync worker leaves records pending.
func operatorOpts(cfg *config.Config) (*bind.TransactOpts, error) {
	if cfg.OperatorKey == "" {
		log.Warn().Msg("No operator key configured, ledger is read-only")
		return nil, nil
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.OperatorKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid operator key: %w", err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(cfg.ChainID))
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	log.Info().Str("operator", opts.From.Hex()).Msg("Ledger operator configured")
	return opts, nil
}

// communities mints single-use invites where bot credentials are configured
// and falls back to the static links otherwise
func communities(cfg *config.Config) ports.Community {
	static := community.NewStaticCommunity(cfg.Invites())
	platforms := community.Platforms{"telegram": static, "discord": static}

	if cfg.TelegramMinting() {
		platforms["telegram"] = community.NewTelegramCommunity(community.TelegramConfig{
			APIURL:   cfg.TelegramAPIURL,
			BotToken: cfg.TelegramBotToken,
			ChatID:   cfg.TelegramChatID,
			LinkTTL:  cfg.InviteTTL,
			Timeout:  cfg.RPCTimeout,
		})
	} else if cfg.TelegramInvite != "" {
		log.Warn().Msg("Telegram uses a static invite link, only one grant can be pending at a time")
	}

	if cfg.DiscordMinting() {
		platforms["discord"] = community.NewDiscordCommunity(community.DiscordConfig{
			APIURL:    cfg.DiscordAPIURL,
			BotToken:  cfg.DiscordBotToken,
			ChannelID: cfg.DiscordChannelID,
			LinkTTL:   cfg.InviteTTL,
			Timeout:   cfg.RPCTimeout,
		})
	} else if cfg.DiscordInvite != "" {
		log.Warn().Msg("Discord uses a static invite link, only one grant can be pending at a time")
	}
	return platforms
}

// pubSub uses redis streams when redis is configured and an in-process
// channel otherwise
func pubSub(client *redis.Client, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	if client == nil {
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger)
		return ch, ch, nil
	}

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{Client: client},
		logger,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create redis publisher: %w", err)
	}
	subscriber, err := redisstream.NewSubscriber(
		redisstream.SubscriberConfig{Client: client, ConsumerGroup: syncConsumerGroup},
		logger,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create redis subscriber: %w", err)
	}
	return publisher, subscriber, nil
}
