package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// StorageType selects the single-use record store
type StorageType string

const (
	StorageMemory StorageType = "memory"
	StorageRedis  StorageType = "redis"
)

// RepositoryType selects where identities, scores and clients live
type RepositoryType string

const (
	RepositoryMemory RepositoryType = "memory"
	RepositoryMongo  RepositoryType = "mongodb"
)

// Config holds all configuration for the server
type Config struct {
	HTTPAddr  string `mapstructure:"http_addr"`
	PublicURL string `mapstructure:"public_url"`
	LogLevel  string `mapstructure:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty"`

	Issuer           string        `mapstructure:"issuer"`
	JWTSecret        string        `mapstructure:"jwt_secret"`
	CapabilitySecret string        `mapstructure:"capability_secret"`
	SessionTTL       time.Duration `mapstructure:"session_ttl"`
	NonceTTL         time.Duration `mapstructure:"nonce_ttl"`
	RequestTTL       time.Duration `mapstructure:"request_ttl"`
	CodeTTL          time.Duration `mapstructure:"code_ttl"`
	RedirectTTL      time.Duration `mapstructure:"redirect_ttl"`
	CapabilityTTL    time.Duration `mapstructure:"capability_ttl"`
	AdminKey         string        `mapstructure:"admin_key"`
	BotKey           string        `mapstructure:"bot_key"`

	ChainID            int64         `mapstructure:"chain_id"`
	RPCURL             string        `mapstructure:"rpc_url"`
	RPCTimeout         time.Duration `mapstructure:"rpc_timeout"`
	NFTContract        string        `mapstructure:"nft_contract"`
	RegistryContract   string        `mapstructure:"registry_contract"`
	OperatorKey        string        `mapstructure:"operator_key"`
	LedgerRetries      uint          `mapstructure:"ledger_retries"`
	LedgerRetryBackoff time.Duration `mapstructure:"ledger_retry_backoff"`

	StorageBackend    StorageType    `mapstructure:"storage_backend"`
	RedisURL          string         `mapstructure:"redis_url"`
	RepositoryBackend RepositoryType `mapstructure:"repository_backend"`
	MongoURI          string         `mapstructure:"mongo_uri"`
	MongoDBName       string         `mapstructure:"mongo_db_name"`

	TelegramInvite   string        `mapstructure:"telegram_invite"`
	TelegramAPIURL   string        `mapstructure:"telegram_api_url"`
	TelegramBotToken string        `mapstructure:"telegram_bot_token"`
	TelegramChatID   string        `mapstructure:"telegram_chat_id"`
	DiscordInvite    string        `mapstructure:"discord_invite"`
	DiscordAPIURL    string        `mapstructure:"discord_api_url"`
	DiscordBotToken  string        `mapstructure:"discord_bot_token"`
	DiscordChannelID string        `mapstructure:"discord_channel_id"`
	InviteTTL        time.Duration `mapstructure:"invite_ttl"`

	WriteMinScore     int64         `mapstructure:"write_min_score"`
	SyncWorker        bool          `mapstructure:"sync_worker"`
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
	ReconcileBatch    int           `mapstructure:"reconcile_batch"`
}

// Load reads configuration from file, AERALOGIN_* environment variables and
// defaults. An empty path searches the default locations for aeralogin.yaml.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("aeralogin")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/aeralogin/")
		v.AddConfigPath("$HOME/.aeralogin")
	}

	v.SetEnvPrefix("AERALOGIN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("http_addr", "0.0.0.0:8080")
	v.SetDefault("public_url", "http://localhost:8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)

	v.SetDefault("issuer", "aeralogin")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("capability_secret", "")
	v.SetDefault("session_ttl", "24h")
	v.SetDefault("nonce_ttl", "5m")
	v.SetDefault("request_ttl", "10m")
	v.SetDefault("code_ttl", "10m")
	v.SetDefault("redirect_ttl", "30s")
	v.SetDefault("capability_ttl", "2m")
	v.SetDefault("admin_key", "")
	v.SetDefault("bot_key", "")

	v.SetDefault("chain_id", 8453)
	v.SetDefault("rpc_url", "https://mainnet.base.org")
	v.SetDefault("rpc_timeout", "5s")
	v.SetDefault("nft_contract", "")
	v.SetDefault("registry_contract", "")
	v.SetDefault("operator_key", "")
	v.SetDefault("ledger_retries", 3)
	v.SetDefault("ledger_retry_backoff", "200ms")

	v.SetDefault("storage_backend", string(StorageMemory))
	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("repository_backend", string(RepositoryMemory))
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_db_name", "aeralogin")

	v.SetDefault("telegram_invite", "")
	v.SetDefault("telegram_api_url", "https://api.telegram.org")
	v.SetDefault("telegram_bot_token", "")
	v.SetDefault("telegram_chat_id", "")
	v.SetDefault("discord_invite", "")
	v.SetDefault("discord_api_url", "https://discord.com/api/v10")
	v.SetDefault("discord_bot_token", "")
	v.SetDefault("discord_channel_id", "")
	v.SetDefault("invite_ttl", "5m")

	v.SetDefault("write_min_score", 50)
	v.SetDefault("sync_worker", true)
	v.SetDefault("reconcile_interval", "5m")
	v.SetDefault("reconcile_batch", 100)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that have no usable default
func (c *Config) Validate() error {
	if len(c.JWTSecret) < 32 {
		return errors.New("jwt_secret must be at least 32 characters")
	}
	if _, err := url.ParseRequestURI(c.PublicURL); err != nil {
		return fmt.Errorf("invalid public_url: %w", err)
	}
	if c.CapabilitySecret == "" {
		c.CapabilitySecret = c.JWTSecret + ":capability"
	}
	switch c.StorageBackend {
	case StorageMemory, StorageRedis:
	default:
		return fmt.Errorf("unknown storage_backend %q", c.StorageBackend)
	}
	if c.ReconcileInterval <= 0 {
		return errors.New("reconcile_interval must be positive")
	}
	switch c.RepositoryBackend {
	case RepositoryMemory, RepositoryMongo:
	default:
		return fmt.Errorf("unknown repository_backend %q", c.RepositoryBackend)
	}
	return nil
}

// TelegramMinting reports whether single-use Telegram links can be created
func (c *Config) TelegramMinting() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

// DiscordMinting reports whether single-use Discord invites can be created
func (c *Config) DiscordMinting() bool {
	return c.DiscordBotToken != "" && c.DiscordChannelID != ""
}

// Invites returns the configured static community invite links by platform
func (c *Config) Invites() map[string]string {
	invites := map[string]string{}
	if c.TelegramInvite != "" {
		invites["telegram"] = c.TelegramInvite
	}
	if c.DiscordInvite != "" {
		invites["discord"] = c.DiscordInvite
	}
	return invites
}

// RedirectURL is the public address of the one-time redirect endpoint
func (c *Config) RedirectURL() string {
	return strings.TrimRight(c.PublicURL, "/") + "/api/community/redirect"
}
