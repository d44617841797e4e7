package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/layer-3/aeralogin/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AERALOGIN_JWT_SECRET", testSecret)

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr)
	assert.Equal(t, "aeralogin", cfg.Issuer)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5*time.Minute, cfg.NonceTTL)
	assert.Equal(t, 30*time.Second, cfg.RedirectTTL)
	assert.Equal(t, int64(8453), cfg.ChainID)
	assert.Equal(t, config.StorageMemory, cfg.StorageBackend)
	assert.Equal(t, uint(3), cfg.LedgerRetries)
	assert.NotEmpty(t, cfg.CapabilitySecret)
	assert.NotEqual(t, cfg.JWTSecret, cfg.CapabilitySecret)
	assert.Equal(t, "http://localhost:8080/api/community/redirect", cfg.RedirectURL())
	assert.Equal(t, 5*time.Minute, cfg.ReconcileInterval)
	assert.Equal(t, 100, cfg.ReconcileBatch)
	assert.Equal(t, 5*time.Minute, cfg.InviteTTL)
	assert.Equal(t, "https://api.telegram.org", cfg.TelegramAPIURL)
	assert.False(t, cfg.TelegramMinting())
	assert.False(t, cfg.DiscordMinting())
}

func TestLoadMintingCredentials(t *testing.T) {
	t.Setenv("AERALOGIN_JWT_SECRET", testSecret)
	t.Setenv("AERALOGIN_TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("AERALOGIN_TELEGRAM_CHAT_ID", "-100200300")
	t.Setenv("AERALOGIN_DISCORD_BOT_TOKEN", "discord-token")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.True(t, cfg.TelegramMinting())
	assert.False(t, cfg.DiscordMinting())
}

func TestLoadRejectsZeroReconcileInterval(t *testing.T) {
	t.Setenv("AERALOGIN_JWT_SECRET", testSecret)
	t.Setenv("AERALOGIN_RECONCILE_INTERVAL", "0s")

	_, err := config.Load("")
	assert.Error(t, err)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aeralogin.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
jwt_secret: `+testSecret+`
storage_backend: redis
nonce_ttl: 2m
telegram_invite: https://t.me/+abc
`), 0o600))

	t.Setenv("AERALOGIN_HTTP_ADDR", "127.0.0.1:9090")
	t.Setenv("AERALOGIN_NONCE_TTL", "90s")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.HTTPAddr)
	assert.Equal(t, config.StorageRedis, cfg.StorageBackend)
	assert.Equal(t, 90*time.Second, cfg.NonceTTL)
	assert.Equal(t, map[string]string{"telegram": "https://t.me/+abc"}, cfg.Invites())
}

func TestLoadRejectsShortSecret(t *testing.T) {
	t.Setenv("AERALOGIN_JWT_SECRET", "short")

	_, err := config.Load("")
	assert.Error(t, err)
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := &config.Config{JWTSecret: testSecret, StorageBackend: "etcd", RepositoryBackend: config.RepositoryMemory}
	assert.Error(t, cfg.Validate())
}
