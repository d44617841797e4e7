package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupPlatform(t *testing.T) {
	p, err := LookupPlatform(" Telegram ")
	require.NoError(t, err)
	assert.Equal(t, "org.telegram.messenger", p.AndroidPackage)

	assert.Equal(t, "market://details?id=org.telegram.messenger", p.StoreURL())

	_, err = LookupPlatform("myspace")
	assert.ErrorIs(t, err, ErrUnknownPlatform)
}

func TestUniversalLink(t *testing.T) {
	telegram, _ := LookupPlatform("telegram")
	discord, _ := LookupPlatform("discord")

	assert.Equal(t, "https://telegram.me/+AbCdEf", telegram.UniversalLink("https://t.me/+AbCdEf"))
	assert.Equal(t, "https://example.com/x", telegram.UniversalLink("https://example.com/x"))
	assert.Equal(t, "https://discord.gg/abc", discord.UniversalLink("https://discord.gg/abc"))
}

func TestStoreURL(t *testing.T) {
	discord, _ := LookupPlatform("discord")
	assert.Equal(t, "market://details?id=com.discord", discord.StoreURL())
	assert.Empty(t, Platform{Name: "web"}.StoreURL())
}
