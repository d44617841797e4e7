package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyDevice(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		hint      string
		want      DeviceClass
	}{
		{
			name:      "android metamask",
			userAgent: "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 Chrome/120 Mobile MetaMaskMobile",
			want:      DeviceAndroidEmbedded,
		},
		{
			name:      "iphone trust wallet",
			userAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Trust/4.0",
			want:      DeviceIOSEmbedded,
		},
		{
			name:      "android chrome",
			userAgent: "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 Chrome/120 Mobile Safari/537.36",
			want:      DeviceDesktopOrOther,
		},
		{
			name:      "desktop firefox",
			userAgent: "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0",
			want:      DeviceDesktopOrOther,
		},
		{
			name: "empty",
			want: DeviceDesktopOrOther,
		},
		{
			name:      "hint overrides user agent",
			userAgent: "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0",
			hint:      "ios_embedded",
			want:      DeviceIOSEmbedded,
		},
		{
			name:      "unknown hint falls back to user agent",
			userAgent: "Mozilla/5.0 (Linux; Android 13) CoinbaseWallet",
			hint:      "tablet",
			want:      DeviceAndroidEmbedded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyDevice(tt.userAgent, tt.hint))
		})
	}
}
