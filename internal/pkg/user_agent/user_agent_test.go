package user_agent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"shopsignals/internal/pkg/user_agent"
)

const (
	chromeWindows = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	edgeWindows   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.2210.91"
	safariMac     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15"
	safariIPhone  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1"
	safariIPad    = "Mozilla/5.0 (iPad; CPU OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1"
	chromeAndroid = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
	androidTablet = "Mozilla/5.0 (Linux; Android 13; SM-X700) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	firefoxLinux  = "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
	operaPresto   = "Opera/9.80 (Windows NT 6.1; WOW64) Presto/2.12.388 Version/12.18"
	operaChromium = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 OPR/106.0.0.0"
	googlebot     = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
	waPreview     = "WhatsApp/2.23.20.0 A"
)

func TestClassifyDevice(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		want      string
	}{
		{"iPad is a tablet", safariIPad, user_agent.DeviceTablet},
		{"iPhone is mobile", safariIPhone, user_agent.DeviceMobile},
		{"Android phone is mobile", chromeAndroid, user_agent.DeviceMobile},
		{"Android without mobile token is a tablet", androidTablet, user_agent.DeviceTablet},
		{"Windows desktop", chromeWindows, user_agent.DeviceDesktop},
		{"Mac desktop", safariMac, user_agent.DeviceDesktop},
		{"Linux desktop", firefoxLinux, user_agent.DeviceDesktop},
		{"empty defaults to desktop", "", user_agent.DeviceDesktop},
		{"garbage defaults to desktop", "totally-unknown-agent", user_agent.DeviceDesktop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, user_agent.ClassifyDevice(tt.userAgent))
		})
	}
}

func TestClassifyBrowser(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		want      string
	}{
		{"Edge wins over Chrome", edgeWindows, user_agent.BrowserEdge},
		{"Chrome", chromeWindows, user_agent.BrowserChrome},
		{"Chrome on Android", chromeAndroid, user_agent.BrowserChrome},
		{"Safari without Chrome", safariMac, user_agent.BrowserSafari},
		{"Mobile Safari", safariIPhone, user_agent.BrowserSafari},
		{"Firefox", firefoxLinux, user_agent.BrowserFirefox},
		{"Presto Opera", operaPresto, user_agent.BrowserOpera},
		{"Chromium Opera is caught by the Chrome rule", operaChromium, user_agent.BrowserChrome},
		{"unknown", "curl/8.4.0", user_agent.BrowserOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, user_agent.ClassifyBrowser(tt.userAgent))
		})
	}
}

func TestRuleOrderMatters(t *testing.T) {
	reversed := []user_agent.Rule{user_agent.BrowserRules[1], user_agent.BrowserRules[0]}
	assert.Equal(t, user_agent.BrowserChrome, user_agent.Classify(reversed, edgeWindows, user_agent.BrowserOther),
		"with Chrome checked first an Edge agent is misclassified")
	assert.Equal(t, user_agent.BrowserEdge, user_agent.Classify(user_agent.BrowserRules, edgeWindows, user_agent.BrowserOther))
}

func TestIsBot(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		want      bool
	}{
		{"googlebot", googlebot, true},
		{"whatsapp link preview", waPreview, true},
		{"curl", "curl/8.4.0", true},
		{"empty", "", true},
		{"headless chrome", "Mozilla/5.0 (X11; Linux x86_64) HeadlessChrome/120.0.0.0 Safari/537.36", true},
		{"real chrome", chromeWindows, false},
		{"real iphone", safariIPhone, false},
		{"real android", chromeAndroid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, user_agent.IsBot(tt.userAgent))
		})
	}
}

func TestDetectBotReturnsEntry(t *testing.T) {
	bot, ok := user_agent.DetectBot(googlebot)
	assert.True(t, ok)
	assert.Equal(t, "Googlebot", bot.Name)
	assert.Equal(t, "Search bot", bot.Category)
}
