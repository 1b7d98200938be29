package referrers

import "strings"

// Common referrer hostnames mapped to friendly display names
var knownReferrers = map[string]string{
	// Search engines
	"google.com":     "Google",
	"google.com.br":  "Google",
	"google.com.pt":  "Google",
	"bing.com":       "Bing",
	"duckduckgo.com": "DuckDuckGo",
	"yahoo.com":      "Yahoo",

	// Social media
	"facebook.com":    "Facebook",
	"l.facebook.com":  "Facebook",
	"lm.facebook.com": "Facebook",
	"m.facebook.com":  "Facebook",
	"instagram.com":   "Instagram",
	"l.instagram.com": "Instagram",
	"tiktok.com":      "TikTok",
	"youtube.com":     "YouTube",
	"youtu.be":        "YouTube",
	"pinterest.com":   "Pinterest",
	"x.com":           "X/Twitter",
	"t.co":            "X/Twitter",
	"threads.net":     "Threads",
	"linkedin.com":    "LinkedIn",

	// Messaging
	"whatsapp.com":     "WhatsApp",
	"web.whatsapp.com": "WhatsApp",
	"wa.me":            "WhatsApp",
	"t.me":             "Telegram",

	// Marketplaces and shopping comparison
	"mercadolivre.com.br": "Mercado Livre",
	"shopee.com.br":       "Shopee",
	"buscape.com.br":      "Buscapé",
	"zoom.com.br":         "Zoom",

	// Email providers (for newsletter clicks)
	"mail.google.com":  "Gmail",
	"outlook.live.com": "Outlook",

	// Link shorteners
	"bit.ly":      "Bitly",
	"linktr.ee":   "Linktree",
	"tinyurl.com": "TinyURL",
}

// FriendlyName returns a human-friendly name for a referrer hostname.
// Unknown hostnames lose a leading "www." and get their first letter capitalized.
func FriendlyName(hostname string) string {
	hostname = strings.ToLower(strings.TrimSpace(hostname))
	if hostname == "" {
		return SourceDirect
	}

	if name, ok := knownReferrers[hostname]; ok {
		return name
	}

	if strings.HasPrefix(hostname, "www.") {
		withoutWWW := hostname[4:]
		if name, ok := knownReferrers[withoutWWW]; ok {
			return name
		}
		hostname = withoutWWW
	}

	// Subdomain of a known referrer
	for domain, name := range knownReferrers {
		if strings.HasSuffix(hostname, "."+domain) {
			return name
		}
	}

	return capitalizeFirst(hostname)
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
