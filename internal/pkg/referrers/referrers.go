// Package referrers turns raw referrer URLs into hostnames, traffic-source
// labels and display names.
package referrers

import (
	"net/url"
	"strings"
)

// Traffic source labels.
const (
	SourceDirect    = "Direto"
	SourceInstagram = "Instagram"
	SourceFacebook  = "Facebook"
	SourceWhatsApp  = "WhatsApp"
	SourceGoogle    = "Google"
	SourceBing      = "Bing"
	SourceYouTube   = "YouTube"
	SourceTikTok    = "TikTok"
	SourceOther     = "Outro"
)

// SourceRule assigns Label when the lowercased referrer domain contains any of
// the substrings.
type SourceRule struct {
	Label      string
	Substrings []string
}

func (r SourceRule) matches(domain string) bool {
	for _, s := range r.Substrings {
		if strings.Contains(domain, s) {
			return true
		}
	}
	return false
}

// SourceRules are evaluated in order; the first match wins.
var SourceRules = []SourceRule{
	{Label: SourceInstagram, Substrings: []string{"instagram"}},
	{Label: SourceFacebook, Substrings: []string{"facebook", "fb.com", "fb.me"}},
	{Label: SourceWhatsApp, Substrings: []string{"whatsapp", "wa.me"}},
	{Label: SourceGoogle, Substrings: []string{"google"}},
	{Label: SourceBing, Substrings: []string{"bing"}},
	{Label: SourceYouTube, Substrings: []string{"youtube", "youtu.be"}},
	{Label: SourceTikTok, Substrings: []string{"tiktok"}},
}

// AllSources lists every label ClassifyTrafficSource can return.
func AllSources() []string {
	out := []string{SourceDirect}
	for _, r := range SourceRules {
		out = append(out, r.Label)
	}
	return append(out, SourceOther)
}

// ExtractDomain returns the host of a referrer URL. Values that do not parse
// as an absolute URL are returned unchanged; an empty referrer is absent.
func ExtractDomain(referrer string) (string, bool) {
	referrer = strings.TrimSpace(referrer)
	if referrer == "" {
		return "", false
	}
	u, err := url.Parse(referrer)
	if err != nil || u.Host == "" {
		return referrer, true
	}
	return u.Hostname(), true
}

// ClassifyTrafficSource labels a referrer domain. No domain means direct traffic.
func ClassifyTrafficSource(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return SourceDirect
	}
	for _, r := range SourceRules {
		if r.matches(domain) {
			return r.Label
		}
	}
	return SourceOther
}

// TrafficSource labels a referrer as captured at emission or as stored on an
// event. Both paths go through this function so they always agree.
func TrafficSource(referrer string) string {
	domain, ok := ExtractDomain(referrer)
	if !ok {
		return SourceDirect
	}
	return ClassifyTrafficSource(domain)
}
