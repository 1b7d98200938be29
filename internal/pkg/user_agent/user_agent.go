// Package user_agent classifies user agent strings into the device classes and
// browser families used by storefront reports, and flags automated clients.
package user_agent

import (
	"strings"

	"go.elara.ws/pcre"
)

// Device classes.
const (
	DeviceMobile  = "Mobile"
	DeviceTablet  = "Tablet"
	DeviceDesktop = "Desktop"
)

// Browser families.
const (
	BrowserEdge    = "Edge"
	BrowserChrome  = "Chrome"
	BrowserSafari  = "Safari"
	BrowserFirefox = "Firefox"
	BrowserOpera   = "Opera"
	BrowserOther   = "Outro"
)

// Rule pairs a predicate with the label it assigns. Rules are evaluated in
// slice order and the first match wins.
type Rule struct {
	Label string
	Match func(userAgent string) bool
}

// Classify returns the label of the first matching rule, or fallback.
func Classify(rules []Rule, userAgent, fallback string) string {
	for _, r := range rules {
		if r.Match(userAgent) {
			return r.Label
		}
	}
	return fallback
}

// DeviceRules checks tablets first: tablet user agents frequently carry the
// generic mobile tokens as well.
var DeviceRules = []Rule{
	{Label: DeviceTablet, Match: pattern(`(?i)(tablet|ipad|playbook|silk)|(android(?!.*mobi))`)},
	{Label: DeviceMobile, Match: pattern(`(?i)mobile|iP(hone|od)|android|blackberry|iemobile|kindle|netfront|(hpw|web)os|fennec|minimo|opera m(obi|ini)|windows phone`)},
}

// BrowserRules: Edge before Chrome (Edge also says "Chrome"), Safari only when
// "Chrome" is absent (Chrome also says "Safari").
var BrowserRules = []Rule{
	{Label: BrowserEdge, Match: contains("Edg")},
	{Label: BrowserChrome, Match: contains("Chrome")},
	{Label: BrowserSafari, Match: func(ua string) bool {
		return strings.Contains(ua, "Safari") && !strings.Contains(ua, "Chrome")
	}},
	{Label: BrowserFirefox, Match: contains("Firefox")},
	{Label: BrowserOpera, Match: func(ua string) bool {
		return strings.Contains(ua, "Opera") || strings.Contains(ua, "OPR")
	}},
}

// ClassifyDevice returns Mobile, Tablet or Desktop. Unknown agents are Desktop.
func ClassifyDevice(userAgent string) string {
	return Classify(DeviceRules, userAgent, DeviceDesktop)
}

// ClassifyBrowser returns the browser family, or Outro when none matches.
func ClassifyBrowser(userAgent string) string {
	return Classify(BrowserRules, userAgent, BrowserOther)
}

func contains(token string) func(string) bool {
	return func(ua string) bool { return strings.Contains(ua, token) }
}

// pattern compiles expr once. The expressions are package constants, so a
// compile failure is a programming error.
func pattern(expr string) func(string) bool {
	re, err := pcre.Compile(expr)
	if err != nil {
		panic("user_agent: invalid pattern " + expr + ": " + err.Error())
	}
	return re.MatchString
}
