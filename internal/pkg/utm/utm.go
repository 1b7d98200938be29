// Package utm reads campaign attribution parameters from landing URLs.
package utm

import (
	"net/url"
	"strings"
)

// Query parameter names.
const (
	ParamSource   = "utm_source"
	ParamMedium   = "utm_medium"
	ParamCampaign = "utm_campaign"
)

// Attribution holds the campaign parameters present on a URL. Missing
// parameters are nil, never empty strings.
type Attribution struct {
	Source   *string `json:"source,omitempty"`
	Medium   *string `json:"medium,omitempty"`
	Campaign *string `json:"campaign,omitempty"`
}

// Empty reports whether no parameter was present.
func (a Attribution) Empty() bool {
	return a.Source == nil && a.Medium == nil && a.Campaign == nil
}

// Extract parses rawURL and returns its UTM parameters. Relative URLs and
// bare query strings ("?utm_source=x") are accepted.
func Extract(rawURL string) Attribution {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return Attribution{}
	}

	var query url.Values
	if u, err := url.Parse(rawURL); err == nil {
		query = u.Query()
	} else if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		query, _ = url.ParseQuery(rawURL[i+1:])
	}
	if query == nil {
		return Attribution{}
	}

	return Attribution{
		Source:   param(query, ParamSource),
		Medium:   param(query, ParamMedium),
		Campaign: param(query, ParamCampaign),
	}
}

func param(q url.Values, key string) *string {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil
	}
	return &v
}
