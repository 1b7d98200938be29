package analytics

import (
	"strings"

	"github.com/pariz/gountries"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"shopsignals/internal/events"
)

// UnknownCountry labels sessions whose country could not be resolved.
const UnknownCountry = "Desconhecido"

var countryQuery = gountries.New()

type CountryCount struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Sessions int64  `json:"sessions"`
}

// CountryBreakdown counts sessions per ISO country code, with display names.
func CountryBreakdown(evs []events.Event, limit int) []CountryCount {
	upper := cases.Upper(language.BrazilianPortuguese)

	top := topSessionsBy(evs, limit, func(e *events.Event) string {
		code := strings.TrimSpace(events.Deref(e.Country))
		if code == "" {
			return UnknownCountry
		}
		return upper.String(code)
	})

	result := make([]CountryCount, len(top))
	for i, item := range top {
		result[i] = CountryCount{Code: item.Name, Name: CountryName(item.Name), Sessions: item.Count}
	}
	return result
}

// CountryName returns the common name for an alpha-2 or alpha-3 code, or the
// code itself when it is not known.
func CountryName(code string) string {
	if code == UnknownCountry {
		return code
	}
	country, err := countryQuery.FindCountryByAlpha(code)
	if err != nil {
		return code
	}
	return country.Name.Common
}
