package analytics

import "shopsignals/internal/events"

// KPIs are the headline numbers of a period.
type KPIs struct {
	Sessions            int     `json:"sessions"`
	UniqueUsers         int     `json:"unique_users"`
	ProductViews        int     `json:"product_views"`
	AddToCart           int     `json:"add_to_cart"`
	CheckoutStarts      int     `json:"checkout_starts"`
	WhatsAppRedirects   int     `json:"whatsapp_redirects"`
	ConversionRate      float64 `json:"conversion_rate"`
	CartConversionRate  float64 `json:"cart_conversion_rate"`
	CartAbandonmentRate float64 `json:"cart_abandonment_rate"`
}

// ComputeKPIs derives the KPI set. Rates are percentages and 0 when their
// denominator is 0.
func ComputeKPIs(evs []events.Event) KPIs {
	counts := CountByType(evs)
	k := KPIs{
		Sessions:          UniqueSessions(evs),
		UniqueUsers:       UniqueUsers(evs),
		ProductViews:      counts[events.EventProductView],
		AddToCart:         counts[events.EventAddToCart],
		CheckoutStarts:    counts[events.EventCheckoutStart],
		WhatsAppRedirects: counts[events.EventWhatsAppRedirect],
	}
	k.ConversionRate = rate(float64(k.WhatsAppRedirects), float64(k.Sessions))
	k.CartConversionRate = rate(float64(k.CheckoutStarts), float64(k.AddToCart))
	if k.AddToCart > 0 {
		k.CartAbandonmentRate = 100 - k.CartConversionRate
	}
	return k
}
