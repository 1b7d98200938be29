package analytics

// KPIComparison holds period-over-period percentage changes. A nil change
// means the previous period had nothing to compare against.
type KPIComparison struct {
	SessionsChange        *float64 `json:"sessions_change,omitempty"`
	UniqueUsersChange     *float64 `json:"unique_users_change,omitempty"`
	ProductViewsChange    *float64 `json:"product_views_change,omitempty"`
	AddToCartChange       *float64 `json:"add_to_cart_change,omitempty"`
	CheckoutStartsChange  *float64 `json:"checkout_starts_change,omitempty"`
	RedirectsChange       *float64 `json:"whatsapp_redirects_change,omitempty"`
	ConversionRateChange  *float64 `json:"conversion_rate_change,omitempty"`
	CartConversionChange  *float64 `json:"cart_conversion_rate_change,omitempty"`
	CartAbandonmentChange *float64 `json:"cart_abandonment_rate_change,omitempty"`
}

// PercentChange is (current - previous) / previous * 100, or nil when
// previous is not positive.
func PercentChange(current, previous float64) *float64 {
	if previous > 0 {
		change := ((current - previous) / previous) * 100
		return &change
	}
	return nil
}

// CompareKPIs computes the change of every KPI against the previous period.
func CompareKPIs(current, previous KPIs) KPIComparison {
	return KPIComparison{
		SessionsChange:        PercentChange(float64(current.Sessions), float64(previous.Sessions)),
		UniqueUsersChange:     PercentChange(float64(current.UniqueUsers), float64(previous.UniqueUsers)),
		ProductViewsChange:    PercentChange(float64(current.ProductViews), float64(previous.ProductViews)),
		AddToCartChange:       PercentChange(float64(current.AddToCart), float64(previous.AddToCart)),
		CheckoutStartsChange:  PercentChange(float64(current.CheckoutStarts), float64(previous.CheckoutStarts)),
		RedirectsChange:       PercentChange(float64(current.WhatsAppRedirects), float64(previous.WhatsAppRedirects)),
		ConversionRateChange:  PercentChange(current.ConversionRate, previous.ConversionRate),
		CartConversionChange:  PercentChange(current.CartConversionRate, previous.CartConversionRate),
		CartAbandonmentChange: PercentChange(current.CartAbandonmentRate, previous.CartAbandonmentRate),
	}
}
