package analytics

import (
	"sort"
	"strconv"
	"time"

	"shopsignals/internal/events"
)

// cartSizeCap groups larger carts into a single "5+" bucket.
const cartSizeCap = 5

type CartSizeBucket struct {
	Size     string `json:"size"`
	Sessions int    `json:"sessions"`
}

type ProductAdds struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	Adds        int    `json:"adds"`
	Quantity    int    `json:"quantity"`
}

// CartAnalysis describes cart activity. Size and value statistics only use
// sessions whose events carried a cart snapshot; nothing is estimated.
type CartAnalysis struct {
	AddToCart                int              `json:"add_to_cart"`
	RemoveFromCart           int              `json:"remove_from_cart"`
	ViewCart                 int              `json:"view_cart"`
	CheckoutStarts           int              `json:"checkout_starts"`
	SessionsWithCart         int              `json:"sessions_with_cart"`
	SizeDistribution         []CartSizeBucket `json:"size_distribution"`
	AvgCartSize              *float64         `json:"avg_cart_size,omitempty"`
	AvgCartValue             *float64         `json:"avg_cart_value,omitempty"`
	AvgTimeToCheckoutSeconds *float64         `json:"avg_time_to_checkout_seconds,omitempty"`
	TopProducts              []ProductAdds    `json:"top_products"`
}

type cartSnapshot struct {
	at    time.Time
	size  *int
	value *float64
}

// AnalyzeCart computes cart statistics.
//
// A session's cart is the latest snapshot, by created_at, among its events
// reporting a cart size. Time to checkout is measured per session from its
// first add_to_cart to its first checkout_start at or after it.
func AnalyzeCart(evs []events.Event, topN int) CartAnalysis {
	result := CartAnalysis{}
	latest := make(map[string]cartSnapshot)
	firstAdd := make(map[string]time.Time)
	starts := make(map[string][]time.Time)
	products := make(map[string]*ProductAdds)

	for i := range evs {
		e := &evs[i]
		switch e.EventType {
		case events.EventAddToCart:
			result.AddToCart++
			if t, ok := firstAdd[e.SessionID]; !ok || e.CreatedAt.Before(t) {
				firstAdd[e.SessionID] = e.CreatedAt
			}
			countProduct(products, e)
		case events.EventRemoveFromCart:
			result.RemoveFromCart++
		case events.EventViewCart:
			result.ViewCart++
		case events.EventCheckoutStart:
			result.CheckoutStarts++
			starts[e.SessionID] = append(starts[e.SessionID], e.CreatedAt)
		}

		if snap, ok := snapshotOf(e); ok {
			if prev, seen := latest[e.SessionID]; !seen || !snap.at.Before(prev.at) {
				latest[e.SessionID] = snap
			}
		}
	}

	result.SessionsWithCart = len(latest)
	result.SizeDistribution, result.AvgCartSize = sizeStats(latest)
	result.AvgCartValue = valueStats(latest)
	result.AvgTimeToCheckoutSeconds = timeToCheckout(firstAdd, starts)
	result.TopProducts = topProducts(products, topN)
	return result
}

func snapshotOf(e *events.Event) (cartSnapshot, bool) {
	p, err := e.Payload()
	if err != nil {
		return cartSnapshot{}, false
	}
	sizer, ok := p.(events.CartSizer)
	if !ok {
		return cartSnapshot{}, false
	}
	size, ok := sizer.CartSizeValue()
	if !ok {
		return cartSnapshot{}, false
	}
	snap := cartSnapshot{at: e.CreatedAt, size: &size}
	switch v := p.(type) {
	case *events.CartItemPayload:
		snap.value = v.CartValue
	case *events.CartPayload:
		snap.value = v.CartValue
	case *events.CheckoutSuccessPayload:
		snap.value = v.Total
	}
	return snap, true
}

func sizeStats(latest map[string]cartSnapshot) ([]CartSizeBucket, *float64) {
	buckets := make([]CartSizeBucket, cartSizeCap)
	for i := range buckets {
		buckets[i].Size = strconv.Itoa(i + 1)
	}
	buckets[cartSizeCap-1].Size += "+"

	var sum, n int
	for _, snap := range latest {
		size := *snap.size
		if size <= 0 {
			continue
		}
		sum += size
		n++
		idx := size - 1
		if idx >= cartSizeCap {
			idx = cartSizeCap - 1
		}
		buckets[idx].Sessions++
	}
	if n == 0 {
		return buckets, nil
	}
	avg := float64(sum) / float64(n)
	return buckets, &avg
}

func valueStats(latest map[string]cartSnapshot) *float64 {
	var sum float64
	var n int
	for _, snap := range latest {
		if snap.value == nil {
			continue
		}
		sum += *snap.value
		n++
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

func timeToCheckout(firstAdd map[string]time.Time, starts map[string][]time.Time) *float64 {
	var total float64
	var n int
	for session, added := range firstAdd {
		var first *time.Time
		for _, t := range starts[session] {
			if t.Before(added) {
				continue
			}
			if first == nil || t.Before(*first) {
				t := t
				first = &t
			}
		}
		if first == nil {
			continue
		}
		total += first.Sub(added).Seconds()
		n++
	}
	if n == 0 {
		return nil
	}
	avg := total / float64(n)
	return &avg
}

func countProduct(products map[string]*ProductAdds, e *events.Event) {
	id := events.Deref(e.ProductID)
	if id == "" {
		id = events.Deref(e.ProductName)
	}
	if id == "" {
		return
	}
	p, ok := products[id]
	if !ok {
		p = &ProductAdds{ProductID: id}
		products[id] = p
	}
	if name := events.Deref(e.ProductName); name != "" {
		p.ProductName = name
	}
	p.Adds++

	quantity := 1
	if payload, err := e.Payload(); err == nil {
		if item, ok := payload.(*events.CartItemPayload); ok && item.Quantity > 0 {
			quantity = item.Quantity
		}
	}
	p.Quantity += quantity
}

func topProducts(products map[string]*ProductAdds, limit int) []ProductAdds {
	out := make([]ProductAdds, 0, len(products))
	for _, p := range products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Adds != out[j].Adds {
			return out[i].Adds > out[j].Adds
		}
		return out[i].ProductID < out[j].ProductID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
