package events

import (
	"errors"
	"fmt"
)

// EventType is the closed set of storefront interactions that can be tracked.
type EventType string

const (
	EventSessionStart        EventType = "session_start"
	EventPageView            EventType = "page_view"
	EventProductView         EventType = "product_view"
	EventAddToCart           EventType = "add_to_cart"
	EventRemoveFromCart      EventType = "remove_from_cart"
	EventViewCart            EventType = "view_cart"
	EventCheckoutFormOpen    EventType = "checkout_form_open"
	EventCheckoutFormAbandon EventType = "checkout_form_abandon"
	EventCheckoutStart       EventType = "checkout_start"
	EventCheckoutFormError   EventType = "checkout_form_error"
	EventCheckoutSuccess     EventType = "checkout_success"
	EventWhatsAppRedirect    EventType = "whatsapp_redirect"
)

// Category groups event types coarsely.
type Category string

const (
	CategorySession    Category = "session"
	CategoryNavigation Category = "navigation"
	CategoryProduct    Category = "product"
	CategoryCart       Category = "cart"
	CategoryCheckout   Category = "checkout"
	CategoryConversion Category = "conversion"
)

var (
	ErrUnknownEventType = errors.New("unknown event type")
	ErrUnknownCategory  = errors.New("unknown event category")
	ErrCategoryMismatch = errors.New("event category does not match event type")
)

// allTypes keeps declaration order for listings and reports.
var allTypes = []EventType{
	EventSessionStart,
	EventPageView,
	EventProductView,
	EventAddToCart,
	EventRemoveFromCart,
	EventViewCart,
	EventCheckoutFormOpen,
	EventCheckoutFormAbandon,
	EventCheckoutStart,
	EventCheckoutFormError,
	EventCheckoutSuccess,
	EventWhatsAppRedirect,
}

var categoryByType = map[EventType]Category{
	EventSessionStart:        CategorySession,
	EventPageView:            CategoryNavigation,
	EventProductView:         CategoryProduct,
	EventAddToCart:           CategoryCart,
	EventRemoveFromCart:      CategoryCart,
	EventViewCart:            CategoryCart,
	EventCheckoutFormOpen:    CategoryCheckout,
	EventCheckoutFormAbandon: CategoryCheckout,
	EventCheckoutStart:       CategoryCheckout,
	EventCheckoutFormError:   CategoryCheckout,
	EventCheckoutSuccess:     CategoryConversion,
	EventWhatsAppRedirect:    CategoryConversion,
}

// AllEventTypes returns every event type in declaration order.
func AllEventTypes() []EventType {
	out := make([]EventType, len(allTypes))
	copy(out, allTypes)
	return out
}

// Valid reports whether t belongs to the closed set.
func (t EventType) Valid() bool {
	_, ok := categoryByType[t]
	return ok
}

// Category returns the fixed category for t.
func (t EventType) Category() (Category, error) {
	c, ok := categoryByType[t]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEventType, string(t))
	}
	return c, nil
}

// ParseEventType converts raw input into a known EventType.
func ParseEventType(raw string) (EventType, error) {
	t := EventType(raw)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownEventType, raw)
	}
	return t, nil
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategorySession, CategoryNavigation, CategoryProduct, CategoryCart, CategoryCheckout, CategoryConversion:
		return true
	}
	return false
}

// ResolveCategory returns the category for t, checking a caller supplied one
// when present. An empty supplied category means "derive it".
func ResolveCategory(t EventType, supplied Category) (Category, error) {
	c, err := t.Category()
	if err != nil {
		return "", err
	}
	if supplied == "" {
		return c, nil
	}
	if !supplied.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, string(supplied))
	}
	if supplied != c {
		return "", fmt.Errorf("%w: %s belongs to %s, got %s", ErrCategoryMismatch, t, c, supplied)
	}
	return c, nil
}
