package events

import (
	"encoding/json"
	"fmt"
	"reflect"

	"gorm.io/datatypes"
)

// Payload is the typed metadata of an event. Each event type has exactly one
// payload variant; see NewPayload.
type Payload interface {
	isPayload()
}

// CartSizer is implemented by payloads that can carry the cart size at the
// moment the event fired.
type CartSizer interface {
	CartSizeValue() (int, bool)
}

type SessionStartPayload struct {
	LandingPage string `json:"landingPage,omitempty"`
}

type PageViewPayload struct {
	Title string `json:"title,omitempty"`
}

type ProductViewPayload struct {
	Category string `json:"category,omitempty"`
}

// CartItemPayload describes a single cart mutation.
type CartItemPayload struct {
	Quantity  int      `json:"quantity,omitempty"`
	CartSize  *int     `json:"cartSize,omitempty"`
	CartValue *float64 `json:"cartValue,omitempty"`
}

// CartPayload is a cart snapshot attached to cart and checkout milestones.
type CartPayload struct {
	CartSize  *int     `json:"cartSize,omitempty"`
	CartValue *float64 `json:"cartValue,omitempty"`
}

// CheckoutFormAbandonPayload records how far a shopper got in the checkout form.
type CheckoutFormAbandonPayload struct {
	FilledFields     []string `json:"filledFields,omitempty"`
	TimeSpentSeconds *float64 `json:"timeSpentSeconds,omitempty"`
}

type CheckoutFormErrorPayload struct {
	ErrorType string `json:"error_type,omitempty"`
	Field     string `json:"field,omitempty"`
	Message   string `json:"message,omitempty"`
}

type CheckoutSuccessPayload struct {
	OrderID  string   `json:"orderId,omitempty"`
	Total    *float64 `json:"total,omitempty"`
	CartSize *int     `json:"cartSize,omitempty"`
}

func (*SessionStartPayload) isPayload() {}
func (*PageViewPayload) isPayload() {}
func (*ProductViewPayload) isPayload() {}
func (*CartItemPayload) isPayload() {}
func (*CartPayload) isPayload() {}
func (*CheckoutFormAbandonPayload) isPayload() {}
func (*CheckoutFormErrorPayload) isPayload() {}
func (*CheckoutSuccessPayload) isPayload() {}

func (p *CartItemPayload) CartSizeValue() (int, bool) { return intValue(p.CartSize) }
func (p *CartPayload) CartSizeValue() (int, bool) { return intValue(p.CartSize) }
func (p *CheckoutSuccessPayload) CartSizeValue() (int, bool) { return intValue(p.CartSize) }

func intValue(p *int) (int, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

// NewPayload returns an empty payload of the variant that belongs to t.
func NewPayload(t EventType) (Payload, error) {
	switch t {
	case EventSessionStart:
		return &SessionStartPayload{}, nil
	case EventPageView:
		return &PageViewPayload{}, nil
	case EventProductView:
		return &ProductViewPayload{}, nil
	case EventAddToCart, EventRemoveFromCart:
		return &CartItemPayload{}, nil
	case EventViewCart, EventCheckoutFormOpen, EventCheckoutStart, EventWhatsAppRedirect:
		return &CartPayload{}, nil
	case EventCheckoutFormAbandon:
		return &CheckoutFormAbandonPayload{}, nil
	case EventCheckoutFormError:
		return &CheckoutFormErrorPayload{}, nil
	case EventCheckoutSuccess:
		return &CheckoutSuccessPayload{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, string(t))
}

// PayloadMatches reports whether p is the variant t expects.
func PayloadMatches(t EventType, p Payload) bool {
	want, err := NewPayload(t)
	if err != nil || p == nil {
		return false
	}
	return reflect.TypeOf(want) == reflect.TypeOf(p)
}

// DecodePayload parses raw metadata into the variant for t. Unknown keys are
// ignored; empty metadata yields a zero payload.
func DecodePayload(t EventType, raw datatypes.JSON) (Payload, error) {
	p, err := NewPayload(t)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return p, nil
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("decode %s metadata: %w", t, err)
	}
	return p, nil
}

// EncodePayload serializes p for storage. A nil payload encodes to nil.
func EncodePayload(p Payload) (datatypes.JSON, error) {
	if p == nil || reflect.ValueOf(p).IsNil() {
		return nil, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	if string(b) == "{}" {
		return nil, nil
	}
	return datatypes.JSON(b), nil
}
