package tracker

import (
	"context"
	"time"

	"shopsignals/internal/events"
)

// Cart is the cart state at the moment of an event.
type Cart struct {
	Size  int
	Value float64
}

func (c *Cart) payload() *events.CartPayload {
	if c == nil {
		return &events.CartPayload{}
	}
	size, value := c.Size, c.Value
	return &events.CartPayload{CartSize: &size, CartValue: &value}
}

// TrackSessionStart emits session_start the first time it is called in a
// session. Later calls are skipped.
func (e *Emitter) TrackSessionStart(ctx context.Context) Outcome {
	if !e.session.MarkStarted() {
		return Outcome{Skipped: true}
	}
	return e.TrackEvent(ctx, Input{
		Type:    events.EventSessionStart,
		Payload: &events.SessionStartPayload{LandingPage: e.env.PagePath()},
	})
}

// TrackPageView records a navigation. An empty path uses the current one.
func (e *Emitter) TrackPageView(ctx context.Context, path, title string) Outcome {
	return e.TrackEvent(ctx, Input{
		Type:     events.EventPageView,
		PagePath: path,
		Payload:  &events.PageViewPayload{Title: title},
	})
}

func (e *Emitter) TrackProductView(ctx context.Context, p Product, productCategory string) Outcome {
	return e.TrackEvent(ctx, Input{
		Type:    events.EventProductView,
		Product: &p,
		Payload: &events.ProductViewPayload{Category: productCategory},
	})
}

// TrackAddToCart records a product added to the cart; cart is the state after
// the change.
func (e *Emitter) TrackAddToCart(ctx context.Context, p Product, quantity int, cart *Cart) Outcome {
	return e.TrackEvent(ctx, Input{
		Type:    events.EventAddToCart,
		Product: &p,
		Payload: cartItem(quantity, cart),
	})
}

func (e *Emitter) TrackRemoveFromCart(ctx context.Context, p Product, quantity int, cart *Cart) Outcome {
	return e.TrackEvent(ctx, Input{
		Type:    events.EventRemoveFromCart,
		Product: &p,
		Payload: cartItem(quantity, cart),
	})
}

func (e *Emitter) TrackViewCart(ctx context.Context, cart *Cart) Outcome {
	return e.TrackEvent(ctx, Input{Type: events.EventViewCart, Payload: cart.payload()})
}

func (e *Emitter) TrackCheckoutFormOpen(ctx context.Context, cart *Cart) Outcome {
	return e.TrackEvent(ctx, Input{Type: events.EventCheckoutFormOpen, Payload: cart.payload()})
}

// TrackCheckoutFormAbandon records the fields filled before the form was left.
// A nil timeSpent means the duration is unknown.
func (e *Emitter) TrackCheckoutFormAbandon(ctx context.Context, filledFields []string, timeSpent *time.Duration) Outcome {
	payload := &events.CheckoutFormAbandonPayload{FilledFields: filledFields}
	if timeSpent != nil {
		secs := timeSpent.Seconds()
		payload.TimeSpentSeconds = &secs
	}
	return e.TrackEvent(ctx, Input{Type: events.EventCheckoutFormAbandon, Payload: payload})
}

func (e *Emitter) TrackCheckoutStart(ctx context.Context, cart *Cart) Outcome {
	return e.TrackEvent(ctx, Input{Type: events.EventCheckoutStart, Payload: cart.payload()})
}

// TrackCheckoutFormError records a validation or submission error in the
// checkout form.
func (e *Emitter) TrackCheckoutFormError(ctx context.Context, errorType, field, message string) Outcome {
	return e.TrackEvent(ctx, Input{
		Type: events.EventCheckoutFormError,
		Payload: &events.CheckoutFormErrorPayload{
			ErrorType: errorType,
			Field:     field,
			Message:   message,
		},
	})
}

func (e *Emitter) TrackCheckoutSuccess(ctx context.Context, orderID string, total float64, cart *Cart) Outcome {
	payload := &events.CheckoutSuccessPayload{OrderID: orderID, Total: &total}
	if cart != nil {
		size := cart.Size
		payload.CartSize = &size
	}
	return e.TrackEvent(ctx, Input{Type: events.EventCheckoutSuccess, Payload: payload})
}

// TrackWhatsAppRedirect records the hand-off to WhatsApp, the storefront's
// conversion step.
func (e *Emitter) TrackWhatsAppRedirect(ctx context.Context, cart *Cart) Outcome {
	return e.TrackEvent(ctx, Input{Type: events.EventWhatsAppRedirect, Payload: cart.payload()})
}

func cartItem(quantity int, cart *Cart) *events.CartItemPayload {
	payload := &events.CartItemPayload{Quantity: quantity}
	if cart != nil {
		size, value := cart.Size, cart.Value
		payload.CartSize = &size
		payload.CartValue = &value
	}
	return payload
}
