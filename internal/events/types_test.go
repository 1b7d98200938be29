package events_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"shopsignals/internal/events"
)

func TestCategoryMappingIsTotalAndFixed(t *testing.T) {
	want := map[events.EventType]events.Category{
		events.EventSessionStart:        events.CategorySession,
		events.EventPageView:            events.CategoryNavigation,
		events.EventProductView:         events.CategoryProduct,
		events.EventAddToCart:           events.CategoryCart,
		events.EventRemoveFromCart:      events.CategoryCart,
		events.EventViewCart:            events.CategoryCart,
		events.EventCheckoutFormOpen:    events.CategoryCheckout,
		events.EventCheckoutFormAbandon: events.CategoryCheckout,
		events.EventCheckoutStart:       events.CategoryCheckout,
		events.EventCheckoutFormError:   events.CategoryCheckout,
		events.EventCheckoutSuccess:     events.CategoryConversion,
		events.EventWhatsAppRedirect:    events.CategoryConversion,
	}

	all := events.AllEventTypes()
	require.Len(t, all, len(want))

	for _, et := range all {
		got, err := et.Category()
		require.NoError(t, err)
		assert.Equal(t, want[et], got, "category of %s", et)

		again, err := et.Category()
		require.NoError(t, err)
		assert.Equal(t, got, again)
	}
}

func TestParseEventType(t *testing.T) {
	et, err := events.ParseEventType("add_to_cart")
	require.NoError(t, err)
	assert.Equal(t, events.EventAddToCart, et)

	_, err = events.ParseEventType("purchase")
	assert.True(t, errors.Is(err, events.ErrUnknownEventType))
}

func TestResolveCategory(t *testing.T) {
	tests := []struct {
		name     string
		typ      events.EventType
		supplied events.Category
		want     events.Category
		wantErr  error
	}{
		{"derived when empty", events.EventViewCart, "", events.CategoryCart, nil},
		{"matching supplied", events.EventCheckoutStart, events.CategoryCheckout, events.CategoryCheckout, nil},
		{"mismatch", events.EventCheckoutStart, events.CategoryConversion, "", events.ErrCategoryMismatch},
		{"unknown category", events.EventPageView, "browsing", "", events.ErrUnknownCategory},
		{"unknown type", "purchase", "", "", events.ErrUnknownEventType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := events.ResolveCategory(tt.typ, tt.supplied)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPayloadVariants(t *testing.T) {
	for _, et := range events.AllEventTypes() {
		p, err := events.NewPayload(et)
		require.NoError(t, err)
		assert.True(t, events.PayloadMatches(et, p), "%s payload", et)
	}

	assert.False(t, events.PayloadMatches(events.EventCheckoutFormAbandon, &events.CartPayload{}))
	assert.False(t, events.PayloadMatches(events.EventPageView, nil))
}

func TestDecodeCheckoutAbandonPayload(t *testing.T) {
	raw := datatypes.JSON(`{"filledFields":["fullName","cpf"],"timeSpentSeconds":42.5,"extra":true}`)

	p, err := events.DecodePayload(events.EventCheckoutFormAbandon, raw)
	require.NoError(t, err)

	abandon, ok := p.(*events.CheckoutFormAbandonPayload)
	require.True(t, ok)
	assert.Equal(t, []string{"fullName", "cpf"}, abandon.FilledFields)
	require.NotNil(t, abandon.TimeSpentSeconds)
	assert.Equal(t, 42.5, *abandon.TimeSpentSeconds)
}

func TestDecodeMissingFieldsStayAbsent(t *testing.T) {
	p, err := events.DecodePayload(events.EventCheckoutFormAbandon, nil)
	require.NoError(t, err)
	abandon := p.(*events.CheckoutFormAbandonPayload)
	assert.Nil(t, abandon.TimeSpentSeconds)
	assert.Empty(t, abandon.FilledFields)

	p, err = events.DecodePayload(events.EventViewCart, datatypes.JSON(`{}`))
	require.NoError(t, err)
	_, has := p.(events.CartSizer).CartSizeValue()
	assert.False(t, has)
}

func TestDecodeRejectsMalformedMetadata(t *testing.T) {
	_, err := events.DecodePayload(events.EventCheckoutFormError, datatypes.JSON(`{"error_type":`))
	assert.Error(t, err)
}

func TestEncodePayload(t *testing.T) {
	size := 3
	raw, err := events.EncodePayload(&events.CartPayload{CartSize: &size})
	require.NoError(t, err)
	assert.JSONEq(t, `{"cartSize":3}`, string(raw))

	raw, err = events.EncodePayload(&events.PageViewPayload{})
	require.NoError(t, err)
	assert.Nil(t, raw)

	var nilPayload *events.CartPayload
	raw, err = events.EncodePayload(nilPayload)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestEventValidate(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	valid := func() events.Event {
		return events.Event{
			SessionID:     "1717243200000-abc",
			EventType:     events.EventAddToCart,
			EventCategory: events.CategoryCart,
			CreatedAt:     now,
		}
	}

	e := valid()
	assert.NoError(t, e.Validate(now))

	e = valid()
	e.SessionID = ""
	e.EventCategory = events.CategoryConversion
	err := e.Validate(now)
	var verrs events.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 2)
	assert.Equal(t, "session_id", verrs[0].Field)
	assert.Equal(t, "event_category", verrs[1].Field)

	e = valid()
	e.CreatedAt = now.Add(time.Hour)
	assert.Error(t, e.Validate(now))

	e = valid()
	e.Metadata = datatypes.JSON(`[1,2]`)
	assert.Error(t, e.Validate(now))
}

func TestStringPtr(t *testing.T) {
	assert.Nil(t, events.StringPtr(""))
	assert.Nil(t, events.StringPtr("   "))
	require.NotNil(t, events.StringPtr("google.com"))
	assert.Equal(t, "google.com", *events.StringPtr("google.com"))
	assert.Equal(t, "", events.Deref(nil))
}

func TestFilterEffectiveLimit(t *testing.T) {
	assert.Equal(t, events.MaxQueryRows, events.Filter{}.EffectiveLimit(0))
	assert.Equal(t, 100, events.Filter{}.EffectiveLimit(100))
	assert.Equal(t, 5, events.Filter{Limit: 5}.EffectiveLimit(100))
	assert.Equal(t, 100, events.Filter{Limit: 500}.EffectiveLimit(100))
	assert.Equal(t, events.MaxQueryRows, events.Filter{}.EffectiveLimit(50000))
}
