package events

import (
	"time"

	"gorm.io/datatypes"
)

// Event is one immutable record of a tracked storefront action. Optional
// context is nil when unknown; it is never stored as an empty string.
type Event struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id,omitempty"`
	SessionID     string    `gorm:"index;size:64;not null" json:"session_id"`
	UserID        *string   `gorm:"index;size:128" json:"user_id,omitempty"`
	UserEmail     *string   `gorm:"size:255" json:"user_email,omitempty"`
	EventType     EventType `gorm:"index:idx_events_type_created;size:32;not null" json:"event_type"`
	EventCategory Category  `gorm:"size:16;not null" json:"event_category"`

	PagePath    *string `json:"page_path,omitempty"`
	Referrer    *string `gorm:"index" json:"referrer,omitempty"`
	UTMSource   *string `gorm:"column:utm_source" json:"utm_source,omitempty"`
	UTMMedium   *string `gorm:"column:utm_medium" json:"utm_medium,omitempty"`
	UTMCampaign *string `gorm:"column:utm_campaign" json:"utm_campaign,omitempty"`
	DeviceType  *string `gorm:"index;size:16" json:"device_type,omitempty"`
	Browser     *string `gorm:"size:32" json:"browser,omitempty"`
	Country     *string `gorm:"size:2" json:"country,omitempty"`

	ProductID    *string  `gorm:"index;size:64" json:"product_id,omitempty"`
	ProductName  *string  `json:"product_name,omitempty"`
	ProductPrice *float64 `json:"product_price,omitempty"`

	Metadata  datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"index:idx_events_type_created;index;not null" json:"created_at"`
}

// Payload decodes the metadata into the typed payload for the event's type.
func (e Event) Payload() (Payload, error) {
	return DecodePayload(e.EventType, e.Metadata)
}
