package model

import "time"

const (
	EventBookingCreated    = "bookings.created"
	EventBookingCancelled  = "bookings.cancelled"
	EventBookingModified   = "bookings.modified"
	EventBookingCheckedOut = "bookings.checked_out"
)

// Event is the lifecycle notification fanned out to websocket
// subscribers and the Kafka topic.
type Event struct {
	Name      string         `json:"event"`
	BookingID string         `json:"booking_id,omitempty"`
	Reference string         `json:"reference,omitempty"`
	Status    string         `json:"status,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	At        time.Time      `json:"ts"`
}
