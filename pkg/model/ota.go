package model

import "time"

// OTAMapping binds an external channel booking to an internal one.
// (source, external_id) carries a unique index so replayed webhooks
// reconcile against the same internal booking.
type OTAMapping struct {
	ID         string    `json:"id,omitempty" bson:"_id,omitempty"`
	Source     string    `json:"source" bson:"source"`
	ExternalID string    `json:"external_id" bson:"external_id"`
	BookingID  string    `json:"booking_id,omitempty" bson:"booking_id,omitempty"`
	Status     string    `json:"status" bson:"status"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

// OTANotification is the normalized channel event produced by the
// provider adapters from raw webhook or stream payloads.
type OTANotification struct {
	Source          string  `json:"source"`
	ExternalID      string  `json:"external_id"`
	GuestName       string  `json:"guest_name"`
	GuestEmail      string  `json:"guest_email"`
	GuestPhone      string  `json:"guest_phone"`
	AccommodationID string  `json:"accommodation_id"`
	RoomType        string  `json:"room_type"`
	Guests          int     `json:"guests"`
	CheckIn         string  `json:"check_in"`
	CheckOut        string  `json:"check_out"`
	TotalPrice      float64 `json:"total_price"`
	Status          string  `json:"status"`
}
