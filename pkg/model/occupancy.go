package model

import "time"

// Occupancy is one room-night in the ledger. The unique (room_id, date)
// index on the collection is the authoritative double-booking guard.
type Occupancy struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty"`
	RoomID    string    `json:"room_id" bson:"room_id"`
	Date      time.Time `json:"date" bson:"date"`
	BookingID string    `json:"booking_id" bson:"booking_id"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
