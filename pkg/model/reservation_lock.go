package model

import "time"

// ReservationLock is an advisory lock document. The lock key is the
// document _id, so acquisition contention resolves through the primary
// key and never needs a separate unique index. A TTL index on
// expires_at reclaims locks from crashed holders.
type ReservationLock struct {
	ID        string    `bson:"_id" json:"key"`
	Owner     string    `bson:"owner" json:"owner"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
