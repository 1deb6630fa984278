package model

import (
	"time"
)

const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusCancelled  = "cancelled"
	StatusCheckedOut = "checked_out"
)

type Payment struct {
	PaymentID string `json:"payment_id,omitempty" bson:"payment_id,omitempty"`
	OrderID   string `json:"order_id,omitempty" bson:"order_id,omitempty"`
	Method    string `json:"method,omitempty" bson:"method,omitempty"`
}

type RoomCharge struct {
	RoomID        string  `json:"room_id" bson:"room_id"`
	PricePerNight float64 `json:"price_per_night" bson:"price_per_night"`
}

type ProgramCharge struct {
	ProgramID string  `json:"program_id" bson:"program_id"`
	Title     string  `json:"title" bson:"title"`
	Price     float64 `json:"price" bson:"price"`
}

type PriceBreakdown struct {
	RoomsSubtotal    float64         `json:"rooms_subtotal" bson:"rooms_subtotal"`
	ProgramsSubtotal float64         `json:"programs_subtotal" bson:"programs_subtotal"`
	Tax              float64         `json:"tax" bson:"tax"`
	Total            float64         `json:"total" bson:"total"`
	PerRoom          []RoomCharge    `json:"per_room" bson:"per_room"`
	Programs         []ProgramCharge `json:"programs" bson:"programs"`
}

type MenuItem struct {
	Name  string  `json:"name" bson:"name" validate:"required,min=1,max=100"`
	Qty   int     `json:"qty" bson:"qty" validate:"required,min=1"`
	Price float64 `json:"price" bson:"price" validate:"min=0"`
}

type Booking struct {
	ID               string         `json:"id,omitempty" bson:"_id,omitempty"`
	Reference        string         `json:"reference" bson:"reference"`
	UserID           string         `json:"user_id,omitempty" bson:"user_id,omitempty"`
	GuestName        string         `json:"guest_name" bson:"guest_name"`
	GuestEmail       string         `json:"guest_email" bson:"guest_email"`
	GuestPhone       string         `json:"guest_phone,omitempty" bson:"guest_phone,omitempty"`
	Guests           int            `json:"guests" bson:"guests"`
	SelectedRooms    []string       `json:"selected_rooms,omitempty" bson:"selected_rooms,omitempty"`
	AllocatedRooms   []string       `json:"allocated_rooms" bson:"allocated_rooms"`
	SelectedPrograms []string       `json:"selected_programs,omitempty" bson:"selected_programs,omitempty"`
	Payment          *Payment       `json:"payment,omitempty" bson:"payment,omitempty"`
	ExtraBedding     bool           `json:"extra_bedding" bson:"extra_bedding"`
	CheckIn          time.Time      `json:"check_in" bson:"check_in"`
	CheckOut         time.Time      `json:"check_out" bson:"check_out"`
	Nights           int            `json:"nights" bson:"nights"`
	PriceBreakdown   PriceBreakdown `json:"price_breakdown" bson:"price_breakdown"`
	MenuItems        []MenuItem     `json:"menu_items,omitempty" bson:"menu_items,omitempty"`
	MenuTotal        float64        `json:"menu_total" bson:"menu_total"`
	Status           string         `json:"status" bson:"status"`
	CreatedAt        time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" bson:"updated_at"`
}

// BookingRequest is the inbound admission payload. Field names mirror the
// public API; cross-field rules live in the bookings validator.
type BookingRequest struct {
	GuestName        string   `json:"guest_name" validate:"required,min=2,max=120"`
	GuestEmail       string   `json:"guest_email" validate:"required,email"`
	GuestPhone       string   `json:"guest_phone" validate:"omitempty,min=6,max=20"`
	Guests           int      `json:"guests" validate:"required,min=1,max=40"`
	CheckIn          string   `json:"check_in" validate:"required,booking_date"`
	CheckOut         string   `json:"check_out" validate:"required,booking_date"`
	SelectedRooms    []string `json:"selected_rooms" validate:"omitempty,max=10,dive,min=1"`
	SelectedPrograms []string `json:"selected_programs" validate:"omitempty,max=10,dive,min=1"`
	PreferredTypes   []string `json:"preferred_room_types" validate:"omitempty,max=10,dive,min=1"`
	AllowExtraBeds   bool     `json:"allow_extra_beds"`
	Payment          *Payment `json:"payment"`
}

// BookingSummary is the admission response shape.
type BookingSummary struct {
	ID             string         `json:"id"`
	Reference      string         `json:"reference"`
	Status         string         `json:"status"`
	AllocatedRooms []string       `json:"allocated_rooms"`
	PriceBreakdown PriceBreakdown `json:"price_breakdown"`
	AlreadyExists  bool           `json:"already_exists,omitempty"`
}

func (b *Booking) Summary() *BookingSummary {
	return &BookingSummary{
		ID:             b.ID,
		Reference:      b.Reference,
		Status:         b.Status,
		AllocatedRooms: b.AllocatedRooms,
		PriceBreakdown: b.PriceBreakdown,
	}
}
