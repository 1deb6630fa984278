package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrRoomNotFound = errors.New("selected room not found")

	ErrRoomUnavailable = errors.New("room unavailable for the requested dates")

	ErrNightTaken = errors.New("room night already taken")

	ErrInsufficientRooms = errors.New("not enough rooms for the requested guests")

	ErrDuplicateSelection = errors.New("room selected more than once")

	ErrLockBusy = errors.New("dates are being booked by another request")

	ErrLockNotHeld = errors.New("reservation lock not held by this owner")
)
