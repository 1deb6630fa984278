package allocation

import "lagoonstay/pkg/model"

// RoomCapacity resolves how many guests a room sleeps. Inventory imported
// from channel managers is inconsistent, so several field shapes are
// recognized, in priority order: adult/child capacities, a flat capacity,
// a sleeps count, then the bed configuration.
func RoomCapacity(room model.Room, allowExtraBeds bool) int {
	if room.CapacityAdults != nil || room.CapacityChildren != nil {
		capacity := 0
		if room.CapacityAdults != nil {
			capacity += *room.CapacityAdults
		}
		if room.CapacityChildren != nil {
			capacity += *room.CapacityChildren
		}
		if extra := extraBedCount(room); allowExtraBeds && extra != nil {
			capacity += *extra
		}
		return capacity
	}

	capacity := 0
	switch {
	case room.Capacity != nil:
		capacity = *room.Capacity
	case room.Sleeps != nil:
		capacity = *room.Sleeps
	default:
		// A bed entry without a usable count still sleeps one.
		for _, bed := range room.BedConfig {
			if bed.Count > 0 {
				capacity += bed.Count
			} else {
				capacity++
			}
		}
	}

	if allowExtraBeds {
		if extra := extraBedCount(room); extra != nil {
			capacity += *extra
		} else {
			capacity++
		}
	}

	return capacity
}

// extraBedCount reads the extra-bed count, preferring the current field
// over the legacy extra_bedding name still present in imported inventory.
func extraBedCount(room model.Room) *int {
	if room.ExtraBeds != nil {
		return room.ExtraBeds
	}
	return room.ExtraBedding
}
