package service

import (
	"strings"

	otaerrors "lagoonstay/internal/ota/errors"
	"lagoonstay/pkg/model"
)

// Adapter normalizes one provider's webhook payload into an
// OTANotification. Providers disagree on every field name, so each
// channel gets its own mapping and everything else goes through the
// generic adapter.
type Adapter func(payload map[string]any) (*model.OTANotification, error)

func AdapterFor(source string) Adapter {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case "yatra":
		return mapYatra
	case "mmt", "makemytrip":
		return mapMMT
	default:
		return mapGeneric
	}
}

func mapYatra(payload map[string]any) (*model.OTANotification, error) {
	n := &model.OTANotification{
		Source:     "yatra",
		ExternalID: str(payload, "booking_ref", "yatra_ref"),
		CheckIn:    str(payload, "checkin"),
		CheckOut:   str(payload, "checkout"),
		RoomType:   str(payload, "room_type"),
		Guests:     num(payload, "pax"),
		TotalPrice: flt(payload, "amount"),
		Status:     str(payload, "status"),
	}
	if guest, ok := payload["guest"].(map[string]any); ok {
		n.GuestName = str(guest, "name")
		n.GuestEmail = str(guest, "email")
		n.GuestPhone = str(guest, "phone")
	}
	if n.ExternalID == "" {
		return nil, otaerrors.ErrMissingIdentity
	}
	return n, nil
}

func mapMMT(payload map[string]any) (*model.OTANotification, error) {
	n := &model.OTANotification{
		Source:     "mmt",
		ExternalID: str(payload, "mmt_booking_id", "booking_id"),
		GuestName:  str(payload, "customer_name"),
		GuestEmail: str(payload, "customer_email"),
		GuestPhone: str(payload, "customer_phone"),
		CheckIn:    str(payload, "from_date"),
		CheckOut:   str(payload, "to_date"),
		RoomType:   str(payload, "room_category"),
		Guests:     num(payload, "no_of_guests"),
		TotalPrice: flt(payload, "total_amount"),
		Status:     str(payload, "booking_status"),
	}
	if n.ExternalID == "" {
		return nil, otaerrors.ErrMissingIdentity
	}
	return n, nil
}

func mapGeneric(payload map[string]any) (*model.OTANotification, error) {
	n := &model.OTANotification{
		Source:     str(payload, "source"),
		ExternalID: str(payload, "external_id", "id"),
		GuestName:  str(payload, "guest_name"),
		GuestEmail: str(payload, "guest_email"),
		GuestPhone: str(payload, "guest_phone"),
		CheckIn:    str(payload, "check_in"),
		CheckOut:   str(payload, "check_out"),
		RoomType:   str(payload, "room_type"),
		Guests:     num(payload, "guests"),
		TotalPrice: flt(payload, "total_price"),
		Status:     str(payload, "status"),
	}
	if n.ExternalID == "" {
		return nil, otaerrors.ErrMissingIdentity
	}
	return n, nil
}

func str(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := payload[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func flt(payload map[string]any, keys ...string) float64 {
	for _, key := range keys {
		switch v := payload[key].(type) {
		case float64:
			return v
		case int:
			return float64(v)
		}
	}
	return 0
}

func num(payload map[string]any, keys ...string) int {
	for _, key := range keys {
		switch v := payload[key].(type) {
		case float64:
			return int(v)
		case int:
			return v
		}
	}
	return 0
}
