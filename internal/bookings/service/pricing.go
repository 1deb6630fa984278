package service

import (
	"math"

	"lagoonstay/pkg/model"
)

// Quote prices a stay. Rooms bill per night with a one-night minimum,
// wellness programs bill once per stay, and tax applies to the combined
// subtotal. All amounts round to two decimals.
func Quote(rooms []model.Room, nights int, programs []model.WellnessProgram, taxRate float64) model.PriceBreakdown {
	billableNights := nights
	if billableNights < 1 {
		billableNights = 1
	}

	breakdown := model.PriceBreakdown{
		PerRoom:  make([]model.RoomCharge, 0, len(rooms)),
		Programs: make([]model.ProgramCharge, 0, len(programs)),
	}

	for _, room := range rooms {
		breakdown.RoomsSubtotal += room.PricePerNight * float64(billableNights)
		breakdown.PerRoom = append(breakdown.PerRoom, model.RoomCharge{
			RoomID:        room.ID,
			PricePerNight: room.PricePerNight,
		})
	}

	for _, program := range programs {
		breakdown.ProgramsSubtotal += program.Price
		breakdown.Programs = append(breakdown.Programs, model.ProgramCharge{
			ProgramID: program.ID,
			Title:     program.Title,
			Price:     program.Price,
		})
	}

	subtotal := breakdown.RoomsSubtotal + breakdown.ProgramsSubtotal
	breakdown.Tax = round2(subtotal * taxRate)
	breakdown.Total = round2(subtotal + breakdown.Tax)
	breakdown.RoomsSubtotal = round2(breakdown.RoomsSubtotal)
	breakdown.ProgramsSubtotal = round2(breakdown.ProgramsSubtotal)

	return breakdown
}

// MenuTotal sums menu line items.
func MenuTotal(items []model.MenuItem) float64 {
	total := 0.0
	for _, item := range items {
		total += item.Price * float64(item.Qty)
	}
	return round2(total)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
