package model

// Bed describes one bed group inside a room document. Legacy datasets
// store heterogeneous capacity fields, so every capacity-related field
// is optional and pointer-typed to distinguish "absent" from zero.
type Bed struct {
	Type  string `json:"type" bson:"type"`
	Count int    `json:"count" bson:"count"`
}

type Room struct {
	ID               string  `json:"id,omitempty" bson:"_id,omitempty"`
	AccommodationID  string  `json:"accommodation_id,omitempty" bson:"accommodation_id,omitempty"`
	Slug             string  `json:"slug,omitempty" bson:"slug,omitempty"`
	Name             string  `json:"name,omitempty" bson:"name,omitempty"`
	Type             string  `json:"type,omitempty" bson:"type,omitempty"`
	PricePerNight    float64 `json:"price_per_night" bson:"price_per_night"`
	Available        bool    `json:"available" bson:"available"`
	CapacityAdults   *int    `json:"capacity_adults,omitempty" bson:"capacity_adults,omitempty"`
	CapacityChildren *int    `json:"capacity_children,omitempty" bson:"capacity_children,omitempty"`
	Capacity         *int    `json:"capacity,omitempty" bson:"capacity,omitempty"`
	Sleeps           *int    `json:"sleeps,omitempty" bson:"sleeps,omitempty"`
	ExtraBeds        *int    `json:"extra_beds,omitempty" bson:"extra_beds,omitempty"`
	ExtraBedding     *int    `json:"extra_bedding,omitempty" bson:"extra_bedding,omitempty"`
	BedConfig        []Bed   `json:"bed_config,omitempty" bson:"bed_config,omitempty"`
}

type Accommodation struct {
	ID   string `json:"id,omitempty" bson:"_id,omitempty"`
	Slug string `json:"slug,omitempty" bson:"slug,omitempty"`
	Name string `json:"name,omitempty" bson:"name,omitempty"`
}

type WellnessProgram struct {
	ID    string  `json:"id,omitempty" bson:"_id,omitempty"`
	Title string  `json:"title,omitempty" bson:"title,omitempty"`
	Price float64 `json:"price" bson:"price"`
}
