package validators

import "go.mongodb.org/mongo-driver/bson"

var OccupancyValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"room_id",
			"date",
			"booking_id",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"room_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"date": bson.M{
				"bsonType": "date",
			},

			"booking_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
