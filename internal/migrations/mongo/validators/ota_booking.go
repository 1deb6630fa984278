package validators

import "go.mongodb.org/mongo-driver/bson"

var OTABookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"source",
			"external_id",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"source": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 50,
			},

			"external_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},

			"booking_id": bson.M{
				"bsonType": "string",
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"confirmed",
					"cancelled",
					"checked_out",
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
