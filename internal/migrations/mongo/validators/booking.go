package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"reference",
			"guest_name",
			"guest_email",
			"guests",
			"allocated_rooms",
			"check_in",
			"check_out",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"reference": bson.M{
				"bsonType":  "string",
				"minLength": 4,
				"maxLength": 20,
			},

			"guest_name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 120,
			},

			"guest_email": bson.M{
				"bsonType":  "string",
				"minLength": 3,
				"maxLength": 254,
			},

			"guests": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  40,
			},

			"allocated_rooms": bson.M{
				"bsonType": "array",
				"minItems": 1,
				"items": bson.M{
					"bsonType": "string",
				},
			},

			"check_in": bson.M{
				"bsonType": "date",
			},

			"check_out": bson.M{
				"bsonType": "date",
			},

			"nights": bson.M{
				"bsonType": "int",
				"minimum":  0,
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

			"payment": bson.M{
				"bsonType": "object",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
