package validators

import "go.mongodb.org/mongo-driver/bson"

var ReservationLockValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"owner",
			"expires_at",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"owner": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"expires_at": bson.M{
				"bsonType": "date",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
