package model

import "time"

type User struct {
	ID         string    `json:"id" bson:"_id"`
	Email      string    `json:"email" bson:"email"`
	SessionIDs []string  `json:"session_ids" bson:"sessionIds"`
	CreatedAt  time.Time `json:"created_at" bson:"createdAt"`
}
