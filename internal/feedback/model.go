package feedback

import "time"

type Entry struct {
	ID        string    `json:"id" bson:"id"`
	ClientID  string    `json:"client_id,omitempty" bson:"client_id,omitempty"`
	Page      string    `json:"page,omitempty" bson:"page,omitempty"`
	Message   string    `json:"message" bson:"message"`
	Rating    int       `json:"rating,omitempty" bson:"rating,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
