package models

import "time"

// Client is a contact identity across events. A client is considered active
// while it owns at least one non-terminal event; no independent status field
// is persisted.
type Client struct {
	ID        string    `bson:"id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Email     string    `bson:"email" json:"email"` // normalized, lowercase
	Language  string    `bson:"language" json:"language"` // "en" or "de"
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
