// internal/domain/models/career.go
package models

import "time"

// Career is an organizational unit ("carrera") with its own admin
// scope. Code is the canonical key: trimmed and uppercased before any
// lookup or write, so " sis " and "SIS" are the same career.
type Career struct {
	Code      string    `bson:"code" json:"code"`
	Name      string    `bson:"name,omitempty" json:"name,omitempty"`
	CreatedAt time.Time `bson:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}
