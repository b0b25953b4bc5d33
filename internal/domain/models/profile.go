// internal/domain/models/profile.go
package models

import "time"

// Profile holds display fields for one identity, keyed by uid in the
// `profiles` collection. Profiles are materialized best-effort on
// login and are not part of the authorization invariants.
type Profile struct {
	UID           string `bson:"uid" json:"uid"`
	Email         string `bson:"email,omitempty" json:"email,omitempty"`
	DisplayName   string `bson:"display_name,omitempty" json:"display_name,omitempty"`
	DisplayNameCI string `bson:"display_name_ci,omitempty" json:"-"` // lowercase, diacritics-stripped
	PhotoURL      string `bson:"photo_url,omitempty" json:"photo_url,omitempty"`
	PhoneNumber   string `bson:"phone_number,omitempty" json:"phone_number,omitempty"`
	Provider      string `bson:"provider,omitempty" json:"provider,omitempty"`

	// Career is a legacy single-career field from before admin_careers
	// existed. It is merged (deduplicated) into the derived careers
	// view on /users/me but never written by current code.
	Career string `bson:"career,omitempty" json:"career,omitempty"`

	CreatedAt time.Time `bson:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}
