// internal/domain/models/rolerecord.go
package models

import (
	"slices"
	"time"
)

// Role tags stored in RoleRecord.Roles.
//
// RoleTeacher is reserved for future use; no current authorization
// logic grants or checks it.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
)

// RoleRecord is the persisted authorization state for one identity,
// keyed by the identity provider's uid. One document per uid in the
// `roles` collection.
//
// Invariants (maintained by the role engine, not by this struct):
//   - Roles always contains "student".
//   - A non-empty AdminCareers implies "admin" is in Roles.
//   - PlatformAdmin is independent of Roles/AdminCareers.
type RoleRecord struct {
	UID           string    `bson:"uid" json:"uid"`
	Roles         []string  `bson:"roles" json:"roles"`
	AdminCareers  []string  `bson:"admin_careers" json:"admin_careers"`
	PlatformAdmin bool      `bson:"platform_admin" json:"platform_admin"`
	CreatedAt     time.Time `bson:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt     time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// HasRole reports whether the record carries the given role tag.
func (r RoleRecord) HasRole(role string) bool {
	return slices.Contains(r.Roles, role)
}

// IsAdmin reports whether the record carries the "admin" role tag.
// Note this is about the tag itself: a legacy record may carry "admin"
// with no admin careers and no platform_admin, and still reads as admin
// (with vacuous authority). Such records are not self-healed on read.
func (r RoleRecord) IsAdmin() bool {
	return r.HasRole(RoleAdmin)
}

// AdministersCareer reports whether the record lists the given
// (canonical) career code in AdminCareers.
func (r RoleRecord) AdministersCareer(code string) bool {
	return slices.Contains(r.AdminCareers, code)
}

// EffectiveRole derives the single display role: "admin" when the
// admin tag is present, otherwise "student".
func (r RoleRecord) EffectiveRole() string {
	if r.IsAdmin() {
		return RoleAdmin
	}
	return RoleStudent
}
