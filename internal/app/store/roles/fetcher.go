// internal/app/store/roles/fetcher.go
package rolestore

import (
	"context"

	"github.com/eduplatform/campusgate/internal/app/system/auth"
	"github.com/eduplatform/campusgate/internal/app/system/timeouts"
	"github.com/eduplatform/campusgate/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Fetcher implements auth.UserFetcher: it resolves the uid stored in
// the session cookie into a SessionUser with fresh role state on every
// request, so grants and revocations apply without re-login.
type Fetcher struct {
	roles    *mongo.Collection
	profiles *mongo.Collection
}

// NewFetcher creates a UserFetcher that queries the given database.
func NewFetcher(db *mongo.Database) *Fetcher {
	return &Fetcher{
		roles:    db.Collection("roles"),
		profiles: db.Collection("profiles"),
	}
}

// FetchUser loads uid's role record and profile display fields. A
// missing role record is a valid new-user state and yields the default
// student view; only an empty uid returns nil.
func (f *Fetcher) FetchUser(ctx context.Context, uid string) *auth.SessionUser {
	if uid == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	rec := DefaultRecord(uid)
	if err := f.roles.FindOne(ctx, bson.M{"uid": uid}).Decode(&rec); err != nil && err != mongo.ErrNoDocuments {
		// Store unavailable: fail closed rather than guess at roles.
		return nil
	}

	su := &auth.SessionUser{
		UID:           uid,
		Roles:         rec.Roles,
		AdminCareers:  rec.AdminCareers,
		PlatformAdmin: rec.PlatformAdmin,
	}
	if su.AdminCareers == nil {
		su.AdminCareers = []string{}
	}

	// Display fields are best-effort; a missing profile still yields a
	// usable session user.
	var p models.Profile
	proj := options.FindOne().SetProjection(bson.M{"email": 1, "display_name": 1})
	if err := f.profiles.FindOne(ctx, bson.M{"uid": uid}, proj).Decode(&p); err == nil {
		su.Email = p.Email
		su.DisplayName = p.DisplayName
	}

	return su
}
