// internal/app/store/profiles/profilestore.go
package profilestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/eduplatform/campusgate/internal/app/system/normalize"
	"github.com/eduplatform/campusgate/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store manages the `profiles` collection: display fields for one
// identity per document, keyed by uid. Profile writes are outside the
// authorization invariants; login treats them as best-effort.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("profiles")}
}

// ProfileUpdate names the fields Upsert merges. Nil fields are left
// untouched in the stored document.
type ProfileUpdate struct {
	Email       *string
	DisplayName *string
	PhotoURL    *string
	PhoneNumber *string
	Provider    *string
}

// Upsert merges the named fields into uid's profile, refreshing
// updated_at and setting created_at only on first insert. Returns the
// stored profile after the merge.
func (s *Store) Upsert(ctx context.Context, uid string, upd ProfileUpdate) (models.Profile, error) {
	now := time.Now().UTC()
	set := bson.M{
		"uid":        uid,
		"updated_at": now,
	}
	if upd.Email != nil {
		set["email"] = normalize.Email(*upd.Email)
	}
	if upd.DisplayName != nil {
		name := normalize.Name(*upd.DisplayName)
		set["display_name"] = name
		set["display_name_ci"] = text.Fold(name)
	}
	if upd.PhotoURL != nil {
		set["photo_url"] = *upd.PhotoURL
	}
	if upd.PhoneNumber != nil {
		set["phone_number"] = *upd.PhoneNumber
	}
	if upd.Provider != nil {
		set["provider"] = *upd.Provider
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var p models.Profile
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"uid": uid},
		bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"created_at": now},
		},
		opts,
	).Decode(&p)
	if wafflemongo.IsDup(err) {
		err = s.c.FindOneAndUpdate(ctx, bson.M{"uid": uid}, bson.M{"$set": set}, opts).Decode(&p)
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("upsert profile %q: %w", uid, err)
	}
	return p, nil
}

// Get loads uid's profile. Returns (nil, nil) when none exists.
func (s *Store) Get(ctx context.Context, uid string) (*models.Profile, error) {
	var p models.Profile
	err := s.c.FindOne(ctx, bson.M{"uid": uid}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %q: %w", uid, err)
	}
	return &p, nil
}

// Delete removes uid's profile. Returns the number of documents
// deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, uid string) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"uid": uid})
	if err != nil {
		return 0, fmt.Errorf("delete profile %q: %w", uid, err)
	}
	return res.DeletedCount, nil
}

// GetMany loads the profiles for the given uids, keyed by uid. Absent
// uids are simply missing from the map.
func (s *Store) GetMany(ctx context.Context, uids []string) (map[string]models.Profile, error) {
	if len(uids) == 0 {
		return map[string]models.Profile{}, nil
	}

	cur, err := s.c.Find(ctx, bson.M{"uid": bson.M{"$in": uids}})
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer cur.Close(ctx)

	out := make(map[string]models.Profile, len(uids))
	for cur.Next(ctx) {
		var p models.Profile
		if err := cur.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
		out[p.UID] = p
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return out, nil
}
