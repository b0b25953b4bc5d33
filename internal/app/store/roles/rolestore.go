// internal/app/store/roles/rolestore.go
package rolestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/eduplatform/campusgate/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store manages the `roles` collection: one role record per uid.
//
// Writes are field-level merges (only the fields an update names are
// touched), so concurrent writers for *different* uids never interfere.
// Concurrent read-modify-write for the same uid can still race; the
// role engine owns invariant preservation across that window.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("roles")}
}

// DefaultRecord is the synthesized state for an identity with no stored
// role document: a plain student with no admin careers.
func DefaultRecord(uid string) models.RoleRecord {
	return models.RoleRecord{
		UID:          uid,
		Roles:        []string{models.RoleStudent},
		AdminCareers: []string{},
	}
}

// Get loads the role record for uid. When no document exists it returns
// (DefaultRecord(uid), false, nil): absence is a valid state meaning
// "new user", never an error.
func (s *Store) Get(ctx context.Context, uid string) (models.RoleRecord, bool, error) {
	var rec models.RoleRecord
	err := s.c.FindOne(ctx, bson.M{"uid": uid}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return DefaultRecord(uid), false, nil
	}
	if err != nil {
		return models.RoleRecord{}, false, fmt.Errorf("get role record %q: %w", uid, err)
	}
	return rec, true, nil
}

// RecordUpdate names the fields a Put call merges into the stored
// record. Nil fields are left untouched; there is no way to write a
// field this struct does not name.
type RecordUpdate struct {
	Roles         *[]string
	AdminCareers  *[]string
	PlatformAdmin *bool
}

// Put merges the named fields into uid's record (creating it when
// absent), refreshing updated_at and setting created_at only on first
// insert.
func (s *Store) Put(ctx context.Context, uid string, upd RecordUpdate) error {
	now := time.Now().UTC()
	set := bson.M{
		"uid":        uid,
		"updated_at": now,
	}
	if upd.Roles != nil {
		set["roles"] = *upd.Roles
	}
	if upd.AdminCareers != nil {
		set["admin_careers"] = *upd.AdminCareers
	}
	if upd.PlatformAdmin != nil {
		set["platform_admin"] = *upd.PlatformAdmin
	}

	_, err := s.c.UpdateOne(ctx,
		bson.M{"uid": uid},
		bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	if wafflemongo.IsDup(err) {
		// Raced another upsert on the unique uid index; the document
		// exists now, merge into it.
		_, err = s.c.UpdateOne(ctx, bson.M{"uid": uid}, bson.M{"$set": set})
	}
	if err != nil {
		return fmt.Errorf("put role record %q: %w", uid, err)
	}
	return nil
}

// Delete removes uid's role record. Returns the number of documents
// deleted (0 or 1). Used only by the account-cleanup path; the role
// engine itself never hard-deletes records.
func (s *Store) Delete(ctx context.Context, uid string) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"uid": uid})
	if err != nil {
		return 0, fmt.Errorf("delete role record %q: %w", uid, err)
	}
	return res.DeletedCount, nil
}

// ListAll returns every role record sorted by uid. Platform-admin
// listing scope.
func (s *Store) ListAll(ctx context.Context) ([]models.RoleRecord, error) {
	return s.list(ctx, bson.M{})
}

// ListVisibleTo returns the records a career-scoped admin may see:
// every record without the admin role, plus every admin sharing at
// least one of the given careers. Sorted by uid.
func (s *Store) ListVisibleTo(ctx context.Context, careers []string) ([]models.RoleRecord, error) {
	if careers == nil {
		careers = []string{}
	}
	filter := bson.M{"$or": bson.A{
		bson.M{"roles": bson.M{"$ne": models.RoleAdmin}},
		bson.M{"admin_careers": bson.M{"$in": careers}},
	}}
	return s.list(ctx, filter)
}

func (s *Store) list(ctx context.Context, filter bson.M) ([]models.RoleRecord, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "uid", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list role records: %w", err)
	}
	defer cur.Close(ctx)

	var recs []models.RoleRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("decode role records: %w", err)
	}
	return recs, nil
}
