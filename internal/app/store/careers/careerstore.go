// internal/app/store/careers/careerstore.go
package careerstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/eduplatform/campusgate/internal/app/system/normalize"
	"github.com/eduplatform/campusgate/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrEmptyCode is returned when a career code is blank after
// canonicalization. It is rejected before any store access.
var ErrEmptyCode = errors.New("career code is required")

// Store manages the `careers` collection: one document per canonical
// career code.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("careers")}
}

// Ensure creates or merges a career, keyed by the canonical code.
// It is idempotent: repeated calls with the same inputs converge to the
// same stored state. A non-empty name is merged in; an empty name
// leaves any stored name untouched. UpdatedAt is refreshed on every
// call and CreatedAt is set only on first insert.
func (s *Store) Ensure(ctx context.Context, code, name string) (models.Career, error) {
	code = normalize.CareerCode(code)
	if code == "" {
		return models.Career{}, ErrEmptyCode
	}

	now := time.Now().UTC()
	set := bson.M{
		"code":       code,
		"updated_at": now,
	}
	if name = normalize.Name(name); name != "" {
		set["name"] = name
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var career models.Career
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"code": code},
		bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"created_at": now},
		},
		opts,
	).Decode(&career)
	if wafflemongo.IsDup(err) {
		// Two upserts raced on the unique code index; the document now
		// exists, so a second pass merges into it.
		err = s.c.FindOneAndUpdate(ctx,
			bson.M{"code": code},
			bson.M{"$set": set},
			opts,
		).Decode(&career)
	}
	if err != nil {
		return models.Career{}, fmt.Errorf("ensure career %q: %w", code, err)
	}
	return career, nil
}

// Get looks up a career by its exact code. Returns (nil, nil) when the
// career does not exist; absence is not an error.
func (s *Store) Get(ctx context.Context, code string) (*models.Career, error) {
	if code == "" {
		return nil, nil
	}
	var career models.Career
	err := s.c.FindOne(ctx, bson.M{"code": code}).Decode(&career)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get career %q: %w", code, err)
	}
	return &career, nil
}

// List returns every career sorted by code.
func (s *Store) List(ctx context.Context) ([]models.Career, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "code", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list careers: %w", err)
	}
	defer cur.Close(ctx)

	var careers []models.Career
	if err := cur.All(ctx, &careers); err != nil {
		return nil, fmt.Errorf("decode careers: %w", err)
	}
	return careers, nil
}
