// internal/app/store/profiles/profilestore_test.go
package profilestore_test

import (
	"testing"

	profilestore "github.com/eduplatform/campusgate/internal/app/store/profiles"
	"github.com/eduplatform/campusgate/internal/testutil"
)

func strPtr(s string) *string { return &s }

func TestUpsertInsertsAndMerges(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	store := profilestore.New(db)

	p, err := store.Upsert(ctx, "u1", profilestore.ProfileUpdate{
		Email:       strPtr("u1@test.com"),
		DisplayName: strPtr("José Martínez"),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if p.Email != "u1@test.com" || p.DisplayName != "José Martínez" {
		t.Errorf("inserted profile: %+v", p)
	}
	if p.DisplayNameCI == "" || p.DisplayNameCI == p.DisplayName {
		t.Errorf("display_name_ci not folded: %q", p.DisplayNameCI)
	}

	// Merging a photo must not disturb existing fields.
	p, err = store.Upsert(ctx, "u1", profilestore.ProfileUpdate{PhotoURL: strPtr("https://cdn.test/u1.png")})
	if err != nil {
		t.Fatalf("merge upsert: %v", err)
	}
	if p.Email != "u1@test.com" || p.PhotoURL != "https://cdn.test/u1.png" {
		t.Errorf("merged profile: %+v", p)
	}
}

func TestGetAbsentReturnsNil(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	store := profilestore.New(db)

	p, err := store.Get(ctx, "nobody")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p != nil {
		t.Errorf("profile: got %+v, want nil", p)
	}
}

func TestGetMany(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	store := profilestore.New(db)
	fixtures := testutil.NewFixtures(t, db)

	fixtures.CreateProfile(ctx, "u1", "u1@test.com", "User One")
	fixtures.CreateProfile(ctx, "u2", "u2@test.com", "User Two")

	got, err := store.GetMany(ctx, []string{"u1", "u2", "missing"})
	if err != nil {
		t.Fatalf("get many: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("profiles: got %d, want 2", len(got))
	}
	if got["u1"].DisplayName != "User One" {
		t.Errorf("u1 profile: %+v", got["u1"])
	}
	if _, ok := got["missing"]; ok {
		t.Error("missing uid present in result")
	}
}

func TestGetManyEmptyInput(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	store := profilestore.New(db)

	got, err := store.GetMany(ctx, nil)
	if err != nil {
		t.Fatalf("get many: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("profiles: got %d, want 0", len(got))
	}
}

func TestDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	store := profilestore.New(db)
	fixtures := testutil.NewFixtures(t, db)

	fixtures.CreateProfile(ctx, "u1", "u1@test.com", "User One")

	n, err := store.Delete(ctx, "u1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted: got %d, want 1", n)
	}

	p, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if p != nil {
		t.Error("profile still present after delete")
	}
}
