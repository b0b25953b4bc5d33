package testutil

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/eduplatform/campusgate/internal/domain/models"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// TestContext returns a context with a deadline suitable for store tests.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// SetupTestDB connects to the Mongo instance named by CAMPUSGATE_TEST_MONGO_URI
// and returns a throwaway database dropped at test cleanup. Tests that need a
// live store call this and are skipped when the variable is unset.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("CAMPUSGATE_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("CAMPUSGATE_TEST_MONGO_URI not set; skipping store test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect test mongo: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Fatalf("ping test mongo: %v", err)
	}

	db := client.Database("campusgate_test_" + time.Now().UTC().Format("20060102150405"))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateRoleRecord inserts a role record with the given shape.
func (f *Fixtures) CreateRoleRecord(ctx context.Context, uid string, roles, careers []string, platformAdmin bool) models.RoleRecord {
	f.t.Helper()

	now := time.Now().UTC()
	rec := models.RoleRecord{
		UID:           uid,
		Roles:         roles,
		AdminCareers:  careers,
		PlatformAdmin: platformAdmin,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := f.db.Collection("roles").InsertOne(ctx, rec); err != nil {
		f.t.Fatalf("failed to create test role record: %v", err)
	}
	return rec
}

// CreateStudent inserts a role record carrying only the default student role.
func (f *Fixtures) CreateStudent(ctx context.Context, uid string) models.RoleRecord {
	f.t.Helper()
	return f.CreateRoleRecord(ctx, uid, []string{"student"}, []string{}, false)
}

// CreateCareerAdmin inserts a role record administering the given careers.
func (f *Fixtures) CreateCareerAdmin(ctx context.Context, uid string, careers ...string) models.RoleRecord {
	f.t.Helper()
	return f.CreateRoleRecord(ctx, uid, []string{"admin", "student"}, careers, false)
}

// CreatePlatformAdmin inserts a role record with platform-wide authority.
func (f *Fixtures) CreatePlatformAdmin(ctx context.Context, uid string) models.RoleRecord {
	f.t.Helper()
	return f.CreateRoleRecord(ctx, uid, []string{"student"}, []string{}, true)
}

// CreateCareer inserts a career unit with the given canonical code.
func (f *Fixtures) CreateCareer(ctx context.Context, code, name string) models.Career {
	f.t.Helper()

	now := time.Now().UTC()
	career := models.Career{
		Code:      code,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("careers").InsertOne(ctx, career); err != nil {
		f.t.Fatalf("failed to create test career: %v", err)
	}
	return career
}

// CreateProfile inserts a profile document for the given uid.
func (f *Fixtures) CreateProfile(ctx context.Context, uid, email, displayName string) models.Profile {
	f.t.Helper()

	now := time.Now().UTC()
	profile := models.Profile{
		UID:           uid,
		Email:         email,
		DisplayName:   displayName,
		DisplayNameCI: text.Fold(displayName),
		Provider:      "password",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := f.db.Collection("profiles").InsertOne(ctx, profile); err != nil {
		f.t.Fatalf("failed to create test profile: %v", err)
	}
	return profile
}
