package bootstrap

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/eduplatform/campusgate/internal/domain/models"
	"github.com/eduplatform/campusgate/internal/testutil"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func TestEnsurePlatformAdmin_CreatesNew(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)

	deps := DBDeps{MongoDatabase: db}

	if err := ensurePlatformAdmin(ctx, deps, "bootstrap-uid", testLogger()); err != nil {
		t.Fatalf("ensurePlatformAdmin failed: %v", err)
	}

	var rec models.RoleRecord
	err := db.Collection("roles").FindOne(ctx, bson.M{"uid": "bootstrap-uid"}).Decode(&rec)
	if err != nil {
		t.Fatalf("failed to find created role record: %v", err)
	}

	if !rec.PlatformAdmin {
		t.Error("expected platform_admin true")
	}
	if !rec.HasRole(models.RoleStudent) {
		t.Errorf("expected student role, got %v", rec.Roles)
	}
}

func TestEnsurePlatformAdmin_PromotesExisting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	fixtures := testutil.NewFixtures(t, db)

	existing := fixtures.CreateCareerAdmin(ctx, "existing-uid", "SIS")

	deps := DBDeps{MongoDatabase: db}
	if err := ensurePlatformAdmin(ctx, deps, existing.UID, testLogger()); err != nil {
		t.Fatalf("ensurePlatformAdmin failed: %v", err)
	}

	var rec models.RoleRecord
	err := db.Collection("roles").FindOne(ctx, bson.M{"uid": existing.UID}).Decode(&rec)
	if err != nil {
		t.Fatalf("failed to find role record: %v", err)
	}

	if !rec.PlatformAdmin {
		t.Error("expected platform_admin true after promotion")
	}
	if !rec.AdministersCareer("SIS") {
		t.Errorf("expected existing career scope kept, got %v", rec.AdminCareers)
	}
}

func TestEnsurePlatformAdmin_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)

	deps := DBDeps{MongoDatabase: db}
	for i := 0; i < 2; i++ {
		if err := ensurePlatformAdmin(ctx, deps, "repeat-uid", testLogger()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	n, err := db.Collection("roles").CountDocuments(ctx, bson.M{"uid": "repeat-uid"})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("role records: got %d, want 1", n)
	}
}
