// internal/app/features/careers/handler_test.go
package careers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	rolesys "github.com/eduplatform/campusgate/internal/app/system/roles"
	"github.com/eduplatform/campusgate/internal/domain/models"
	"github.com/eduplatform/campusgate/internal/testutil"
)

func newTestHandler() (*Handler, *testutil.MemRecordStore, *testutil.MemCareerRegistry) {
	records := testutil.NewMemRecordStore()
	registry := testutil.NewMemCareerRegistry()
	engine := rolesys.NewEngine(records, registry, zap.NewNop())
	return NewHandler(engine, registry, zap.NewNop()), records, registry
}

func seedUser(records *testutil.MemRecordStore, user testutil.TestUser) {
	records.Seed(models.RoleRecord{
		UID:           user.UID,
		Roles:         user.Roles,
		AdminCareers:  user.AdminCareers,
		PlatformAdmin: user.PlatformAdmin,
	})
}

func TestServeListStudentForbidden(t *testing.T) {
	h, records, _ := newTestHandler()
	student := testutil.StudentUser()
	seedUser(records, student)

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/careers", student)
	rec := testutil.NewRecorder()
	h.ServeList(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusForbidden)
}

func TestServeListCareerAdminAllowed(t *testing.T) {
	h, records, registry := newTestHandler()
	admin := testutil.CareerAdminUser("SIS")
	seedUser(records, admin)
	registry.Careers["SIS"] = models.Career{Code: "SIS", Name: "Information Systems"}
	registry.Careers["ENG"] = models.Career{Code: "ENG", Name: "Engineering"}

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/careers", admin)
	rec := testutil.NewRecorder()
	h.ServeList(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)

	var got struct {
		Careers []models.Career `json:"careers"`
		Count   int             `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Count != 2 {
		t.Fatalf("count: got %d, want 2", got.Count)
	}
	// Sorted by code.
	if got.Careers[0].Code != "ENG" || got.Careers[1].Code != "SIS" {
		t.Errorf("order: got %q, %q", got.Careers[0].Code, got.Careers[1].Code)
	}
}

func TestServeCreatePlatformOnly(t *testing.T) {
	h, records, registry := newTestHandler()
	admin := testutil.CareerAdminUser("SIS")
	seedUser(records, admin)

	req := httptest.NewRequest(http.MethodPost, "/careers", strings.NewReader(`{"code":"ENG","name":"Engineering"}`))
	req = testutil.WithUser(req, admin)
	rec := testutil.NewRecorder()
	h.ServeCreate(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusForbidden)
	if _, ok := registry.Careers["ENG"]; ok {
		t.Error("career created despite forbidden caller")
	}
}

func TestServeCreateCanonicalizesCode(t *testing.T) {
	h, records, registry := newTestHandler()
	pa := testutil.PlatformAdminUser()
	seedUser(records, pa)

	req := httptest.NewRequest(http.MethodPost, "/careers", strings.NewReader(`{"code":" eng ","name":"Engineering"}`))
	req = testutil.WithUser(req, pa)
	rec := testutil.NewRecorder()
	h.ServeCreate(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)
	if _, ok := registry.Careers["ENG"]; !ok {
		t.Errorf("careers after create: %v, want ENG", registry.Careers)
	}
}

func TestServeCreateEmptyCodeRejected(t *testing.T) {
	h, records, _ := newTestHandler()
	pa := testutil.PlatformAdminUser()
	seedUser(records, pa)

	req := httptest.NewRequest(http.MethodPost, "/careers", strings.NewReader(`{"code":"   "}`))
	req = testutil.WithUser(req, pa)
	rec := testutil.NewRecorder()
	h.ServeCreate(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestServeCreateIdempotent(t *testing.T) {
	h, records, registry := newTestHandler()
	pa := testutil.PlatformAdminUser()
	seedUser(records, pa)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/careers", strings.NewReader(`{"code":"ENG","name":"Engineering"}`))
		req = testutil.WithUser(req, pa)
		rec := testutil.NewRecorder()
		h.ServeCreate(rec.ResponseRecorder, req)
		rec.AssertStatus(t, http.StatusOK)
	}
	if len(registry.Careers) != 1 {
		t.Errorf("careers: got %d entries, want 1", len(registry.Careers))
	}
}
