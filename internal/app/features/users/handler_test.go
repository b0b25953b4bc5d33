// internal/app/features/users/handler_test.go
package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	profilestore "github.com/eduplatform/campusgate/internal/app/store/profiles"
	"github.com/eduplatform/campusgate/internal/app/system/auth"
	rolesys "github.com/eduplatform/campusgate/internal/app/system/roles"
	"github.com/eduplatform/campusgate/internal/domain/models"
	"github.com/eduplatform/campusgate/internal/testutil"
)

type memProfiles struct {
	profiles map[string]models.Profile
	err      error
}

func newMemProfiles() *memProfiles {
	return &memProfiles{profiles: make(map[string]models.Profile)}
}

func (m *memProfiles) Get(ctx context.Context, uid string) (*models.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.profiles[uid]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memProfiles) GetMany(ctx context.Context, uids []string) (map[string]models.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]models.Profile)
	for _, uid := range uids {
		if p, ok := m.profiles[uid]; ok {
			out[uid] = p
		}
	}
	return out, nil
}

func (m *memProfiles) Upsert(ctx context.Context, uid string, upd profilestore.ProfileUpdate) (models.Profile, error) {
	if m.err != nil {
		return models.Profile{}, m.err
	}
	p := m.profiles[uid]
	p.UID = uid
	if upd.Email != nil {
		p.Email = *upd.Email
	}
	if upd.DisplayName != nil {
		p.DisplayName = *upd.DisplayName
	}
	if upd.PhotoURL != nil {
		p.PhotoURL = *upd.PhotoURL
	}
	if upd.PhoneNumber != nil {
		p.PhoneNumber = *upd.PhoneNumber
	}
	if upd.Provider != nil {
		p.Provider = *upd.Provider
	}
	m.profiles[uid] = p
	return p, nil
}

func (m *memProfiles) Delete(ctx context.Context, uid string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	if _, ok := m.profiles[uid]; !ok {
		return 0, nil
	}
	delete(m.profiles, uid)
	return 1, nil
}

func newTestHandler(t *testing.T) (*Handler, *testutil.MemRecordStore, *memProfiles) {
	t.Helper()
	records := testutil.NewMemRecordStore()
	profiles := newMemProfiles()
	engine := rolesys.NewEngine(records, testutil.NewMemCareerRegistry(), zap.NewNop())
	mgr, err := auth.NewSessionManager("0123456789abcdef0123456789abcdef", "campusgate_test", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("new session manager: %v", err)
	}
	return NewHandler(engine, profiles, records2deleter{records}, mgr, zap.NewNop()), records, profiles
}

// records2deleter adapts the in-memory record store to RecordDeleter.
type records2deleter struct {
	records *testutil.MemRecordStore
}

func (d records2deleter) Delete(ctx context.Context, uid string) (int64, error) {
	if d.records.Err != nil {
		return 0, d.records.Err
	}
	if _, ok := d.records.Records[uid]; !ok {
		return 0, nil
	}
	delete(d.records.Records, uid)
	return 1, nil
}

func seedUser(records *testutil.MemRecordStore, user testutil.TestUser) {
	records.Seed(models.RoleRecord{
		UID:           user.UID,
		Roles:         user.Roles,
		AdminCareers:  user.AdminCareers,
		PlatformAdmin: user.PlatformAdmin,
	})
}

func TestServeMeDerivedView(t *testing.T) {
	h, records, profiles := newTestHandler(t)
	admin := testutil.CareerAdminUser("SIS")
	seedUser(records, admin)
	profiles.profiles[admin.UID] = models.Profile{
		UID:         admin.UID,
		Email:       "admin@test.com",
		DisplayName: "Test Admin",
		Career:      "eng",
	}

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/users/me", admin)
	rec := testutil.NewRecorder()
	h.ServeMe(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)

	var got meResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Role != "admin" || !got.IsAdmin || got.IsPlatformAdmin {
		t.Errorf("derived flags: role=%q is_admin=%v is_platform_admin=%v", got.Role, got.IsAdmin, got.IsPlatformAdmin)
	}
	// Legacy profile career merges in after the record's careers.
	want := []string{"SIS", "ENG"}
	if len(got.Careers) != len(want) || got.Careers[0] != want[0] || got.Careers[1] != want[1] {
		t.Errorf("careers: got %v, want %v", got.Careers, want)
	}
	if got.Email != "admin@test.com" {
		t.Errorf("email: got %q", got.Email)
	}
}

func TestServeMeLegacyCareerNotDuplicated(t *testing.T) {
	h, records, profiles := newTestHandler(t)
	admin := testutil.CareerAdminUser("SIS")
	seedUser(records, admin)
	profiles.profiles[admin.UID] = models.Profile{UID: admin.UID, Career: "sis"}

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/users/me", admin)
	rec := testutil.NewRecorder()
	h.ServeMe(rec.ResponseRecorder, req)

	var got meResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got.Careers) != 1 || got.Careers[0] != "SIS" {
		t.Errorf("careers: got %v, want [SIS]", got.Careers)
	}
}

func TestServeMeWithoutProfile(t *testing.T) {
	h, records, _ := newTestHandler(t)
	student := testutil.StudentUser()
	seedUser(records, student)

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/users/me", student)
	rec := testutil.NewRecorder()
	h.ServeMe(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)

	var got meResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Role != "student" || got.IsAdmin {
		t.Errorf("derived flags: role=%q is_admin=%v", got.Role, got.IsAdmin)
	}
	if got.Careers == nil || len(got.Careers) != 0 {
		t.Errorf("careers: got %v, want empty list", got.Careers)
	}
}

func TestServeListStudentForbidden(t *testing.T) {
	h, records, _ := newTestHandler(t)
	student := testutil.StudentUser()
	seedUser(records, student)

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/users", student)
	rec := testutil.NewRecorder()
	h.ServeList(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusForbidden)
}

func TestServeListScopedAdmin(t *testing.T) {
	h, records, profiles := newTestHandler(t)
	admin := testutil.CareerAdminUser("SIS")
	peer := testutil.CareerAdminUser("SIS")
	outsider := testutil.CareerAdminUser("ENG")
	student := testutil.StudentUser()
	for _, u := range []testutil.TestUser{admin, peer, outsider, student} {
		seedUser(records, u)
	}
	profiles.profiles[student.UID] = models.Profile{UID: student.UID, DisplayName: "A Student"}

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/users", admin)
	rec := testutil.NewRecorder()
	h.ServeList(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)

	var got struct {
		Users []listItem `json:"users"`
		Count int        `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Count != 3 {
		t.Fatalf("count: got %d, want 3 (admin, peer, student)", got.Count)
	}
	for _, item := range got.Users {
		if item.UID == outsider.UID {
			t.Errorf("outside-scope admin %q leaked into listing", outsider.UID)
		}
		if item.UID == student.UID && item.DisplayName != "A Student" {
			t.Errorf("profile join: got display name %q", item.DisplayName)
		}
	}
}

func TestServeListPlatformAdminSeesAll(t *testing.T) {
	h, records, _ := newTestHandler(t)
	pa := testutil.PlatformAdminUser()
	outsider := testutil.CareerAdminUser("ENG")
	seedUser(records, pa)
	seedUser(records, outsider)

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/users", pa)
	rec := testutil.NewRecorder()
	h.ServeList(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)

	var got struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Count != 2 {
		t.Errorf("count: got %d, want 2", got.Count)
	}
}

func TestServeGetProfileNotFound(t *testing.T) {
	h, records, _ := newTestHandler(t)
	student := testutil.StudentUser()
	seedUser(records, student)

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/users/me/profile", student)
	rec := testutil.NewRecorder()
	h.ServeGetProfile(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusNotFound)
}

func TestServeUpdateProfileSanitizesDisplayName(t *testing.T) {
	h, records, profiles := newTestHandler(t)
	student := testutil.StudentUser()
	seedUser(records, student)

	body := `{"display_name":"  <script>x</script>Jane Doe  "}`
	req := httptest.NewRequest(http.MethodPost, "/users/me/profile", strings.NewReader(body))
	req = testutil.WithUser(req, student)
	rec := testutil.NewRecorder()
	h.ServeUpdateProfile(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)

	got := profiles.profiles[student.UID]
	if got.DisplayName != "Jane Doe" {
		t.Errorf("display_name: got %q, want %q", got.DisplayName, "Jane Doe")
	}
}

func TestServeUpdateProfileRejectsEmptyBody(t *testing.T) {
	h, records, _ := newTestHandler(t)
	student := testutil.StudentUser()
	seedUser(records, student)

	req := httptest.NewRequest(http.MethodPost, "/users/me/profile", strings.NewReader(`{}`))
	req = testutil.WithUser(req, student)
	rec := testutil.NewRecorder()
	h.ServeUpdateProfile(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestServeUpdateProfilePartialUpdate(t *testing.T) {
	h, records, profiles := newTestHandler(t)
	student := testutil.StudentUser()
	seedUser(records, student)
	profiles.profiles[student.UID] = models.Profile{UID: student.UID, DisplayName: "Keep Me", PhotoURL: "old"}

	req := httptest.NewRequest(http.MethodPost, "/users/me/profile", strings.NewReader(`{"photo_url":"new"}`))
	req = testutil.WithUser(req, student)
	rec := testutil.NewRecorder()
	h.ServeUpdateProfile(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)

	got := profiles.profiles[student.UID]
	if got.DisplayName != "Keep Me" || got.PhotoURL != "new" {
		t.Errorf("profile after partial update: %+v", got)
	}
}

func TestServeDeleteRemovesRecordAndProfile(t *testing.T) {
	h, records, profiles := newTestHandler(t)
	student := testutil.StudentUser()
	seedUser(records, student)
	profiles.profiles[student.UID] = models.Profile{UID: student.UID}

	req := testutil.NewAuthenticatedRequest(http.MethodDelete, "/users/me", student)
	rec := testutil.NewRecorder()
	h.ServeDelete(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)

	if _, ok := records.Records[student.UID]; ok {
		t.Error("role record still present after delete")
	}
	if _, ok := profiles.profiles[student.UID]; ok {
		t.Error("profile still present after delete")
	}
}

func TestServeDeleteBestEffortOnStoreFailure(t *testing.T) {
	h, _, profiles := newTestHandler(t)
	student := testutil.StudentUser()
	profiles.err = errors.New("store down")

	req := testutil.NewAuthenticatedRequest(http.MethodDelete, "/users/me", student)
	rec := testutil.NewRecorder()
	h.ServeDelete(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)
}
