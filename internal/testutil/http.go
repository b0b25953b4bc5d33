package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/google/uuid"

	"github.com/eduplatform/campusgate/internal/app/system/auth"
)

// TestUser represents caller data for testing HTTP handlers.
type TestUser struct {
	UID           string
	Email         string
	DisplayName   string
	Roles         []string
	AdminCareers  []string
	PlatformAdmin bool
}

// StudentUser returns a TestUser with only the default student role.
func StudentUser() TestUser {
	return TestUser{
		UID:         uuid.NewString(),
		Email:       "student@test.com",
		DisplayName: "Test Student",
		Roles:       []string{"student"},
	}
}

// CareerAdminUser returns a TestUser that administers the given careers.
func CareerAdminUser(careers ...string) TestUser {
	return TestUser{
		UID:          uuid.NewString(),
		Email:        "admin@test.com",
		DisplayName:  "Test Admin",
		Roles:        []string{"admin", "student"},
		AdminCareers: careers,
	}
}

// PlatformAdminUser returns a TestUser with platform-wide authority.
func PlatformAdminUser() TestUser {
	return TestUser{
		UID:           uuid.NewString(),
		Email:         "platform@test.com",
		DisplayName:   "Test Platform Admin",
		Roles:         []string{"student"},
		PlatformAdmin: true,
	}
}

// WithUser adds a user to the request context for testing authenticated handlers.
// This bypasses the session middleware and injects the user directly.
func WithUser(r *http.Request, user TestUser) *http.Request {
	sessionUser := &auth.SessionUser{
		UID:           user.UID,
		Email:         user.Email,
		DisplayName:   user.DisplayName,
		Roles:         user.Roles,
		AdminCareers:  user.AdminCareers,
		PlatformAdmin: user.PlatformAdmin,
	}
	return auth.WithTestUser(r, sessionUser)
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewAuthenticatedRequest creates an HTTP request with a user in context.
func NewAuthenticatedRequest(method, target string, user TestUser) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return WithUser(req, user)
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d", r.Code, expected)
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}
