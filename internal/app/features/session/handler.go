// internal/app/features/session/handler.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/eduplatform/campusgate/internal/app/features/shared/respond"
	profilestore "github.com/eduplatform/campusgate/internal/app/store/profiles"
	"github.com/eduplatform/campusgate/internal/app/system/auth"
	"github.com/eduplatform/campusgate/internal/app/system/identity"
	"github.com/eduplatform/campusgate/internal/app/system/roles"
	"github.com/eduplatform/campusgate/internal/app/system/timeouts"
	"github.com/eduplatform/campusgate/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// ProfileUpserter is the slice of the profile store the login path
// needs for best-effort materialization.
type ProfileUpserter interface {
	Upsert(ctx context.Context, uid string, upd profilestore.ProfileUpdate) (models.Profile, error)
}

// Handler owns the /auth surface: login-or-register with a provider ID
// token, logout, and refresh-token passthrough.
type Handler struct {
	Verifier   identity.TokenVerifier
	SessionMgr *auth.SessionManager
	Engine     *roles.Engine
	Profiles   ProfileUpserter
	Log        *zap.Logger

	// Refresh-grant configuration (provider token endpoint). Blank
	// TokenURL disables /auth/refresh.
	TokenURL     string
	ClientID     string
	ClientSecret string
}

func NewHandler(
	verifier identity.TokenVerifier,
	sessionMgr *auth.SessionManager,
	engine *roles.Engine,
	profiles ProfileUpserter,
	tokenURL, clientID, clientSecret string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Verifier:     verifier,
		SessionMgr:   sessionMgr,
		Engine:       engine,
		Profiles:     profiles,
		TokenURL:     tokenURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Log:          logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/login                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

type loginRequest struct {
	IDToken string `json:"id_token"`
}

type loginResponse struct {
	OK        bool   `json:"ok"`
	UID       string `json:"uid"`
	ExpiresAt string `json:"expiresAt"`
}

// ServeLogin verifies a provider ID token, opens a session, guarantees
// the default student role, and materializes the display profile
// best-effort. Profile failure never fails the login.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IDToken == "" {
		respond.Error(w, http.StatusBadRequest, "id_token is required")
		return
	}

	ident, err := h.Verifier.Verify(r.Context(), req.IDToken)
	if err != nil {
		h.Log.Warn("ID token verification failed", zap.Error(err))
		respond.Error(w, http.StatusUnauthorized, "invalid ID token")
		return
	}

	if err := h.SessionMgr.SignIn(w, r, ident.UID); err != nil {
		h.Log.Error("session save failed", zap.Error(err), zap.String("uid", ident.UID))
		respond.Error(w, http.StatusInternalServerError, "could not create session")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := h.Engine.EnsureDefaultStudent(ctx, ident.UID); err != nil {
		h.Log.Error("default-student bootstrap failed", zap.Error(err), zap.String("uid", ident.UID))
		respond.Error(w, http.StatusServiceUnavailable, "role store unavailable")
		return
	}

	// Best-effort: the login stands even when the profile write fails.
	provider := "oidc"
	if _, err := h.Profiles.Upsert(ctx, ident.UID, profilestore.ProfileUpdate{
		Email:       &ident.Email,
		DisplayName: &ident.DisplayName,
		PhotoURL:    &ident.PhotoURL,
		Provider:    &provider,
	}); err != nil {
		h.Log.Warn("profile materialization failed, continuing",
			zap.Error(err), zap.String("uid", ident.UID))
	}

	expiresAt := time.Now().UTC().Add(h.SessionMgr.TTL())
	h.Log.Info("user logged in", zap.String("uid", ident.UID))

	respond.JSON(w, http.StatusOK, loginResponse{
		OK:        true,
		UID:       ident.UID,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/logout                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Warn("session clear failed", zap.Error(err))
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/refresh                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ServeRefresh exchanges a provider refresh token for fresh tokens via
// the standard refresh grant. Pure passthrough: no session state is
// touched.
func (h *Handler) ServeRefresh(w http.ResponseWriter, r *http.Request) {
	if h.TokenURL == "" {
		respond.Error(w, http.StatusServiceUnavailable, "token refresh not configured")
		return
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		respond.Error(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	conf := &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: h.TokenURL},
	}

	tok, err := conf.TokenSource(r.Context(), &oauth2.Token{RefreshToken: req.RefreshToken}).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			h.Log.Warn("refresh grant rejected", zap.Error(err))
			respond.Error(w, http.StatusBadRequest, "refresh token rejected")
			return
		}
		h.Log.Error("refresh grant failed", zap.Error(err))
		respond.Error(w, http.StatusBadGateway, "identity provider unavailable")
		return
	}

	idToken, _ := tok.Extra("id_token").(string)
	refreshToken := tok.RefreshToken
	if refreshToken == "" {
		refreshToken = req.RefreshToken
	}

	respond.JSON(w, http.StatusOK, map[string]any{
		"access_token":  tok.AccessToken,
		"id_token":      idToken,
		"refresh_token": refreshToken,
		"expires_in":    int(time.Until(tok.Expiry).Seconds()),
		"token_type":    tok.TokenType,
	})
}
