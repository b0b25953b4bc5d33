// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	careersfeature "github.com/eduplatform/campusgate/internal/app/features/careers"
	healthfeature "github.com/eduplatform/campusgate/internal/app/features/health"
	rolesfeature "github.com/eduplatform/campusgate/internal/app/features/roles"
	sessionfeature "github.com/eduplatform/campusgate/internal/app/features/session"
	usersfeature "github.com/eduplatform/campusgate/internal/app/features/users"
	careerstore "github.com/eduplatform/campusgate/internal/app/store/careers"
	profilestore "github.com/eduplatform/campusgate/internal/app/store/profiles"
	rolestore "github.com/eduplatform/campusgate/internal/app/store/roles"
	"github.com/eduplatform/campusgate/internal/app/system/auth"
	"github.com/eduplatform/campusgate/internal/app/system/identity"
	"github.com/eduplatform/campusgate/internal/app/system/roles"
	"github.com/eduplatform/campusgate/internal/app/system/timeouts"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup,
// and any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: any DB or backend clients bundled in DBDeps
//   - logger: the fully configured zap.Logger for this app
//
// CampusGate wires the stores into the role engine, creates the session
// manager and OIDC verifier, applies session middleware, and mounts the
// JSON feature routers: auth, users, roles, careers, and health.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionTTL, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Set up the UserFetcher so LoadSessionUser fetches fresh role state
	// on each request. Grants and revocations take effect immediately
	// without reissuing the cookie.
	sessionMgr.SetUserFetcher(rolestore.NewFetcher(deps.MongoDatabase))

	// OIDC discovery runs once here; a provider outage at boot is a
	// hard startup failure rather than a latent 401 storm.
	discoveryCtx, cancel := context.WithTimeout(context.Background(), timeouts.Medium())
	defer cancel()
	verifier, err := identity.NewVerifier(discoveryCtx, appCfg.OIDCIssuerURL, appCfg.OIDCClientID, appCfg.OIDCClockSkew, logger)
	if err != nil {
		logger.Error("OIDC verifier init failed", zap.Error(err))
		return nil, err
	}

	records := rolestore.New(deps.MongoDatabase)
	registry := careerstore.New(deps.MongoDatabase)
	profiles := profilestore.New(deps.MongoDatabase)
	engine := roles.NewEngine(records, registry, logger)

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if logged in.
	// This makes the current user available to all handlers via auth.CurrentUser(r).
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Authentication: login, logout, refresh
	sessionHandler := sessionfeature.NewHandler(verifier, sessionMgr, engine, profiles,
		appCfg.OIDCTokenURL, appCfg.OIDCClientID, appCfg.OIDCClientSecret, logger)
	r.Mount("/auth", sessionfeature.Routes(sessionHandler))

	// Everything below requires a signed-in caller.
	usersHandler := usersfeature.NewHandler(engine, profiles, records, sessionMgr, logger)
	rolesHandler := rolesfeature.NewHandler(engine, logger)
	careersHandler := careersfeature.NewHandler(engine, registry, logger)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSignedIn)
		r.Mount("/users", usersfeature.Routes(usersHandler))
		r.Mount("/roles", rolesfeature.Routes(rolesHandler))
		r.Mount("/careers", careersfeature.Routes(careersHandler))
	})

	return r, nil
}
