// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"

	careerstore "github.com/eduplatform/campusgate/internal/app/store/careers"
	rolestore "github.com/eduplatform/campusgate/internal/app/store/roles"
	"github.com/eduplatform/campusgate/internal/app/system/roles"
	"github.com/eduplatform/campusgate/internal/app/system/timeouts"
)

// Startup runs one-time application initialization after DB connections
// and schema setup are complete, but before the HTTP handler is built.
// CampusGate uses it to mint the first platform admin on a fresh
// deployment.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.BootstrapAdminUID == "" {
		return nil
	}
	return ensurePlatformAdmin(ctx, deps, appCfg.BootstrapAdminUID, logger)
}

// ensurePlatformAdmin promotes uid to platform admin, creating its role
// record if needed. Idempotent across restarts.
func ensurePlatformAdmin(ctx context.Context, deps DBDeps, uid string, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	engine := roles.NewEngine(
		rolestore.New(deps.MongoDatabase),
		careerstore.New(deps.MongoDatabase),
		logger,
	)

	rec, err := engine.SetPlatformAdmin(ctx, uid, true)
	if err != nil {
		return fmt.Errorf("bootstrap platform admin %q: %w", uid, err)
	}
	logger.Info("bootstrap platform admin ensured",
		zap.String("uid", rec.UID))
	return nil
}
