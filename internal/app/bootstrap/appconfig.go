// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - CORS settings
//   - Request body size limits
//   - Database connection timeouts
//
// AppConfig is where everything specific to CampusGate lives: the role
// store connection, session cookie parameters, and the identity
// provider used to verify login tokens.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: campusgate-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionTTL    time.Duration // Session lifetime; the cookie max-age follows it

	// Identity provider (OIDC) configuration
	OIDCIssuerURL    string        // Issuer URL used for discovery and ID token verification
	OIDCClientID     string        // Audience the ID token must carry
	OIDCClientSecret string        // Client secret for the refresh grant
	OIDCTokenURL     string        // Token endpoint for the refresh grant (blank disables /auth/refresh)
	OIDCClockSkew    time.Duration // Tolerated clock skew when a token is rejected as issued in the future

	// BootstrapAdminUID, when set, is promoted to platform admin on
	// startup. Lets a fresh deployment mint its first administrator.
	BootstrapAdminUID string
}
