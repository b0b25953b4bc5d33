// Package identity verifies identity-provider ID tokens. The service
// never derives roles from token claims — the token is only an
// identity oracle; roles live in the document store.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
)

// ErrInvalidToken is returned when an ID token fails verification,
// including after the one-shot clock-skew retry.
var ErrInvalidToken = errors.New("invalid ID token")

// Identity is the verified subject a token resolves to.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}

// TokenVerifier is the slice of this package handlers depend on; tests
// substitute a fake.
type TokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*Identity, error)
}

// Verifier validates ID tokens against a single OIDC issuer.
type Verifier struct {
	strict *gooidc.IDTokenVerifier
	skewed *gooidc.IDTokenVerifier
	skew   time.Duration
	log    *zap.Logger
}

// NewVerifier discovers the issuer's signing keys and builds a
// verifier for tokens issued to clientID. skew bounds the one-shot
// clock-skew retry; zero disables it.
func NewVerifier(ctx context.Context, issuerURL, clientID string, skew time.Duration, logger *zap.Logger) (*Verifier, error) {
	if issuerURL == "" {
		return nil, errors.New("identity issuer URL is required")
	}
	if clientID == "" {
		return nil, errors.New("identity client ID is required")
	}

	provider, err := gooidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery for %q: %w", issuerURL, err)
	}

	v := &Verifier{
		strict: provider.Verifier(&gooidc.Config{ClientID: clientID}),
		skew:   skew,
		log:    logger,
	}
	if skew > 0 {
		// Evaluated against a clock pushed forward by the allowed skew,
		// so a token minted marginally in our future still verifies.
		v.skewed = provider.Verifier(&gooidc.Config{
			ClientID: clientID,
			Now:      func() time.Time { return time.Now().Add(skew) },
		})
	}
	return v, nil
}

// Verify checks the raw ID token and extracts the subject identity.
// A token rejected for being used too early is retried once against
// the skew-tolerant verifier before the failure surfaces.
func (v *Verifier) Verify(ctx context.Context, rawIDToken string) (*Identity, error) {
	tok, err := v.strict.Verify(ctx, rawIDToken)
	if err != nil && v.skewed != nil && isTooEarly(err) {
		v.log.Warn("ID token used too early, retrying with clock-skew tolerance",
			zap.Duration("skew", v.skew), zap.Error(err))
		tok, err = v.skewed.Verify(ctx, rawIDToken)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var claims struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := tok.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: decode claims: %v", ErrInvalidToken, err)
	}

	return &Identity{
		UID:         tok.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
		PhotoURL:    claims.Picture,
	}, nil
}

// isTooEarly recognizes go-oidc's not-before rejection, the one
// failure a forward-shifted clock can cure. The library exports a
// concrete type only for expiry; a token that is not yet valid
// surfaces as a plain error reading "oidc: current time ... before
// the nbf (not before) time: ...", so that message is the anchor.
// Expired tokens never qualify for the retry.
func isTooEarly(err error) bool {
	var expired *gooidc.TokenExpiredError
	if errors.As(err, &expired) {
		return false
	}
	return strings.Contains(err.Error(), "before the nbf (not before) time")
}
