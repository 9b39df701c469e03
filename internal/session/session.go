package session

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/bizchat/bizchat-api/internal/model"
	"github.com/bizchat/bizchat-api/internal/repository"
	"github.com/bizchat/bizchat-api/shared/auth"
)

// Claims are the session token claims. Subject is the provider-assigned
// user id; verified and role are derived from the user record so pages can
// route without querying the store themselves.
type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
	Role     string `json:"role,omitempty"`
}

// LifecycleState derives the account lifecycle position from the claims.
func (c *Claims) LifecycleState() model.LifecycleState {
	if c.Role == "" {
		return model.StateNeedsProfile
	}
	if !c.Verified {
		return model.StateNeedsVerification
	}
	return model.StateActive
}

// Screens the route guard can send a user to.
const (
	ScreenSignIn          = "/auth/signin"
	ScreenCompleteProfile = "/auth/complete-profile"
	ScreenVerify          = "/auth/verify"
	ScreenDashboard       = "/dashboard"
)

// ScreenFor maps a lifecycle state to the screen the user belongs on.
// Anything unrecognized, including an anonymous session, routes to sign-in.
func ScreenFor(state model.LifecycleState) string {
	switch state {
	case model.StateNeedsProfile:
		return ScreenCompleteProfile
	case model.StateNeedsVerification:
		return ScreenVerify
	case model.StateActive:
		return ScreenDashboard
	}
	return ScreenSignIn
}

// Issuer issues session tokens and rematerializes them on each
// authenticated request.
type Issuer struct {
	jwtAuth  auth.JWTAuthenticator
	userRepo repository.UserRepository
	issuer   string
	ttl      time.Duration
	logger   *zerolog.Logger
}

// NewIssuer creates a session issuer. The issuer name doubles as the token
// audience, matching how the JWTAuthenticator validates.
func NewIssuer(
	jwtAuth auth.JWTAuthenticator,
	userRepo repository.UserRepository,
	issuer string,
	ttl time.Duration,
	logger *zerolog.Logger,
) *Issuer {
	return &Issuer{
		jwtAuth:  jwtAuth,
		userRepo: userRepo,
		issuer:   issuer,
		ttl:      ttl,
		logger:   logger,
	}
}

// Issue signs a fresh session token for the user with the configured
// absolute lifetime.
func (i *Issuer) Issue(user *model.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.issuer},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Email:    user.Email,
		Verified: user.Verified,
		Role:     string(user.Role),
	}

	return i.jwtAuth.Generate(claims)
}

// Materialize validates a session token and refreshes its verified/role
// claims from the user record, so a verification completed in one request
// is visible on the next. The refreshed token keeps the original expiry;
// there is no sliding extension. A store read failure degrades to the
// token's last-known claims rather than failing the request.
func (i *Issuer) Materialize(ctx context.Context, tokenString string) (*Claims, string, error) {
	claims := &Claims{}
	if err := i.jwtAuth.Validate(tokenString, claims); err != nil {
		return nil, "", err
	}

	user, err := i.userRepo.GetUser(ctx, claims.Subject)
	if err != nil {
		i.logger.Warn().Err(err).Str("user_id", claims.Subject).
			Msg("failed to refresh session claims, keeping last-known claims")
		return claims, tokenString, nil
	}

	if user.Verified == claims.Verified && string(user.Role) == claims.Role {
		return claims, tokenString, nil
	}

	claims.Verified = user.Verified
	claims.Role = string(user.Role)

	refreshed, err := i.jwtAuth.Generate(claims)
	if err != nil {
		return nil, "", err
	}

	return claims, refreshed, nil
}
