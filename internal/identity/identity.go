// Package identity verifies bearer credentials issued by the external
// identity provider and exposes the resulting caller identity to handlers.
package identity

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v4"
)

// DefaultOrganization is assigned when a token carries no organization
// claim, matching the provider's development-tenant behaviour.
const DefaultOrganization = "default-org"

var (
	// ErrTokenMissing indicates the request carried no bearer token.
	ErrTokenMissing = errors.New("no token provided")
	// ErrTokenInvalid indicates a token that failed verification.
	ErrTokenInvalid = errors.New("invalid token")
)

// Identity is the verified caller: the subject and the organization the
// provider placed them in, plus optional profile fields denormalized into
// shift records for reporting.
type Identity struct {
	UserID         string
	OrganizationID string
	DisplayName    string
	AvatarURL      string
}

// Verifier validates bearer credentials and yields an Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// JWTVerifier verifies HMAC-signed tokens from the identity provider.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier constructs a verifier with the shared signing secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// Verify parses and validates the token, extracting the identity claims.
func (v *JWTVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrTokenMissing
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, ErrTokenInvalid
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, ErrTokenInvalid
	}

	orgID, _ := claims["org_id"].(string)
	if orgID == "" {
		orgID = DefaultOrganization
	}

	name, _ := claims["name"].(string)
	picture, _ := claims["picture"].(string)

	return Identity{
		UserID:         sub,
		OrganizationID: orgID,
		DisplayName:    name,
		AvatarURL:      picture,
	}, nil
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// FromContext extracts the identity from context.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}
