// Package identity verifies bearer tokens issued by an external identity
// provider and turns them into principals.  Everything a verifier returns
// is trusted as-is by the account provisioner.
package identity

import (
	"context"
	"errors"
)

// ErrInvalidToken is returned for tokens that fail verification.
var ErrInvalidToken = errors.New("identity: invalid token")

// Principal is a verified caller.
type Principal struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photo_url"`
}

// Verifier checks a raw bearer token.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (Principal, error)
}
