package ports

import "signalhub/internal/core/domain"

// Identity is what the Identity Provider's token resolves to. Token issuance
// lives outside this service; only verification happens at the boundary.
type Identity struct {
	UserID      domain.UserID
	DisplayName string
}

type TokenVerifier interface {
	Verify(tokenString string) (*Identity, error)
}
