package utils

import (
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// AccessToken is the claims payload of the bearer tokens issued by the
// auth service. This server only verifies and reads them.
type AccessToken struct {
	ID   uuid.UUID `json:"id"`
	Role string    `json:"role"`
}

// CreateAccessToken signs an access token for the given user. Production
// tokens come from the auth service; this signer exists for development
// and tests.
func CreateAccessToken(id uuid.UUID, role string) (string, error) {
	signer := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), 24*time.Hour)
	token, err := signer.Sign(AccessToken{ID: id, Role: role})
	if err != nil {
		return "", err
	}
	return string(token), nil
}
