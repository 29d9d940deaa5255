package services

import (
	"errors"

	"signalhub/internal/core/domain"
	"signalhub/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims is the token shape the Identity Provider issues. This service only
// verifies; it never mints tokens.
type Claims struct {
	UserID      domain.UserID `json:"user_id"`
	DisplayName string        `json:"display_name"`
	jwt.RegisteredClaims
}

type tokenVerifier struct {
	jwtSecret []byte
}

func NewTokenVerifier(jwtSecret string) ports.TokenVerifier {
	return &tokenVerifier{jwtSecret: []byte(jwtSecret)}
}

func (s *tokenVerifier) Verify(tokenString string) (*ports.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return &ports.Identity{
		UserID:      claims.UserID,
		DisplayName: claims.DisplayName,
	}, nil
}
