// internal/auth/token.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName is the cookie carrying a device token.
const CookieName = "device_token"

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid device token")

// privateKey and publicKey are used for signing and verifying device tokens.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// TokenExpireTime is how long a device token stays valid (0 => never).
	TokenExpireTime time.Duration
)

// parseTokenExpireTime reads TOKEN_EXPIRE_TIME ("never", "0" or a Go duration).
func parseTokenExpireTime() error {
	duration := os.Getenv("TOKEN_EXPIRE_TIME")
	if duration == "never" || duration == "0" || duration == "" {
		TokenExpireTime = 0
		return nil
	}
	d, err := time.ParseDuration(duration)
	if err != nil {
		return fmt.Errorf("failed to parse token expire time: %w", err)
	}
	TokenExpireTime = d
	return nil
}

// Init generates a fresh ed25519 key pair at runtime and sets the token expiration.
// Tokens do not survive a restart, and neither do the games they point at.
func Init() error {
	var err error
	publicKey, privateKey, err = ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return parseTokenExpireTime()
}

// CreateDeviceToken signs a token binding the holder to gameID.
func CreateDeviceToken(gameID uuid.UUID) (string, error) {
	if privateKey == nil {
		return "", errors.New("auth not initialized")
	}
	claims := jwt.MapClaims{
		"sub": gameID.String(),
		"iat": time.Now().Unix(),
	}
	if TokenExpireTime > 0 {
		claims["exp"] = time.Now().Add(TokenExpireTime).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// AuthenticateDeviceToken verifies a token and returns the game it is bound to.
func AuthenticateDeviceToken(tokenString string) (uuid.UUID, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: invalid claims", ErrInvalidToken)
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	gameID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: sub is not a game id", ErrInvalidToken)
	}
	return gameID, nil
}
