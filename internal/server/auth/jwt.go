// Package auth mints and verifies session tokens: HS256-signed JWTs carrying
// the account id, email and role.
package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/dmitrijs2005/diagnexus/internal/common"
	"github.com/dmitrijs2005/diagnexus/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the registered claims plus the account identity.
type Claims struct {
	jwt.RegisteredClaims
	AccountID int64       `json:"uid"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
}

// GenerateToken signs a token for account valid for validityDuration from now.
func GenerateToken(account *models.Account, secretKey []byte, validityDuration time.Duration, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(validityDuration)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(account.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		AccountID: account.ID,
		Email:     account.Email,
		Role:      account.Role,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// ParseToken verifies signature and expiry. Expired tokens yield
// common.ErrTokenExpired, anything else common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.AccountID <= 0 {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
