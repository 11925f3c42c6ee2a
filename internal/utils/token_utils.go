package utils

import (
	"errors"
	"strconv"
	"time"

	"github.com/SscSPs/report_approval_app/internal/core/domain"
	"github.com/golang-jwt/jwt/v5"
)

// ActorClaims are the JWT claims identifying an actor. The subject holds the
// user id and Role the actor's role.
type ActorClaims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Actor converts validated claims to the actor they describe.
func (c *ActorClaims) Actor() (domain.Actor, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return domain.Actor{}, errors.New("token subject is not a user id")
	}
	if !c.Role.IsValid() {
		return domain.Actor{}, errors.New("token role is not recognised")
	}
	return domain.Actor{ID: id, Role: c.Role}, nil
}

// GenerateJWT generates a new JWT token for the given actor.
func GenerateJWT(actor domain.Actor, secret string, expiryDuration time.Duration, issuer string) (string, error) {
	now := time.Now()
	claims := ActorClaims{
		Role: actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(actor.ID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiryDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseAndValidateJWT parses a JWT token string, validates its signature and standard claims.
// It returns the ActorClaims if the token is valid, or an error otherwise.
func ParseAndValidateJWT(tokenString string, secretKey string) (*ActorClaims, error) {
	claims := &ActorClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}

	return claims, nil
}
