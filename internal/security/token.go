package security

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrWrongTokenType = errors.New("wrong token type for this endpoint")
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeService TokenType = "service"
)

// UserClaims defines the standard claims for our application
type UserClaims struct {
	UserID string    `json:"user_id"`
	Email  string    `json:"email,omitempty"`
	Type   TokenType `json:"type"`
	Roles  []string  `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager validates the access tokens issued by the account service.
// Generation exists for service-to-service callers (the shipment webhook)
// and for tests.
type TokenManager interface {
	GenerateAccessToken(userID, email string, roles []string) (string, error)
	GenerateServiceToken(service string, ttl time.Duration) (string, error)
	ValidateToken(tokenString string) (*UserClaims, error)
}

type tokenManager struct {
	secret []byte
}

func NewTokenManager(secret string) TokenManager {
	return &tokenManager{
		secret: []byte(secret),
	}
}

func (m *tokenManager) GenerateAccessToken(userID, email string, roles []string) (string, error) {
	claims := UserClaims{
		UserID: userID,
		Email:  email,
		Type:   TokenTypeAccess,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)), // 1 hour
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "auth-service",
			Audience:  jwt.ClaimStrings{"api-access"},
			ID:        generateJTI(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *tokenManager) GenerateServiceToken(service string, ttl time.Duration) (string, error) {
	claims := UserClaims{
		UserID: service,
		Type:   TokenTypeService,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   service,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "auth-service",
			Audience:  jwt.ClaimStrings{"service"},
			ID:        generateJTI(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *tokenManager) ValidateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		if claims.UserID == "" {
			claims.UserID = claims.Subject
		}
		if claims.UserID == "" {
			return nil, ErrInvalidToken
		}
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// Simple unique ID generator
func generateJTI() string {
	return strconv.FormatInt(time.Now().UnixNano(), 16)
}
