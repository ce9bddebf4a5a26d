package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fdg312/mealweek/internal/config"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidUserID = errors.New("invalid user_id")
)

const (
	fallbackDevUserID = "dev-user"
	maxUserIDLen      = 128
)

// Service issues and verifies HS256 access tokens. The subject is the
// user id that scopes targets, plans and exports.
type Service struct {
	config *config.Config
}

func NewService(cfg *config.Config) *Service {
	return &Service{config: cfg}
}

// SignInDev issues a token for userID without credentials. An empty id
// maps to DEFAULT_USER_ID so data created anonymously stays visible.
func (s *Service) SignInDev(_ context.Context, userID string) (*DevTokenResponse, error) {
	userID = s.resolveUserID(userID)
	if len(userID) > maxUserIDLen || strings.ContainsAny(userID, " /\\") {
		return nil, ErrInvalidUserID
	}

	ttl := time.Duration(s.config.JWTTTLMinutes) * time.Minute
	token, err := s.issue(userID, ttl)
	if err != nil {
		return nil, fmt.Errorf("issue dev token: %w", err)
	}

	return &DevTokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(ttl.Seconds()),
		UserID:      userID,
	}, nil
}

func (s *Service) resolveUserID(userID string) string {
	for _, candidate := range []string{userID, s.config.DefaultUserID, fallbackDevUserID} {
		if c := strings.TrimSpace(candidate); c != "" {
			return c
		}
	}
	return fallbackDevUserID
}

func (s *Service) issue(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    s.config.JWTIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.JWTSecret))
}

// Verify checks signature, expiry and issuer and returns the subject.
func (s *Service) Verify(raw string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.config.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.JWTIssuer))
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return []byte(s.config.JWTSecret), nil
	}, opts...)
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
