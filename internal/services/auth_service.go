package services

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"relay-chat/internal/domain/user"
	"relay-chat/internal/events"
	"relay-chat/internal/repository"
	relay_errors "relay-chat/pkg/errors"
)

// AuthService is the identity collaborator: it mints and parses the tokens
// the rest of the core consumes as "current caller identity". Session and
// device management beyond that is out of scope here.
type AuthService struct {
	userRepo  repository.UserRepository
	bus       events.Bus
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewAuthService(userRepo repository.UserRepository, bus events.Bus, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		bus:       bus,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

type AccessClaims struct {
	UserID      string `json:"uid"`
	DisplayName string `json:"name"`
	jwt.RegisteredClaims
}

type AuthResponse struct {
	Token       string `json:"token"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

func (s *AuthService) Register(ctx context.Context, username, password, displayName string) (AuthResponse, error) {
	username = strings.TrimSpace(username)
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = username
	}
	if username == "" || len(password) < 6 {
		return AuthResponse{}, relay_errors.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResponse{}, err
	}

	u := &user.User{
		ID:           uuid.New().String(),
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return AuthResponse{}, err
	}
	s.bus.Publish(events.ChangeEvent{
		Collection: events.CollectionUsers,
		Op:         events.OpInsert,
		ID:         u.ID,
		After:      u,
	})
	return s.respond(u)
}

func (s *AuthService) Login(ctx context.Context, username, password string) (AuthResponse, error) {
	u, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return AuthResponse{}, relay_errors.ErrNotAuthorized
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return AuthResponse{}, relay_errors.ErrNotAuthorized
	}
	return s.respond(u)
}

func (s *AuthService) respond(u *user.User) (AuthResponse, error) {
	token, err := s.newAccessToken(u)
	if err != nil {
		return AuthResponse{}, err
	}
	return AuthResponse{Token: token, UserID: u.ID, DisplayName: u.DisplayName}, nil
}

func (s *AuthService) newAccessToken(u *user.User) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UserID:      u.ID,
		DisplayName: u.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) ParseAccessToken(tokenString string) (AccessClaims, error) {
	if tokenString == "" {
		return AccessClaims{}, relay_errors.ErrNotAuthorized
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, relay_errors.ErrNotAuthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return AccessClaims{}, relay_errors.ErrNotAuthorized
	}
	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok {
		return AccessClaims{}, relay_errors.ErrNotAuthorized
	}
	return *claims, nil
}

// IdentityFromToken resolves a bearer token to a caller identity, or nil
// for a missing/invalid token (the unauthenticated path, not an error).
func (s *AuthService) IdentityFromToken(tokenString string) *Identity {
	claims, err := s.ParseAccessToken(tokenString)
	if err != nil {
		return nil
	}
	return &Identity{UserID: claims.UserID, DisplayName: claims.DisplayName}
}
