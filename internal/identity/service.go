package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/amoura-app/amoura-backend/internal/common/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email or username already in use")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrAccountInactive    = errors.New("account is deactivated")
)

// Config holds authentication settings.
type Config struct {
	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	BCryptCost         int
}

type Service interface {
	Signup(ctx context.Context, req *SignupRequest) (*AuthResponse, error)
	Signin(ctx context.Context, req *SigninRequest) (*AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error)
	GetUserByID(ctx context.Context, userID int64) (*User, error)

	// Directory contract used by the matching engine.
	IsActive(ctx context.Context, userID int64) (bool, error)
	SetActive(ctx context.Context, userID int64, active bool) error
}

type service struct {
	repo   Repository
	redis  *redis.Client
	config *Config
}

func NewService(repo Repository, redisClient *redis.Client, config *Config) Service {
	return &service{
		repo:   repo,
		redis:  redisClient,
		config: config,
	}
}

func (s *service) Signup(ctx context.Context, req *SignupRequest) (*AuthResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BCryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		Email:        req.Email,
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	return s.createAuthSession(user)
}

func (s *service) Signin(ctx context.Context, req *SigninRequest) (*AuthResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		// Signing in reactivates; deactivation hides the account from
		// matching, it does not lock the owner out.
		if err := s.repo.SetActive(ctx, user.ID, true); err != nil {
			return nil, err
		}
		user.IsActive = true
	}

	return s.createAuthSession(user)
}

func (s *service) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := utils.ValidateJWT(refreshToken, s.config.JWTSecret)
	if err != nil {
		return nil, err
	}

	if claims.Type != "refresh" {
		return nil, errors.New("not a refresh token")
	}

	revoked, err := s.isRevoked(ctx, claims.TokenID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	user, err := s.repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	// Rotate: revoke the presented token and issue a fresh pair
	if err := s.revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		return nil, err
	}

	return s.createAuthSession(user)
}

func (s *service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := utils.ValidateJWT(refreshToken, s.config.JWTSecret)
	if err != nil {
		return err
	}
	if claims.Type != "refresh" {
		return errors.New("not a refresh token")
	}

	return s.revoke(ctx, claims.TokenID, claims.ExpiresAt)
}

func (s *service) ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error) {
	return utils.ValidateJWT(token, s.config.JWTSecret)
}

func (s *service) GetUserByID(ctx context.Context, userID int64) (*User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

func (s *service) IsActive(ctx context.Context, userID int64) (bool, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsActive, nil
}

func (s *service) SetActive(ctx context.Context, userID int64, active bool) error {
	return s.repo.SetActive(ctx, userID, active)
}

func (s *service) createAuthSession(user *User) (*AuthResponse, error) {
	now := time.Now()

	accessToken, err := utils.GenerateJWT(&utils.JWTClaims{
		UserID:    user.ID,
		Username:  user.Username,
		Type:      "access",
		ExpiresAt: now.Add(s.config.AccessTokenExpiry).Unix(),
		IssuedAt:  now.Unix(),
		Issuer:    "amoura-api",
		Subject:   fmt.Sprintf("%d", user.ID),
	}, s.config.JWTSecret)
	if err != nil {
		return nil, err
	}

	refreshToken, err := utils.GenerateJWT(&utils.JWTClaims{
		UserID:    user.ID,
		Username:  user.Username,
		Type:      "refresh",
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(s.config.RefreshTokenExpiry).Unix(),
		IssuedAt:  now.Unix(),
		Issuer:    "amoura-api",
		Subject:   fmt.Sprintf("%d", user.ID),
	}, s.config.JWTSecret)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.config.AccessTokenExpiry.Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// revoke denylists a refresh token ID until its natural expiry.
func (s *service) revoke(ctx context.Context, tokenID string, expiresAt int64) error {
	if s.redis == nil || tokenID == "" {
		return nil
	}

	ttl := time.Until(time.Unix(expiresAt, 0))
	if ttl <= 0 {
		return nil
	}

	return s.redis.Set(ctx, "revoked:"+tokenID, "1", ttl).Err()
}

func (s *service) isRevoked(ctx context.Context, tokenID string) (bool, error) {
	if s.redis == nil || tokenID == "" {
		return false, nil
	}

	_, err := s.redis.Get(ctx, "revoked:"+tokenID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}
