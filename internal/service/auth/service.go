package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/christmas-fire/nexus-collab/internal/models"
	"github.com/christmas-fire/nexus-collab/internal/repository/user"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailRequired      = errors.New("email is required")
	ErrUsernameRequired   = errors.New("username is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters long")
	ErrUserAlreadyExists  = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
)

const minPasswordLength = 8

type AuthService struct {
	userRepo    user.UserRepository
	tokenSecret string
	tokenTTL    time.Duration
	now         func() time.Time
}

func NewAuthService(userRepo user.UserRepository, secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		tokenSecret: secret,
		tokenTTL:    ttl,
		now:         time.Now,
	}
}

// Register creates the account and returns its id together with a fresh token.
func (s *AuthService) Register(ctx context.Context, email, username, password string) (int64, string, error) {
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)
	if email == "" {
		return 0, "", ErrEmailRequired
	}
	if username == "" {
		return 0, "", ErrUsernameRequired
	}

	passHash, err := s.HashPassword(password)
	if err != nil {
		return 0, "", err
	}

	userID, err := s.userRepo.Create(ctx, models.User{Email: email, Username: username, PasswordHash: passHash})
	if err != nil {
		if errors.Is(err, user.ErrUserAlreadyExists) {
			return 0, "", ErrUserAlreadyExists
		}
		return 0, "", err
	}

	token, err := s.IssueToken(userID)
	if err != nil {
		return 0, "", err
	}

	return userID, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	if email == "" {
		return "", nil, ErrEmailRequired
	}
	if password == "" {
		return "", nil, ErrPasswordRequired
	}

	u, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.IssueToken(u.ID)
	if err != nil {
		return "", nil, err
	}

	return token, u, nil
}

// HashPassword enforces the password policy and returns the bcrypt hash.
func (s *AuthService) HashPassword(password string) ([]byte, error) {
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if len(password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}
	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return passHash, nil
}

func (s *AuthService) IssueToken(userID int64) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	})

	signedToken, err := token.SignedString([]byte(s.tokenSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, nil
}

// ParseToken verifies an HS256 token and returns the user id held in its subject.
func (s *AuthService) ParseToken(tokenString string) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.tokenSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}

	return userID, nil
}
