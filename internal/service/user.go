package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"docvault/internal/model"
	"docvault/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
)

// RegisterInput carries a new account's fields. Password2 is the
// confirmation value and must match Password.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	Password2 string
}

// UserService defines account use cases: registration, login and the API
// token lifecycle.
type UserService interface {
	// Register validates the input, hashes the password and creates the
	// account. A duplicate username surfaces as a field validation error.
	Register(ctx context.Context, in RegisterInput) (*model.User, error)

	// Authenticate checks username/password and returns the user.
	// A missing user and a wrong password are indistinguishable.
	Authenticate(ctx context.Context, username, password string) (*model.User, error)

	// Token issues a signed bearer token for the user.
	Token(u *model.User) (string, error)

	// VerifyToken validates a bearer token and returns the user ID it carries.
	VerifyToken(token string) (string, error)

	// Get returns a user by ID.
	Get(ctx context.Context, id string) (*model.User, error)
}

type userService struct {
	repo     repository.UserRepository
	secret   []byte
	tokenTTL time.Duration
}

// NewUserService constructs a UserService signing tokens with secret.
func NewUserService(repo repository.UserRepository, secret []byte, tokenTTL time.Duration) UserService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &userService{repo: repo, secret: secret, tokenTTL: tokenTTL}
}

// tokenClaims embeds the registered claims plus the account ID.
type tokenClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	fields := map[string]string{}
	username := strings.TrimSpace(in.Username)
	if username == "" {
		fields["username"] = "this field is required"
	}
	if in.Password == "" {
		fields["password"] = "this field is required"
	} else if len(in.Password) < 8 {
		fields["password"] = "password must be at least 8 characters"
	}
	if in.Password2 != "" && in.Password != in.Password2 {
		fields["password2"] = "passwords do not match"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	stored, err := s.repo.Create(ctx, u)
	if err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return nil, &ValidationError{Fields: map[string]string{"username": "a user with that username already exists"}}
		}
		return nil, err
	}
	return stored, nil
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	u, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *userService) Token(u *model.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
		},
		UserID: u.ID,
	})
	return token.SignedString(s.secret)
}

func (s *userService) VerifyToken(tokenString string) (string, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", ErrInvalidToken
	}
	if !token.Valid || claims.UserID == "" {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}
