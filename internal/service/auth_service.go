package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"ai-knowledgebase-be/internal/dto"
	"ai-knowledgebase-be/internal/storage"
	"ai-knowledgebase-be/internal/tenant"
)

type IAuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
}

type authService struct {
	driver   storage.IDriver
	secret   string
	tokenTTL time.Duration
}

func NewAuthService(driver storage.IDriver, secret string, tokenTTL time.Duration) IAuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &authService{driver: driver, secret: secret, tokenTTL: tokenTTL}
}

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	// The unique index on email surfaces duplicates as a constraint error.
	rec, err := s.driver.Create(ctx, storage.CollectionUser, map[string]any{
		"name":          req.Name,
		"email":         req.Email,
		"password_hash": string(hash),
	})
	if err != nil {
		return nil, err
	}
	return s.issueToken(ctx, rec.ID)
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	rows, err := s.driver.List(ctx, storage.CollectionUser, storage.ListQuery{
		Filters: storage.Filter{"email": req.Email},
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no account for %s", storage.ErrNotFound, req.Email)
	}
	user := rows[0]

	err = bcrypt.CompareHashAndPassword([]byte(user.String("password_hash")), []byte(req.Password))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", storage.ErrValidation)
	}
	return s.issueToken(ctx, user.ID)
}

func (s *authService) issueToken(ctx context.Context, userID storage.RecordID) (*dto.AuthResponse, error) {
	scope, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, errors.New("auth: missing tenant scope")
	}

	claims := jwt.MapClaims{
		"user_id":   userID.String(),
		"namespace": scope.Namespace,
		"exp":       time.Now().Add(s.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{Token: signed}, nil
}
