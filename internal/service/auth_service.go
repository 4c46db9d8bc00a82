package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/ebulletin-go-api/internal/dto"
	"github.com/noah-isme/ebulletin-go-api/internal/models"
	"github.com/noah-isme/ebulletin-go-api/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the identifier or password did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive indicates the account exists but is disabled.
	ErrAccountInactive = errors.New("account is inactive")
)

// TokenClaims are the claims carried by issued access tokens.
type TokenClaims struct {
	Role          string `json:"role"`
	Email         string `json:"email,omitempty"`
	StudentNumber string `json:"student_number,omitempty"`
	Position      string `json:"position,omitempty"`
	jwt.RegisteredClaims
}

// TokenSession identifies the token presented on the current request.
type TokenSession struct {
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AuthService issues and revokes access tokens.
type AuthService interface {
	AdminLogin(ctx context.Context, req dto.AdminLoginRequest) (dto.LoginResponse, error)
	StudentLogin(ctx context.Context, req dto.StudentLoginRequest) (dto.LoginResponse, error)
	Logout(ctx context.Context, actor Actor, session TokenSession) (dto.LogoutResponse, error)
	LogoutAll(ctx context.Context, actor Actor) (dto.LogoutResponse, error)
	EnsureSuperAdmin(ctx context.Context, email, password, firstName, lastName string) error
}

type authService struct {
	accounts  repository.AccountRepository
	revoker   TokenRevoker
	validator *validator.Validate
	secret    []byte
	ttl       time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAuthService constructs the authentication service.
func NewAuthService(accounts repository.AccountRepository, revoker TokenRevoker, validate *validator.Validate, secret string, ttl time.Duration, logger zerolog.Logger) AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if revoker == nil {
		revoker = NewMemoryTokenRevoker()
	}
	return &authService{
		accounts:  accounts,
		revoker:   revoker,
		validator: validate,
		secret:    []byte(secret),
		ttl:       ttl,
		logger:    logger.With().Str("component", "auth_service").Logger(),
		now:       time.Now,
	}
}

// HashPassword hashes a plain-text password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *authService) AdminLogin(ctx context.Context, req dto.AdminLoginRequest) (dto.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.LoginResponse{}, err
	}

	account, err := s.accounts.FindAdminByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LoginResponse{}, ErrInvalidCredentials
		}
		return dto.LoginResponse{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return dto.LoginResponse{}, ErrInvalidCredentials
	}
	if !account.IsActive {
		return dto.LoginResponse{}, ErrAccountInactive
	}

	user := dto.AuthUser{
		ID:       account.AdminID,
		Role:     string(ActorAdmin),
		Email:    account.Email,
		Position: account.Position,
	}
	if account.Profile != nil {
		user.Name = strings.TrimSpace(account.Profile.FirstName + " " + account.Profile.LastName)
	}

	return s.issue(user)
}

func (s *authService) StudentLogin(ctx context.Context, req dto.StudentLoginRequest) (dto.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.LoginResponse{}, err
	}

	account, err := s.accounts.FindStudentByNumber(ctx, req.StudentNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LoginResponse{}, ErrInvalidCredentials
		}
		return dto.LoginResponse{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return dto.LoginResponse{}, ErrInvalidCredentials
	}
	if !account.IsActive {
		return dto.LoginResponse{}, ErrAccountInactive
	}

	user := dto.AuthUser{
		ID:            account.StudentID,
		Role:          string(ActorStudent),
		Email:         account.Email,
		StudentNumber: account.StudentNumber,
	}
	if account.Profile != nil {
		user.Name = strings.TrimSpace(account.Profile.FirstName + " " + account.Profile.LastName)
	}

	return s.issue(user)
}

func (s *authService) Logout(ctx context.Context, actor Actor, session TokenSession) (dto.LogoutResponse, error) {
	if session.TokenID == "" {
		return dto.LogoutResponse{}, fmt.Errorf("token has no identifier")
	}
	expiresAt := session.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = s.now().Add(s.ttl)
	}
	if err := s.revoker.Revoke(ctx, session.TokenID, expiresAt); err != nil {
		return dto.LogoutResponse{}, err
	}
	s.logger.Info().Str("principal", PrincipalKey(actor)).Msg("token revoked")
	return dto.LogoutResponse{RevokedAt: s.now().UTC()}, nil
}

func (s *authService) LogoutAll(ctx context.Context, actor Actor) (dto.LogoutResponse, error) {
	now := s.now().UTC()
	if err := s.revoker.RevokeAllBefore(ctx, PrincipalKey(actor), now, s.ttl); err != nil {
		return dto.LogoutResponse{}, err
	}
	s.logger.Info().Str("principal", PrincipalKey(actor)).Msg("all tokens revoked")
	return dto.LogoutResponse{RevokedAt: now, AllTokens: true}, nil
}

func (s *authService) EnsureSuperAdmin(ctx context.Context, email, password, firstName, lastName string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	_, err := s.accounts.FindAdminByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	account := models.AdminAccount{
		Email:        email,
		PasswordHash: hash,
		Position:     models.AdminPositionSuperAdmin,
		IsActive:     true,
		Profile:      &models.AdminProfile{FirstName: firstName, LastName: lastName},
	}
	if err := s.accounts.CreateAdmin(ctx, &account); err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}
	s.logger.Info().Str("email", email).Msg("bootstrap super admin created")
	return nil
}

func (s *authService) issue(user dto.AuthUser) (dto.LoginResponse, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := TokenClaims{
		Role:          user.Role,
		Email:         user.Email,
		StudentNumber: user.StudentNumber,
		Position:      user.Position,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return dto.LoginResponse{}, fmt.Errorf("sign token: %w", err)
	}

	return dto.LoginResponse{Token: token, ExpiresAt: expiresAt.UTC(), User: user}, nil
}
