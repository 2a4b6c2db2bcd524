package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/repository"
	"carrental-backend/internal/security"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt input limit in bytes
)

type authService struct {
	userRepo repository.UserRepository
	tokens   security.TokenManager
}

func NewAuthService(userRepo repository.UserRepository, tokens security.TokenManager) AuthService {
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

func (s *authService) Register(ctx context.Context, email, password, firstName, lastName, phone string) (*domain.User, string, string, error) {
	email = normalizeEmail(email)
	logger.EnterMethod("authService.Register", "email", email)

	var details []string
	if _, err := mail.ParseAddress(email); err != nil {
		details = append(details, "email is invalid")
	}
	if len(password) < minPasswordLength {
		details = append(details, "password must be at least 8 characters")
	}
	if len(password) > maxPasswordLength {
		details = append(details, "password must be at most 72 bytes")
	}
	if strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" {
		details = append(details, "first_name and last_name are required")
	}
	if len(details) > 0 {
		err := domain.NewValidationError(details...)
		logger.ExitMethodWithError("authService.Register", err, "email", email)
		return nil, "", "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.ExitMethodWithError("authService.Register", err, "email", email)
		return nil, "", "", err
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		Phone:        strings.TrimSpace(phone),
		Role:         domain.RoleCustomer,
		Balance:      decimal.Zero,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		logger.ExitMethodWithError("authService.Register", err, "email", email)
		return nil, "", "", err
	}

	access, refresh, err := s.generateTokens(user)
	if err != nil {
		logger.ExitMethodWithError("authService.Register", err, "userID", user.ID)
		return nil, "", "", err
	}
	logger.ExitMethod("authService.Register", "userID", user.ID)
	return user, access, refresh, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*domain.User, string, string, error) {
	email = normalizeEmail(email)
	logger.EnterMethod("authService.Login", "email", email)

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = domain.ErrInvalidCredentials
		}
		logger.ExitMethodWithError("authService.Login", err, "email", email)
		return nil, "", "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		logger.ExitMethodWithError("authService.Login", domain.ErrInvalidCredentials, "email", email)
		return nil, "", "", domain.ErrInvalidCredentials
	}
	if user.Blocked {
		logger.ExitMethodWithError("authService.Login", domain.ErrAccountBlocked, "userID", user.ID)
		return nil, "", "", domain.ErrAccountBlocked
	}

	access, refresh, err := s.generateTokens(user)
	if err != nil {
		return nil, "", "", err
	}
	logger.ExitMethod("authService.Login", "userID", user.ID, "role", user.Role)
	return user, access, refresh, nil
}

// RefreshToken reissues both tokens. The role is re-read so promotions and
// blocks take effect without a new login.
func (s *authService) RefreshToken(ctx context.Context, refresh string) (string, string, error) {
	claims, err := s.tokens.ValidateToken(refresh, security.TokenTypeRefresh)
	if err != nil {
		return "", "", err
	}
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", "", security.ErrInvalidToken
		}
		return "", "", err
	}
	if user.Blocked {
		return "", "", domain.ErrAccountBlocked
	}
	return s.generateTokens(user)
}

func (s *authService) GetProfile(ctx context.Context, userID int32) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func (s *authService) generateTokens(user *domain.User) (string, string, error) {
	access, err := s.tokens.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return "", "", err
	}
	refresh, err := s.tokens.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
