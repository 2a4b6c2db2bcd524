package service

import (
	"context"
	"strings"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/repository"
)

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

// UpdateProfile changes contact details only; e-mail, role and balance have
// their own flows.
func (s *userService) UpdateProfile(ctx context.Context, userID int32, firstName, lastName, phone string) (*domain.User, error) {
	logger.EnterMethod("userService.UpdateProfile", "userID", userID)
	firstName, lastName, phone = strings.TrimSpace(firstName), strings.TrimSpace(lastName), strings.TrimSpace(phone)
	if firstName == "" || lastName == "" {
		err := domain.NewValidationError("first_name and last_name are required")
		logger.ExitMethodWithError("userService.UpdateProfile", err, "userID", userID)
		return nil, err
	}
	if err := s.userRepo.UpdateProfile(ctx, userID, firstName, lastName, phone); err != nil {
		logger.ExitMethodWithError("userService.UpdateProfile", err, "userID", userID)
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	logger.ExitMethod("userService.UpdateProfile", "userID", userID)
	return user, nil
}
