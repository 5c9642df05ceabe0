package service

import (
	"context"

	apperrors "github.com/aditya/go-dispatch/internal/errors"
	"github.com/aditya/go-dispatch/internal/models"
	"github.com/aditya/go-dispatch/internal/repository"
)

// AccountService manages the minimal rider and driver profile records that
// trip detail and offer listings are enriched from.
type AccountService interface {
	RegisterUser(ctx context.Context, req *models.CreateUserRequest) (*models.UserResponse, error)
	GetUser(ctx context.Context, id string) (*models.UserResponse, error)
	RegisterDriver(ctx context.Context, req *models.CreateDriverRequest) (*models.DriverResponse, error)
	GetDriver(ctx context.Context, id string) (*models.DriverResponse, error)
}

type accountService struct {
	userRepo   repository.UserRepository
	driverRepo repository.DriverRepository
}

func NewAccountService(userRepo repository.UserRepository, driverRepo repository.DriverRepository) AccountService {
	return &accountService{userRepo: userRepo, driverRepo: driverRepo}
}

func (s *accountService) RegisterUser(ctx context.Context, req *models.CreateUserRequest) (*models.UserResponse, error) {
	existing, err := s.userRepo.GetByPhone(ctx, req.Phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Conflict("phone is already registered")
	}

	user := &models.User{Phone: req.Phone, Name: req.Name}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user.ToResponse(), nil
}

func (s *accountService) GetUser(ctx context.Context, id string) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NotFound("user")
	}
	return user.ToResponse(), nil
}

func (s *accountService) RegisterDriver(ctx context.Context, req *models.CreateDriverRequest) (*models.DriverResponse, error) {
	existing, err := s.driverRepo.GetByPhone(ctx, req.Phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Conflict("phone is already registered")
	}

	driver := &models.Driver{
		Phone:         req.Phone,
		Name:          req.Name,
		VehicleType:   req.VehicleType,
		VehicleNumber: req.VehicleNumber,
	}
	if err := s.driverRepo.Create(ctx, driver); err != nil {
		return nil, err
	}
	return driver.ToResponse(), nil
}

func (s *accountService) GetDriver(ctx context.Context, id string) (*models.DriverResponse, error) {
	driver, err := s.driverRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if driver == nil {
		return nil, apperrors.NotFound("driver")
	}
	return driver.ToResponse(), nil
}
