package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"sitecost/internal/domain"
)

type jwtService interface {
	GenerateToken(userID, companyID int64, role string) (string, error)
}

// Service contains all business logic for authentication and registration.
type Service struct {
	users     UserRepository
	companies CompanyRepository
	jwt       jwtService
}

func NewService(users UserRepository, companies CompanyRepository, jwt jwtService) *Service {
	return &Service{users: users, companies: companies, jwt: jwt}
}

// RegisterCompany creates a new tenant: the company and its first admin user
// in one transaction, so a half-registered company can never exist.
func (s *Service) RegisterCompany(ctx context.Context, req RegisterCompanyRequest) (*domain.User, string, error) {
	if err := s.validateEmailUnique(ctx, req.Email); err != nil {
		return nil, "", err
	}

	hashedPassword, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, "", err
	}

	tx := s.users.DB().WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, "", tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	company := &domain.Company{
		Name:      strings.TrimSpace(req.CompanyName),
		TaxNumber: strings.TrimSpace(req.TaxNumber),
		Address:   strings.TrimSpace(req.Address),
	}
	if err := tx.Create(company).Error; err != nil {
		tx.Rollback()
		return nil, "", err
	}

	user := &domain.User{
		CompanyID:    company.ID,
		Email:        normalizeEmail(req.Email),
		PasswordHash: hashedPassword,
		Name:         req.Name,
		Role:         domain.RoleAdmin,
	}
	if err := tx.Create(user).Error; err != nil {
		tx.Rollback()
		return nil, "", err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, "", err
	}

	token, err := s.jwt.GenerateToken(user.ID, user.CompanyID, user.Role)
	if err != nil {
		return nil, "", err
	}

	user.PasswordHash = ""
	return user, token, nil
}

// RegisterUser adds a user to the caller's company. Only admins reach this
// (route middleware); the role defaults to member.
func (s *Service) RegisterUser(ctx context.Context, companyID int64, req RegisterUserRequest) (*domain.User, error) {
	if _, err := s.companies.GetByID(ctx, companyID); err != nil {
		return nil, err
	}
	if err := s.validateEmailUnique(ctx, req.Email); err != nil {
		return nil, err
	}

	hashedPassword, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = domain.RoleMember
	}

	user := &domain.User{
		CompanyID:    companyID,
		Email:        normalizeEmail(req.Email),
		PasswordHash: hashedPassword,
		Name:         req.Name,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*domain.User, string, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(user.ID, user.CompanyID, user.Role)
	if err != nil {
		return nil, "", err
	}

	user.PasswordHash = ""
	return user, token, nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *Service) validateEmailUnique(ctx context.Context, email string) error {
	_, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return ErrEmailAlreadyExists
	}
	if errors.Is(err, ErrUserNotFound) {
		return nil
	}
	return err
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
