package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"procure-backend/internal/auth"
	"procure-backend/internal/mail"
	"procure-backend/internal/models"
	"procure-backend/internal/repositories"

	"github.com/go-playground/validator/v10"
)

// UserStore is the persistence surface the user service needs.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ListPending(ctx context.Context) ([]*models.User, error)
	ListAdmins(ctx context.Context) ([]*models.User, error)
	SetApproval(ctx context.Context, id int, approved bool) error
	Delete(ctx context.Context, id int) error
}

type UserService struct {
	users      UserStore
	jwtManager *auth.JWTManager
	mailer     *mail.Service
	adminEmail string
	validate   *validator.Validate
}

func NewUserService(users UserStore, jwtManager *auth.JWTManager, mailer *mail.Service, adminEmail string) *UserService {
	return &UserService{
		users:      users,
		jwtManager: jwtManager,
		mailer:     mailer,
		adminEmail: adminEmail,
		validate:   validator.New(),
	}
}

// Register creates a new account pending admin approval.
func (s *UserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, NewValidationError(validationMessage(err))
	}

	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, NewConflictError("an account with this email already exists")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, NewDependencyError("failed to check existing account", err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, NewDependencyError("failed to hash password", err)
	}

	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         req.Role,
		Department:   strings.TrimSpace(req.Department),
		Organization: strings.TrimSpace(req.Organization),
		GSTIN:        strings.TrimSpace(req.GSTIN),
		Phone:        strings.TrimSpace(req.Phone),
		IsApproved:   false,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, NewDependencyError("failed to create user", err)
	}

	log.Printf("[User] registered %s (%s), pending approval", user.Email, user.Role)

	if s.mailer != nil && s.adminEmail != "" {
		s.mailer.Notify([]string{s.adminEmail},
			"New Registration Pending Approval",
			fmt.Sprintf("%s (%s) registered as %s and is awaiting approval.", user.Name, user.Email, user.Role))
	}

	return user, nil
}

// Login authenticates a user and returns a signed token. Accounts awaiting
// approval cannot log in.
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, NewValidationError(validationMessage(err))
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NewAuthorizationError("invalid email or password")
		}
		return nil, NewDependencyError("failed to look up user", err)
	}

	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, NewAuthorizationError("invalid email or password")
	}

	if !user.IsApproved {
		return nil, NewAuthorizationError("account is pending approval")
	}

	token, err := s.jwtManager.GenerateToken(user)
	if err != nil {
		return nil, NewDependencyError("failed to generate token", err)
	}

	return &models.AuthResponse{Token: token, User: user}, nil
}

func (s *UserService) ListPending(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.ListPending(ctx)
	if err != nil {
		return nil, NewDependencyError("failed to list pending users", err)
	}
	return users, nil
}

// Approve activates a pending account and notifies the user.
func (s *UserService) Approve(ctx context.Context, userID int) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return NewNotFoundError("user not found")
		}
		return NewDependencyError("failed to look up user", err)
	}

	if user.IsApproved {
		return NewConflictError("user is already approved")
	}

	if err := s.users.SetApproval(ctx, userID, true); err != nil {
		return NewDependencyError("failed to approve user", err)
	}

	log.Printf("[User] approved %s", user.Email)

	if s.mailer != nil {
		s.mailer.Notify([]string{user.Email},
			"Account Approved",
			fmt.Sprintf("Hello %s, your account has been approved. You can now log in.", user.Name))
	}
	return nil
}

// Reject removes a pending account.
func (s *UserService) Reject(ctx context.Context, userID int) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return NewNotFoundError("user not found")
		}
		return NewDependencyError("failed to look up user", err)
	}

	if user.IsApproved {
		return NewConflictError("cannot reject an approved user")
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return NewDependencyError("failed to reject user", err)
	}

	log.Printf("[User] rejected registration %s", user.Email)

	if s.mailer != nil {
		s.mailer.Notify([]string{user.Email},
			"Registration Rejected",
			fmt.Sprintf("Hello %s, your registration was not approved.", user.Name))
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("invalid field %q (rule: %s)", fe.Field(), fe.Tag())
	}
	return "invalid request payload"
}
