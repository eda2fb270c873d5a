package service

import (
	"context"
	"strings"

	"accessdesk/internal/models"
	"accessdesk/internal/repository"
	"accessdesk/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// UserService manages portal accounts. There is no self-signup; accounts are
// created by ICT admins or the seeder.
type UserService struct {
	users repository.UserRepository
	authz *Authorizer
}

// NewUserService returns a new UserService.
func NewUserService(users repository.UserRepository, authz *Authorizer) *UserService {
	return &UserService{users: users, authz: authz}
}

// Authenticate verifies credentials and returns the account. The identifier
// may be a username or an email address. Inactive accounts cannot log in.
func (s *UserService) Authenticate(ctx context.Context, identifier, password string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)

	var user *models.User
	var err error
	if strings.Contains(identifier, "@") {
		user, err = s.users.GetByEmail(ctx, strings.ToLower(identifier))
	} else {
		user, err = s.users.GetByUsername(ctx, identifier)
	}
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("invalid credentials")
	}
	if !user.IsActive {
		return nil, models.NewUnauthorizedError("account is deactivated")
	}
	return user, nil
}

// CreateUserInput carries the fields for a new account.
type CreateUserInput struct {
	ActorID uint `json:"-"`

	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	JobTitle string `json:"job_title"`
	IsAdmin  bool   `json:"is_admin"`
}

// CreateUser creates an account. Admin only.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	admin, err := s.authz.IsAdmin(ctx, input.ActorID)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, models.NewUnauthorizedError("user management is restricted to ICT admins")
	}

	if err := validation.ValidateUsername(input.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(input.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(input.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: strings.TrimSpace(input.Username),
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		Password: string(hash),
		FullName: strings.TrimSpace(input.FullName),
		JobTitle: strings.TrimSpace(input.JobTitle),
		IsAdmin:  input.IsAdmin,
		IsActive: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword sets a new password after verifying the current one.
func (s *UserService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)); err != nil {
		return models.NewUnauthorizedError("current password is incorrect")
	}
	if err := validation.ValidatePassword(next); err != nil {
		return models.NewValidationError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	user.Password = string(hash)
	return s.users.Update(ctx, user)
}

// SetActive activates or deactivates an account. Admin only; admins cannot
// deactivate themselves.
func (s *UserService) SetActive(ctx context.Context, actorID, userID uint, active bool) (*models.User, error) {
	admin, err := s.authz.IsAdmin(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, models.NewUnauthorizedError("user management is restricted to ICT admins")
	}
	if actorID == userID && !active {
		return nil, models.NewValidationError("you cannot deactivate your own account")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.IsActive = active
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser returns one account by ID.
func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// ListUsers lists accounts. Admin only.
func (s *UserService) ListUsers(ctx context.Context, actorID uint, limit, offset int) ([]models.User, error) {
	admin, err := s.authz.IsAdmin(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, models.NewUnauthorizedError("user listing is restricted to ICT admins")
	}
	return s.users.List(ctx, limit, offset)
}
