package user

import (
	"context"
	"regexp"
	"time"

	"rollcall/internal/access"
	"rollcall/internal/apperr"
	"rollcall/internal/auth"
	"rollcall/internal/model"
)

// Login failure sentinels. The distinction matters to callers: a deactivated
// account must never be reported as a bad password.
var (
	ErrInvalidCredentials = apperr.New(apperr.Unauthenticated, "invalid prn or password")
	ErrAccountDeactivated = apperr.New(apperr.Unauthenticated, "account is deactivated")
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByPRN(ctx context.Context, prn string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, f ListFilter) ([]model.User, error)
	UpdateProfile(ctx context.Context, u *model.User) error
	SetActive(ctx context.Context, id string, active bool) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SaveRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	RefreshTokenValid(ctx context.Context, userID, token string) (bool, error)
	RevokeRefreshToken(ctx context.Context, token string) error
}

// Service implements identity operations on top of a Store.
type Service struct {
	store Store
}

// NewService creates a service backed by a store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// RegisterInput carries the fields required to create an account.
type RegisterInput struct {
	PRN        string `json:"prn"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	ClassName  string `json:"class"`
	Department string `json:"dept"`
	Role       string `json:"role"`
}

// Register creates a new user. Duplicate prn or email is a conflict; the
// role defaults to student and is immutable afterwards.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	required := []struct{ field, val string }{
		{"prn", in.PRN}, {"name", in.Name}, {"email", in.Email},
		{"password", in.Password}, {"class", in.ClassName}, {"dept", in.Department},
	}
	for _, r := range required {
		if r.val == "" {
			return nil, apperr.Newf(apperr.Validation, "%s is required", r.field)
		}
	}
	if !emailPattern.MatchString(in.Email) {
		return nil, apperr.New(apperr.Validation, "invalid email format")
	}
	role := model.Role(in.Role)
	if in.Role == "" {
		role = model.RoleStudent
	}
	if !role.Valid() {
		return nil, apperr.Newf(apperr.Validation, "invalid role %q", in.Role)
	}

	if existing, err := s.store.GetByPRN(ctx, in.PRN); err != nil {
		return nil, apperr.Wrap(apperr.Store, "lookup prn", err)
	} else if existing != nil {
		return nil, apperr.New(apperr.Conflict, "prn already registered")
	}
	if existing, err := s.store.GetByEmail(ctx, in.Email); err != nil {
		return nil, apperr.Wrap(apperr.Store, "lookup email", err)
	} else if existing != nil {
		return nil, apperr.New(apperr.Conflict, "email already registered")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.Store, "hash password", err)
	}

	u := &model.User{
		PRN:          in.PRN,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		ClassName:    in.ClassName,
		Department:   in.Department,
		IsActive:     true,
	}
	if err := s.store.Create(ctx, u); err != nil {
		// The existence checks race with concurrent registrations; the unique
		// constraint is the source of truth.
		if IsUniqueViolation(err) {
			return nil, apperr.New(apperr.Conflict, "prn or email already registered")
		}
		return nil, apperr.Wrap(apperr.Store, "create user", err)
	}
	return u, nil
}

// Login verifies credentials by prn. Deactivated accounts never authenticate.
func (s *Service) Login(ctx context.Context, prn, password string) (*model.User, error) {
	if prn == "" || password == "" {
		return nil, apperr.New(apperr.Validation, "prn and password are required")
	}
	u, err := s.store.GetByPRN(ctx, prn)
	if err != nil {
		return nil, apperr.Wrap(apperr.Store, "lookup prn", err)
	}
	if u == nil || !auth.VerifyPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrAccountDeactivated
	}
	return u, nil
}

// Actor resolves a token subject to a full user row.
func (s *Service) Actor(ctx context.Context, id string) (*model.User, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.Store, "lookup user", err)
	}
	if u == nil {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	return u, nil
}

// Get returns a single user subject to the access rules.
func (s *Service) Get(ctx context.Context, actor model.User, id string) (*model.User, error) {
	target, err := s.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.CanReadUser(actor, *target); err != nil {
		return nil, err
	}
	return target, nil
}

// List returns users matching the filter. Teachers are always narrowed to
// students of their own class and department, regardless of the filter.
func (s *Service) List(ctx context.Context, actor model.User, f ListFilter) ([]model.User, error) {
	if actor.Role == model.RoleTeacher {
		f = ListFilter{
			Role:       model.RoleStudent,
			ClassName:  actor.ClassName,
			Department: actor.Department,
		}
	}
	users, err := s.store.List(ctx, f)
	if err != nil {
		return nil, apperr.Wrap(apperr.Store, "list users", err)
	}
	return users, nil
}

// ProfileUpdate carries the optional mutable profile fields.
type ProfileUpdate struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	ClassName  string `json:"class_name"`
	Department string `json:"department"`
}

// UpdateProfile applies non-empty fields of the update to the target user.
func (s *Service) UpdateProfile(ctx context.Context, actor model.User, id string, in ProfileUpdate) (*model.User, error) {
	target, err := s.Actor(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.CanUpdateUser(actor, *target); err != nil {
		return nil, err
	}
	if in.Email != "" && !emailPattern.MatchString(in.Email) {
		return nil, apperr.New(apperr.Validation, "invalid email format")
	}
	if in.Name != "" {
		target.Name = in.Name
	}
	if in.Email != "" {
		target.Email = in.Email
	}
	if in.ClassName != "" {
		target.ClassName = in.ClassName
	}
	if in.Department != "" {
		target.Department = in.Department
	}
	if err := s.store.UpdateProfile(ctx, target); err != nil {
		if IsUniqueViolation(err) {
			return nil, apperr.New(apperr.Conflict, "email already registered")
		}
		return nil, apperr.Wrap(apperr.Store, "update user", err)
	}
	return target, nil
}

// SetActive activates or deactivates an account. Teachers only.
func (s *Service) SetActive(ctx context.Context, actor model.User, id string, active bool) error {
	if err := access.CanManageAccounts(actor); err != nil {
		return err
	}
	if _, err := s.Actor(ctx, id); err != nil {
		return err
	}
	if err := s.store.SetActive(ctx, id, active); err != nil {
		return apperr.Wrap(apperr.Store, "set active", err)
	}
	return nil
}

// ConfirmIdentity checks that a prn/email pair names an existing user. Used
// by the password-reset request flow.
func (s *Service) ConfirmIdentity(ctx context.Context, prn, email string) error {
	if prn == "" || email == "" {
		return apperr.New(apperr.Validation, "prn and email are required")
	}
	u, err := s.store.GetByPRN(ctx, prn)
	if err != nil {
		return apperr.Wrap(apperr.Store, "lookup prn", err)
	}
	if u == nil || u.Email != email {
		return apperr.New(apperr.NotFound, "user not found with provided prn and email")
	}
	return nil
}

// ResetPassword replaces the credential digest for the prn's account.
func (s *Service) ResetPassword(ctx context.Context, prn, newPassword string) error {
	if prn == "" || newPassword == "" {
		return apperr.New(apperr.Validation, "prn and new password are required")
	}
	u, err := s.store.GetByPRN(ctx, prn)
	if err != nil {
		return apperr.Wrap(apperr.Store, "lookup prn", err)
	}
	if u == nil {
		return apperr.New(apperr.NotFound, "user not found")
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return apperr.Wrap(apperr.Store, "hash password", err)
	}
	if err := s.store.UpdatePassword(ctx, u.ID, hash); err != nil {
		return apperr.Wrap(apperr.Store, "update password", err)
	}
	return nil
}

// SaveRefreshToken records an issued refresh token.
func (s *Service) SaveRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	if err := s.store.SaveRefreshToken(ctx, userID, token, expiresAt); err != nil {
		return apperr.Wrap(apperr.Store, "save refresh token", err)
	}
	return nil
}

// ValidateRefreshToken checks a refresh token is live for the user.
func (s *Service) ValidateRefreshToken(ctx context.Context, userID, token string) error {
	ok, err := s.store.RefreshTokenValid(ctx, userID, token)
	if err != nil {
		return apperr.Wrap(apperr.Store, "check refresh token", err)
	}
	if !ok {
		return apperr.New(apperr.Unauthenticated, "invalid refresh token")
	}
	return nil
}
