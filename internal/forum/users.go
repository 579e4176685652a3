package forum

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/klkchan/klkchan/internal/auth"
	"github.com/klkchan/klkchan/internal/database"
	"github.com/klkchan/klkchan/internal/models"
)

// Register creates an account after validating username, email and password policy
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = auth.NormalizeEmail(email)

	if err := auth.ValidateUsername(username); err != nil {
		return nil, newError(ErrInvalid, "%s", err.Error())
	}
	if err := auth.ValidateEmail(email); err != nil {
		return nil, newError(ErrInvalid, "%s", err.Error())
	}
	if err := auth.CheckPasswordPolicy(password); err != nil {
		return nil, newError(ErrInvalid, "%s", err.Error())
	}
	if err := s.checkText(username); err != nil {
		return nil, err
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, newError(ErrConflict, "Email already exists")
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	if _, err := s.store.GetUserByUsername(ctx, username); err == nil {
		return nil, newError(ErrConflict, "Username already exists")
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &models.User{Username: username, Email: email, PasswordHash: hash}
	if _, err := s.store.InsertUser(ctx, u); err != nil {
		return nil, storeErr(err, "User")
	}
	return s.store.GetUserByID(ctx, u.ID)
}

// Authenticate checks credentials by email or username.
// Repeated failures lock the account for a while.
func (s *Service) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	login = strings.TrimSpace(login)
	var u *models.User
	var err error
	if strings.Contains(login, "@") {
		u, err = s.store.GetUserByEmail(ctx, login)
	} else {
		u, err = s.store.GetUserByUsername(ctx, login)
	}
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, newError(ErrBadCredentials, "Invalid credentials")
		}
		return nil, err
	}

	locked, err := s.store.IsUserLockedOut(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, newError(ErrLockedOut, "Too many failed login attempts, try again later")
	}
	if !auth.CheckPassword(password, u.PasswordHash) {
		logErr("increment login attempts", s.store.IncrementLoginAttempts(ctx, u.ID))
		return nil, newError(ErrBadCredentials, "Invalid credentials")
	}
	if u.Banned {
		return nil, newError(ErrForbidden, "account is banned")
	}
	logErr("reset login attempts", s.store.ResetLoginAttempts(ctx, u.ID))
	return u, nil
}

// ChangePassword replaces the password after checking the current one
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return storeErr(err, "User")
	}
	if !auth.CheckPassword(current, u.PasswordHash) {
		return newError(ErrInvalid, "Current password is incorrect")
	}
	if err := auth.CheckPasswordPolicy(next); err != nil {
		return newError(ErrInvalid, "%s", err.Error())
	}
	if current == next {
		return newError(ErrInvalid, "New password cannot match the current password.")
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return storeErr(s.store.UpdateUserPassword(ctx, userID, hash), "User")
}

// ResetPassword sets a new password without the current one, for operators
func (s *Service) ResetPassword(ctx context.Context, userID int64, next string) error {
	if err := auth.CheckPasswordPolicy(next); err != nil {
		return newError(ErrInvalid, "%s", err.Error())
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return storeErr(s.store.UpdateUserPassword(ctx, userID, hash), "User")
}

// GetUser returns a user with roles and post ids
func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.store.GetUserByID(ctx, id)
	return u, storeErr(err, "User")
}

// FindUser looks a user up by email or username
func (s *Service) FindUser(ctx context.Context, login string) (*models.User, error) {
	var u *models.User
	var err error
	if strings.Contains(login, "@") {
		u, err = s.store.GetUserByEmail(ctx, login)
	} else {
		u, err = s.store.GetUserByUsername(ctx, strings.TrimSpace(login))
	}
	return u, storeErr(err, "User")
}

// ListUsers returns all users
func (s *Service) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.store.ListUsers(ctx)
}

// ProfilePatch updates the profile fields that are set
type ProfilePatch struct {
	Username    *string `json:"username"`
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
}

// UpdateProfile changes username, display name or bio. Users edit their own
// profile, admins any profile.
func (s *Service) UpdateProfile(ctx context.Context, actor *models.User, userID int64, patch ProfilePatch) (*models.User, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	if actor.ID != userID && !actor.HasRole(models.RoleAdmin) {
		return nil, newError(ErrForbidden, "Not authorized to modify this user")
	}
	return s.EditProfile(ctx, userID, patch)
}

// EditProfile applies a profile patch without permission checks, for operators
func (s *Service) EditProfile(ctx context.Context, userID int64, patch ProfilePatch) (*models.User, error) {
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "User")
	}
	if patch.Username == nil && patch.DisplayName == nil && patch.Bio == nil {
		return u, nil
	}

	if patch.Username != nil {
		name := strings.TrimSpace(*patch.Username)
		if err := auth.ValidateUsername(name); err != nil {
			return nil, newError(ErrInvalid, "%s", err.Error())
		}
		if !strings.EqualFold(name, u.Username) {
			if _, err := s.store.GetUserByUsername(ctx, name); err == nil {
				return nil, newError(ErrConflict, "Username already exists")
			} else if !errors.Is(err, database.ErrNotFound) {
				return nil, err
			}
		}
		u.Username = name
	}
	if patch.DisplayName != nil {
		if u.DisplayName, err = requireText("display_name", *patch.DisplayName, 0, MaxDisplayName); err != nil {
			return nil, err
		}
	}
	if patch.Bio != nil {
		if u.Bio, err = requireText("bio", *patch.Bio, 0, MaxBio); err != nil {
			return nil, err
		}
	}
	if err := s.checkText(u.Username, u.DisplayName, u.Bio); err != nil {
		return nil, err
	}

	if err := s.store.UpdateUserProfile(ctx, u); err != nil {
		return nil, storeErr(err, "User")
	}
	s.invalidate()
	return s.store.GetUserByID(ctx, userID)
}

// DeleteUser removes an account with everything it wrote. Users delete their
// own account, admins any account.
func (s *Service) DeleteUser(ctx context.Context, actor *models.User, userID int64) error {
	if actor == nil {
		return newError(ErrForbidden, "login required")
	}
	if actor.ID != userID && !actor.HasRole(models.RoleAdmin) {
		return newError(ErrForbidden, "Not authorized to delete this user")
	}
	return s.PurgeUser(ctx, userID)
}

// PurgeUser deletes an account without permission checks, for operators
func (s *Service) PurgeUser(ctx context.Context, userID int64) error {
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return storeErr(err, "User")
	}
	log.Printf("[FORUM] deleted user %d", userID)
	s.invalidate()
	return nil
}

func validRole(role string) bool {
	switch role {
	case models.RoleUser, models.RoleMod, models.RoleAdmin:
		return true
	}
	return false
}

// GrantRole gives a user the mod or admin role
func (s *Service) GrantRole(ctx context.Context, userID int64, role string) error {
	role = strings.ToLower(strings.TrimSpace(role))
	if !validRole(role) {
		return newError(ErrInvalid, "unknown role %q", role)
	}
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return storeErr(err, "User")
	}
	return s.store.AddUserRole(ctx, userID, role)
}

// RevokeRole takes mod or admin away; the base user role stays
func (s *Service) RevokeRole(ctx context.Context, userID int64, role string) error {
	role = strings.ToLower(strings.TrimSpace(role))
	if !validRole(role) {
		return newError(ErrInvalid, "unknown role %q", role)
	}
	if role == models.RoleUser {
		return newError(ErrInvalid, "the user role cannot be revoked")
	}
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return storeErr(err, "User")
	}
	return s.store.RemoveUserRole(ctx, userID, role)
}
