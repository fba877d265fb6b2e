package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-admin/internal/apiclient"
	"github.com/noah-isme/academy-admin/internal/models"
	"github.com/noah-isme/academy-admin/internal/session"
	"github.com/noah-isme/academy-admin/internal/validation"
	appErrors "github.com/noah-isme/academy-admin/pkg/errors"
)

type authClient interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Logout(ctx context.Context, creds apiclient.Credentials) error
}

type profileUpdater interface {
	Update(ctx context.Context, creds apiclient.Credentials, id string, payload apiclient.Payload) (models.User, error)
}

// Notification texts shown after auth flows.
const (
	MsgLoginSuccess   = "Login successful!"
	MsgLoginFailed    = "Login failed"
	MsgLoggedOut      = "Logged out successfully"
	MsgProfileUpdated = "Profile updated successfully!"
	MsgProfileFailed  = "Failed to update profile"
)

// AuthService signs admins in and out and maintains their cached profile.
type AuthService struct {
	client    authClient
	users     profileUpdater
	store     *session.Store
	validator *validation.Validator
	logger    *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(client authClient, users profileUpdater, store *session.Store, validator *validation.Validator, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validator == nil {
		validator = validation.New()
	}
	return &AuthService{client: client, users: users, store: store, validator: validator, logger: logger}
}

// Login validates the form, authenticates against the API and stores the
// session under a fresh id. Non-admin accounts are rejected without
// persisting anything. The theme preference of currentSID carries over.
func (s *AuthService) Login(ctx context.Context, currentSID string, form validation.LoginForm) (string, models.Profile, error) {
	form.Email = strings.TrimSpace(form.Email)
	if err := s.validator.Check(form); err != nil {
		return "", models.Profile{}, err
	}

	resp, err := s.client.Login(ctx, models.LoginRequest{Email: form.Email, Password: form.Password})
	if err != nil {
		s.logger.Info("login rejected", zap.String("email", form.Email), zap.Error(err))
		return "", models.Profile{}, err
	}
	if !resp.Profile.IsAdmin() {
		s.logger.Warn("non-admin login refused", zap.String("email", form.Email), zap.String("role", string(resp.Profile.Role)))
		return "", models.Profile{}, appErrors.Clone(appErrors.ErrAccessDenied, "")
	}

	sid := session.NewID()
	if err := s.store.Save(ctx, sid, resp.Tokens, resp.Profile); err != nil {
		return "", models.Profile{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist session")
	}
	s.carryPreferences(ctx, currentSID, sid)

	s.logger.Info("admin signed in", zap.String("user_id", resp.Profile.ID), zap.String("sid", sid))
	return sid, resp.Profile, nil
}

func (s *AuthService) carryPreferences(ctx context.Context, from, to string) {
	if from == "" {
		return
	}
	previous, _, err := s.store.Load(ctx, from)
	if err != nil {
		s.logger.Debug("previous session unreadable", zap.Error(err))
		return
	}
	if previous.DarkMode {
		if err := s.store.SetDarkMode(ctx, to, true); err != nil {
			s.logger.Warn("failed to carry theme preference", zap.Error(err))
		}
	}
	if err := s.store.Clear(ctx, from); err != nil {
		s.logger.Warn("failed to clear previous session", zap.Error(err))
	}
}

// Logout clears the credentials of sid.
func (s *AuthService) Logout(ctx context.Context, sid string) error {
	if err := s.client.Logout(ctx, s.store.Bind(sid)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear session")
	}
	return nil
}

// Current returns the session snapshot for sid.
func (s *AuthService) Current(ctx context.Context, sid string) (models.Session, bool, error) {
	return s.store.Load(ctx, sid)
}

// SetDarkMode persists the theme preference of sid.
func (s *AuthService) SetDarkMode(ctx context.Context, sid string, enabled bool) error {
	return s.store.SetDarkMode(ctx, sid, enabled)
}

// UpdateProfile saves the signed-in admin's own account and refreshes the
// cached profile. An avatar switches the payload to multipart.
func (s *AuthService) UpdateProfile(ctx context.Context, current models.Session, form validation.ProfileForm, avatar *apiclient.FilePart) (models.Profile, error) {
	form.FullName = strings.TrimSpace(form.FullName)
	form.Email = strings.TrimSpace(form.Email)
	if err := s.validator.Check(form); err != nil {
		return models.Profile{}, err
	}

	updated, err := s.users.Update(ctx, s.store.Bind(current.ID), current.Profile.ID, profilePayload(form, avatar))
	if err != nil {
		return models.Profile{}, err
	}

	profile := current.Profile
	profile.FullName = firstNonEmpty(updated.FullName, form.FullName)
	profile.Email = firstNonEmpty(updated.Email, form.Email)
	profile.Avatar = firstNonEmpty(updated.Avatar, profile.Avatar)
	if err := s.store.SetProfile(ctx, current.ID, profile); err != nil {
		return models.Profile{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cache profile")
	}
	return profile, nil
}

func profilePayload(form validation.ProfileForm, avatar *apiclient.FilePart) apiclient.Payload {
	fields := map[string]string{"fullName": form.FullName, "email": form.Email}
	if form.Password != "" {
		fields["password"] = form.Password
	}
	if avatar != nil {
		part := *avatar
		if part.Field == "" {
			part.Field = "avatar"
		}
		return apiclient.MultipartPayload{Fields: fields, Files: []apiclient.FilePart{part}}
	}
	body := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		body[k] = v
	}
	return apiclient.JSON(body)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
