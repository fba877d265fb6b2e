// Package session owns the console's view of who is signed in. All writes to
// the persisted token pair and profile go through Store; everything else reads
// immutable snapshots.
package session

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-admin/internal/models"
)

// Persisted field names.
const (
	FieldToken        = "token"
	FieldRefreshToken = "refreshToken"
	FieldUser         = "user"
	FieldDarkMode     = "darkMode"
)

var credentialFields = []string{FieldToken, FieldRefreshToken, FieldUser}

// Repository persists session fields. Store replaces whole field values.
type Repository interface {
	Load(ctx context.Context, sid string) (map[string]string, error)
	Store(ctx context.Context, sid string, fields map[string]string) error
	Remove(ctx context.Context, sid string, fields ...string) error
}

// Store is the single writer of console session state.
type Store struct {
	repo   Repository
	logger *zap.Logger
}

// NewStore constructs a session store.
func NewStore(repo Repository, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{repo: repo, logger: logger}
}

// NewID returns a fresh opaque session identifier.
func NewID() string {
	return uuid.NewString()
}

// Load returns a snapshot of the session. The boolean is false when any of the
// token, refresh token or profile is missing. A profile that cannot be decoded
// clears all three fields.
func (s *Store) Load(ctx context.Context, sid string) (models.Session, bool, error) {
	snapshot := models.Session{ID: sid}
	if sid == "" {
		return snapshot, false, nil
	}
	values, err := s.repo.Load(ctx, sid)
	if err != nil {
		return snapshot, false, err
	}
	snapshot.DarkMode = parseBool(values[FieldDarkMode])

	token, refresh, rawUser := values[FieldToken], values[FieldRefreshToken], values[FieldUser]
	if token == "" || refresh == "" || rawUser == "" {
		return snapshot, false, nil
	}

	var profile models.Profile
	if err := json.Unmarshal([]byte(rawUser), &profile); err != nil {
		s.logger.Warn("discarding malformed session profile", zap.String("sid", sid), zap.Error(err))
		if clearErr := s.Clear(ctx, sid); clearErr != nil {
			return snapshot, false, clearErr
		}
		return snapshot, false, nil
	}

	snapshot.AccessToken = token
	snapshot.RefreshToken = refresh
	snapshot.Profile = profile
	snapshot.ExpiresAt = TokenExpiry(token)
	return snapshot, true, nil
}

// Save persists the token pair and profile in one repository write.
func (s *Store) Save(ctx context.Context, sid string, tokens models.Tokens, profile models.Profile) error {
	rawUser, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return s.repo.Store(ctx, sid, map[string]string{
		FieldToken:        tokens.AccessToken,
		FieldRefreshToken: tokens.RefreshToken,
		FieldUser:         string(rawUser),
	})
}

// SetAccessToken replaces the stored access token after a refresh.
func (s *Store) SetAccessToken(ctx context.Context, sid, token string) error {
	return s.repo.Store(ctx, sid, map[string]string{FieldToken: token})
}

// SetProfile replaces the cached profile.
func (s *Store) SetProfile(ctx context.Context, sid string, profile models.Profile) error {
	rawUser, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return s.repo.Store(ctx, sid, map[string]string{FieldUser: string(rawUser)})
}

// Clear removes the token pair and profile. UI preferences survive.
func (s *Store) Clear(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	return s.repo.Remove(ctx, sid, credentialFields...)
}

// IsAuthenticatedAdmin reports whether sid holds a complete session for an admin.
func (s *Store) IsAuthenticatedAdmin(ctx context.Context, sid string) bool {
	snapshot, ok, err := s.Load(ctx, sid)
	if err != nil {
		s.logger.Warn("session lookup failed", zap.String("sid", sid), zap.Error(err))
		return false
	}
	return ok && snapshot.Profile.IsAdmin()
}

// SetDarkMode persists the theme preference.
func (s *Store) SetDarkMode(ctx context.Context, sid string, enabled bool) error {
	return s.repo.Store(ctx, sid, map[string]string{FieldDarkMode: strconv.FormatBool(enabled)})
}

// TokenExpiry reads the exp claim of an access token without verifying it.
// The console does not hold the signing key; the value is informational.
func TokenExpiry(token string) *time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil
	}
	if claims.ExpiresAt == nil {
		return nil
	}
	exp := claims.ExpiresAt.Time
	return &exp
}

func parseBool(raw string) bool {
	v, err := strconv.ParseBool(raw)
	return err == nil && v
}
