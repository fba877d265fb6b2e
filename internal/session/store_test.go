package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-admin/internal/models"
)

type memRepo struct {
	data    map[string]map[string]string
	loadErr error
}

func newMemRepo() *memRepo {
	return &memRepo{data: map[string]map[string]string{}}
}

func (m *memRepo) Load(_ context.Context, sid string) (map[string]string, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := map[string]string{}
	for k, v := range m.data[sid] {
		out[k] = v
	}
	return out, nil
}

func (m *memRepo) Store(_ context.Context, sid string, fields map[string]string) error {
	if m.data[sid] == nil {
		m.data[sid] = map[string]string{}
	}
	for k, v := range fields {
		m.data[sid][k] = v
	}
	return nil
}

func (m *memRepo) Remove(_ context.Context, sid string, fields ...string) error {
	for _, f := range fields {
		delete(m.data[sid], f)
	}
	return nil
}

var adminProfile = models.Profile{ID: "u1", FullName: "Ada Admin", Email: "ada@x.com", Role: models.RoleAdmin}

func TestSaveThenLoad(t *testing.T) {
	store := NewStore(newMemRepo(), nil)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "sid", models.Tokens{AccessToken: "a", RefreshToken: "r"}, adminProfile))

	snapshot, ok, err := store.Load(ctx, "sid")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", snapshot.AccessToken)
	assert.Equal(t, "r", snapshot.RefreshToken)
	assert.Equal(t, adminProfile, snapshot.Profile)
	assert.Nil(t, snapshot.ExpiresAt)
}

func TestIsAuthenticatedAdminLifecycle(t *testing.T) {
	store := NewStore(newMemRepo(), nil)
	ctx := context.Background()

	assert.False(t, store.IsAuthenticatedAdmin(ctx, "sid"))

	require.NoError(t, store.Save(ctx, "sid", models.Tokens{AccessToken: "a", RefreshToken: "r"}, adminProfile))
	assert.True(t, store.IsAuthenticatedAdmin(ctx, "sid"))

	require.NoError(t, store.Clear(ctx, "sid"))
	assert.False(t, store.IsAuthenticatedAdmin(ctx, "sid"))

	member := adminProfile
	member.Role = models.RoleUser
	require.NoError(t, store.Save(ctx, "sid", models.Tokens{AccessToken: "a", RefreshToken: "r"}, member))
	assert.False(t, store.IsAuthenticatedAdmin(ctx, "sid"))
}

func TestLoadRequiresAllThreeFields(t *testing.T) {
	repo := newMemRepo()
	store := NewStore(repo, nil)
	repo.data["sid"] = map[string]string{FieldToken: "a", FieldUser: `{"role":"admin"}`}

	_, ok, err := store.Load(context.Background(), "sid")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMalformedProfileClearsSession(t *testing.T) {
	repo := newMemRepo()
	store := NewStore(repo, nil)
	repo.data["sid"] = map[string]string{
		FieldToken:        "a",
		FieldRefreshToken: "r",
		FieldUser:         "{not json",
		FieldDarkMode:     "true",
	}

	_, ok, err := store.Load(context.Background(), "sid")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, map[string]string{FieldDarkMode: "true"}, repo.data["sid"])
}

func TestLoadPropagatesRepositoryError(t *testing.T) {
	repo := newMemRepo()
	repo.loadErr = errors.New("redis down")
	store := NewStore(repo, nil)

	_, ok, err := store.Load(context.Background(), "sid")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.False(t, store.IsAuthenticatedAdmin(context.Background(), "sid"))
}

func TestDarkModeSurvivesClear(t *testing.T) {
	store := NewStore(newMemRepo(), nil)
	ctx := context.Background()

	require.NoError(t, store.SetDarkMode(ctx, "sid", true))
	require.NoError(t, store.Save(ctx, "sid", models.Tokens{AccessToken: "a", RefreshToken: "r"}, adminProfile))
	require.NoError(t, store.Clear(ctx, "sid"))

	snapshot, ok, err := store.Load(ctx, "sid")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, snapshot.DarkMode)
}

func TestBindingRotatesAndInvalidates(t *testing.T) {
	store := NewStore(newMemRepo(), nil)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "sid", models.Tokens{AccessToken: "old", RefreshToken: "r"}, adminProfile))

	binding := store.Bind("sid")
	require.NoError(t, binding.RotateAccessToken(ctx, "new"))

	tokens, err := binding.Tokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Tokens{AccessToken: "new", RefreshToken: "r"}, tokens)

	require.NoError(t, binding.Invalidate(ctx))
	tokens, err = binding.Tokens(ctx)
	require.NoError(t, err)
	assert.Empty(t, tokens.AccessToken)
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}).SignedString([]byte("upstream-secret"))
	require.NoError(t, err)

	got := TokenExpiry(token)
	require.NotNil(t, got)
	assert.True(t, exp.Equal(*got))
	assert.Nil(t, TokenExpiry("opaque"))
}
