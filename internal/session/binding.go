package session

import (
	"context"

	"github.com/noah-isme/academy-admin/internal/models"
)

// Binding ties a Store to one session id so the REST client can read and
// rotate credentials without knowing where they live.
type Binding struct {
	store *Store
	sid   string
}

// Bind returns the credentials view of sid.
func (s *Store) Bind(sid string) *Binding {
	return &Binding{store: s, sid: sid}
}

// SessionID returns the bound session id.
func (b *Binding) SessionID() string {
	return b.sid
}

// Tokens returns a snapshot of the current token pair. Missing sessions yield empty tokens.
func (b *Binding) Tokens(ctx context.Context) (models.Tokens, error) {
	snapshot, ok, err := b.store.Load(ctx, b.sid)
	if err != nil || !ok {
		return models.Tokens{}, err
	}
	return snapshot.Tokens(), nil
}

// RotateAccessToken stores a refreshed access token.
func (b *Binding) RotateAccessToken(ctx context.Context, token string) error {
	return b.store.SetAccessToken(ctx, b.sid, token)
}

// Invalidate clears the session after an unrecoverable authorization failure.
func (b *Binding) Invalidate(ctx context.Context) error {
	return b.store.Clear(ctx, b.sid)
}
