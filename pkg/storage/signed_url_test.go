package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("1714550400000_syllabus.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	name, parsedExpiry, err := signer.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "1714550400000_syllabus.pdf", name)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	token, _, err := signer.Generate("a.pdf")
	require.NoError(t, err)

	signer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, _, err = signer.Parse(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("a.pdf")
	require.NoError(t, err)

	other := NewSignedURLSigner("other", time.Hour)
	_, _, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = signer.Parse("bad-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	forged, _, err := signer.Generate("b.pdf")
	require.NoError(t, err)
	_, _, err = signer.Parse(forged[:len(forged)-1] + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
