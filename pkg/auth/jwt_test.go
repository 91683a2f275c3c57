package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewTokenService("secret", "reminder-api", time.Hour)
	owner := uuid.New()

	token, err := svc.GenerateToken(owner)
	require.NoError(t, err)

	got, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, owner, got)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenService("secret", "", time.Hour).GenerateToken(uuid.New())
	require.NoError(t, err)

	_, err = NewTokenService("other", "", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := NewTokenService("secret", "", time.Minute)
	issued := time.Now().Add(-time.Hour)
	svc.now = func() time.Time { return issued }
	token, err := svc.GenerateToken(uuid.New())
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	_, err := NewTokenService("secret", "", time.Hour).ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestOwnerContext(t *testing.T) {
	_, ok := OwnerFromContext(context.Background())
	assert.False(t, ok)

	_, ok = OwnerFromContext(WithOwner(context.Background(), uuid.Nil))
	assert.False(t, ok)

	owner := uuid.New()
	got, ok := OwnerFromContext(WithOwner(context.Background(), owner))
	assert.True(t, ok)
	assert.Equal(t, owner, got)
}
