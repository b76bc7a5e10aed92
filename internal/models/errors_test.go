package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_UnwrapsKindAndCause(t *testing.T) {
	cause := errors.New("upstream timeout")
	err := NewGenerationError("Failed to generate storyboard", cause)

	assert.Equal(t, "Failed to generate storyboard", err.Error())
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrValidation)
}

func TestClientMessage(t *testing.T) {
	msg, ok := ClientMessage(fmt.Errorf("wrapped: %w", NewRateLimitError("slow down")))
	assert.True(t, ok)
	assert.Equal(t, "slow down", msg)

	_, ok = ClientMessage(errors.New("plain"))
	assert.False(t, ok)
}

func TestIsPrivileged(t *testing.T) {
	assert.True(t, IsPrivileged(RoleAdmin, false))
	assert.True(t, IsPrivileged(RoleSuperAdmin, false))
	assert.True(t, IsPrivileged(RoleUser, true))
	assert.False(t, IsPrivileged(RoleUser, false))
	assert.False(t, IsPrivileged("", false))
}
