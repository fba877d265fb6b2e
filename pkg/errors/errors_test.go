package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserMessage(t *testing.T) {
	upstream := Clone(ErrUpstream, "Category already exists")
	upstream.Status = http.StatusConflict

	assert.Equal(t, "Category already exists", UserMessage(upstream, "Failed to create category"))
	assert.Equal(t, "Failed to create category", UserMessage(Clone(ErrUpstream, ""), "Failed to create category"))
	assert.Equal(t, "Failed to load users", UserMessage(Wrap(fmt.Errorf("dial tcp"), ErrUpstreamUnavailable.Code, http.StatusBadGateway, ""), "Failed to load users"))
	assert.Equal(t, "Failed to load users", UserMessage(fmt.Errorf("boom"), "Failed to load users"))
	assert.Equal(t, "", UserMessage(nil, "x"))
}

func TestHasCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("list users: %w", ErrSessionExpired)
	assert.True(t, HasCode(err, ErrSessionExpired.Code))
	assert.False(t, HasCode(err, ErrBusy.Code))
}

func TestWithFields(t *testing.T) {
	err := WithFields(map[string]string{"name": "Category name is required"})
	assert.Equal(t, ErrValidation.Code, err.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, err.Status)
	assert.Nil(t, ErrValidation.Fields)
}
