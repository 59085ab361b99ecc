package apperrors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("loading: %w", NotFound("credential"))

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrForbidden)

	appErr, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, "credential", appErr.Resource)
	assert.Equal(t, "credential not found", appErr.Message)
}

func TestMessageFormatting(t *testing.T) {
	err := Precondition("credential is %s, expected %s", "draft", "pending_verification")

	assert.ErrorIs(t, err, ErrPrecondition)
	assert.Equal(t, "credential is draft, expected pending_verification", err.Error())
}

func TestAsOnPlainError(t *testing.T) {
	_, ok := As(fmt.Errorf("boom"))
	assert.False(t, ok)
}
