package contextutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("user@example.com"))
	assert.True(t, IsValidEmail("user+tag@example.co.uk"))

	assert.False(t, IsValidEmail(""))
	assert.False(t, IsValidEmail("invalid-email"))
	assert.False(t, IsValidEmail("user@"))
	assert.False(t, IsValidEmail("user name@example.com"))
}

type signup struct {
	Name     string `validate:"required"`
	Password string `validate:"required,min=8"`
}

func TestValidateStruct(t *testing.T) {
	require.NoError(t, ValidateStruct(signup{Name: "Ada", Password: "longenough"}))

	err := ValidateStruct(signup{Name: "", Password: "short"})
	require.Error(t, err)
	assert.Equal(t, ErrorCodeValidationFailed, GetErrorCode(err))

	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Details, "name failed required")
	assert.Contains(t, appErr.Details, "password failed min")
}
