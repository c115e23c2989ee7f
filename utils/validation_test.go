package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Name  string `validate:"required,min=2,max=10"`
	Email string `validate:"omitempty,email"`
	URL   string `validate:"omitempty,url"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid struct passes", func(t *testing.T) {
		err := ValidateStruct(sampleRequest{Name: "alice", Email: "alice@example.com", URL: "https://example.com"})
		assert.NoError(t, err)
	})

	t.Run("missing required field", func(t *testing.T) {
		err := ValidateStruct(sampleRequest{})
		require.Error(t, err)
		assert.True(t, IsValidationError(err))

		fields := GetValidationFields(err)
		assert.Contains(t, fields["Name"], "required")
	})

	t.Run("invalid email", func(t *testing.T) {
		err := ValidateStruct(sampleRequest{Name: "alice", Email: "not-an-email"})
		require.Error(t, err)
		assert.Contains(t, GetValidationFields(err)["Email"], "valid email")
	})

	t.Run("invalid url", func(t *testing.T) {
		err := ValidateStruct(sampleRequest{Name: "alice", URL: "::not a url::"})
		require.Error(t, err)
		assert.Contains(t, GetValidationFields(err)["URL"], "valid URL")
	})

	t.Run("min length", func(t *testing.T) {
		err := ValidateStruct(sampleRequest{Name: "a"})
		require.Error(t, err)
		assert.Contains(t, GetValidationFields(err)["Name"], "at least 2")
	})
}

func TestIsValidationError(t *testing.T) {
	assert.False(t, IsValidationError(nil))
	assert.False(t, IsValidationError(errors.New("plain error")))
	assert.True(t, IsValidationError(&ValidationError{Message: "Validation failed"}))
}

func TestGetValidationFields(t *testing.T) {
	assert.Nil(t, GetValidationFields(errors.New("plain error")))

	verr := &ValidationError{
		Message: "Validation failed",
		Fields:  map[string]string{"Name": "Name is required"},
	}
	assert.Equal(t, verr.Fields, GetValidationFields(verr))
}
