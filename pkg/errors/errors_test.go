package errors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	pkgerrors "github.com/surjbayarea/actionsync/pkg/errors"
)

func TestNew(t *testing.T) {
	err := pkgerrors.New("test error")
	assert.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestNotFoundError(t *testing.T) {
	t.Run("basic error", func(t *testing.T) {
		err := &pkgerrors.NotFoundError{
			Resource: "contact",
			ID:       "someone@example.com",
		}
		assert.Equal(t, "contact with ID someone@example.com not found", err.Error())
		assert.True(t, errors.Is(err, pkgerrors.ErrNotFound))
	})

	t.Run("constructor", func(t *testing.T) {
		err := pkgerrors.NewNotFoundError("activist code", "Phoner")
		assert.Equal(t, "activist code with ID Phoner not found", err.Error())
		assert.True(t, pkgerrors.IsNotFound(err))
	})
}

func TestValidationError(t *testing.T) {
	t.Run("with field", func(t *testing.T) {
		err := &pkgerrors.ValidationError{
			Field:   "email",
			Message: "column missing from header",
		}
		assert.Equal(t, "validation failed for field email: column missing from header", err.Error())
		assert.True(t, errors.Is(err, pkgerrors.ErrInvalidInput))
	})

	t.Run("without field", func(t *testing.T) {
		err := &pkgerrors.ValidationError{
			Message: "start row exceeds end row",
		}
		assert.Equal(t, "validation failed: start row exceeds end row", err.Error())
		assert.True(t, pkgerrors.IsValidationError(err))
	})
}

func TestAPIError(t *testing.T) {
	t.Run("with status code", func(t *testing.T) {
		err := &pkgerrors.APIError{
			Endpoint:   "/people/find",
			StatusCode: 429,
			Message:    "too many requests",
		}
		assert.Contains(t, err.Error(), "/people/find")
		assert.Contains(t, err.Error(), "429")
		assert.True(t, pkgerrors.IsRateLimited(err))
	})

	t.Run("server error maps to remote unavailable", func(t *testing.T) {
		err := pkgerrors.NewAPIError("/activistCodes", 503, "maintenance")
		assert.True(t, pkgerrors.IsRemoteUnavailable(err))
		assert.False(t, pkgerrors.IsRateLimited(err))
	})

	t.Run("wrapping preserves cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := pkgerrors.WrapAPI("/people/42", 0, cause)
		assert.True(t, errors.Is(err, cause))
	})
}

func TestConfigError(t *testing.T) {
	err := pkgerrors.NewConfigError("checkpoint", "log exists, use --resume or --overwrite", nil)
	assert.Contains(t, err.Error(), "checkpoint")
	assert.Contains(t, err.Error(), "--resume")
}

func TestIOError(t *testing.T) {
	cause := errors.New("permission denied")
	err := pkgerrors.WrapIO("open", "export.csv.log", cause)
	assert.Contains(t, err.Error(), "export.csv.log")
	assert.True(t, errors.Is(err, cause))
}

func TestParseError(t *testing.T) {
	err := pkgerrors.NewParseError("csv", "tags_mapping.csv", "missing column 'old'", nil)
	assert.Contains(t, err.Error(), "tags_mapping.csv")
	assert.Contains(t, err.Error(), "missing column 'old'")
}
