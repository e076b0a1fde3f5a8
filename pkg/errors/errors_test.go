package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClonedErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("handler: %w", Clone(ErrValidation, "key column missing"))

	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrInternal))
}

func TestFromErrorWrapsPlainErrors(t *testing.T) {
	appErr := FromError(errors.New("boom"))

	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, "internal server error: boom", appErr.Error())
}

func TestWrapAsKeepsCodeAndCause(t *testing.T) {
	cause := errors.New("relation does not exist")
	appErr := WrapAs(ErrSchemaLookupFailed, cause, "")

	assert.Equal(t, ErrSchemaLookupFailed.Code, appErr.Code)
	assert.Equal(t, ErrSchemaLookupFailed.Message, appErr.Message)
	assert.ErrorIs(t, appErr, cause)
}
