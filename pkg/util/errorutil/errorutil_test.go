package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestDomainErrorIsMatchesByCode(t *testing.T) {
	detailed := ErrAlreadyPaused.WithDetails(map[string]any{"project_id": "p1"})
	wrapped := fmt.Errorf("pause: %w", detailed)

	assert.True(t, errors.Is(wrapped, ErrAlreadyPaused))
	assert.False(t, errors.Is(wrapped, ErrNotPaused))
	assert.Nil(t, ErrAlreadyPaused.Details, "sentinel must stay untouched")
}

func TestToDomainError(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))

	notFound := ToDomainError(fmt.Errorf("get: %w", pgx.ErrNoRows))
	assert.Equal(t, "NOT_FOUND", notFound.Code)
	assert.Equal(t, http.StatusNotFound, notFound.HTTPStatus)

	internal := ToDomainError(errors.New("boom"))
	assert.Equal(t, "INTERNAL_ERROR", internal.Code)
	assert.Equal(t, http.StatusInternalServerError, internal.HTTPStatus)

	conflict := ToDomainError(ErrConcurrentModification)
	assert.Equal(t, http.StatusConflict, conflict.HTTPStatus)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(pgx.ErrNoRows))
	assert.True(t, IsNotFound(NewNotFound("request", nil)))
	assert.False(t, IsNotFound(ErrProjectPaused))
}
