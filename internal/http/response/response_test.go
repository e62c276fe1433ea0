package response

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/jukebox/internal/models"
)

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("op: %w", models.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("op: %w", models.ErrUnauthorized), http.StatusUnauthorized},
		{fmt.Errorf("op: %w", models.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("op: %w", models.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("op: %w", models.ErrConflict), http.StatusConflict},
		{fmt.Errorf("op: %w: %w", models.ErrUpstream, errors.New("timeout")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		got, msg := StatusFromError(tt.err)
		assert.Equal(t, tt.want, got, tt.err.Error())
		assert.NotEmpty(t, msg)
	}
}

func TestValidationError(t *testing.T) {
	type req struct {
		Email    string `validate:"required,email"`
		Username string `validate:"min=3"`
	}
	err := validator.New().Struct(req{Username: "ab"})
	require.Error(t, err)

	resp := ValidationError(err.(validator.ValidationErrors))
	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, "field Email is a required field, field Username is too short", resp.Error)
}

func TestStatusOKWithData(t *testing.T) {
	resp := StatusOKWithData(map[string]string{"a": "b"})
	assert.Equal(t, StatusOK, resp.Status)
	assert.Empty(t, resp.Error)
}

func TestRenderError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	RenderError(rec, req, fmt.Errorf("op: %w", models.ErrNotFound))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"status":"Error","error":"not found"}`, rec.Body.String())
}
