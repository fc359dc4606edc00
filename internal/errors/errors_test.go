package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrValidation, http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrNotFound, http.StatusNotFound},
		{ErrTimeout, http.StatusGatewayTimeout},
		{ErrMalformedAssessment, http.StatusBadGateway},
		{ErrStorageService, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.code, "x").HTTPStatus())
		})
	}
}

func TestGRPCStatus(t *testing.T) {
	assert.Equal(t, codes.Unavailable, MalformedAssessment("no NBest").GRPCStatus().Code())
	assert.Equal(t, codes.NotFound, NotFound("lesson").GRPCStatus().Code())
	assert.Equal(t, codes.Internal, Internal("boom").GRPCStatus().Code())
}

func TestIsCode_Wrapped(t *testing.T) {
	base := MalformedAssessment("empty NBest")
	wrapped := fmt.Errorf("building guidance card: %w", base)

	assert.True(t, IsCode(wrapped, ErrMalformedAssessment))
	assert.False(t, IsCode(wrapped, ErrNotFound))
	assert.False(t, IsCode(fmt.Errorf("plain"), ErrMalformedAssessment))

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "empty NBest", appErr.Details["reason"])
}

func TestError_IncludesCause(t *testing.T) {
	err := Storage("save guidance card", fmt.Errorf("disk full"))
	assert.Equal(t, "STORAGE_SERVICE_ERROR: save guidance card: disk full", err.Error())
	assert.EqualError(t, err.Unwrap(), "disk full")
}
