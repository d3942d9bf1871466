package common

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"not found", fmt.Errorf("session: %w", ErrNotFound), codes.NotFound},
		{"validation", NewValidator().Field("id", "", Required).Error(), codes.InvalidArgument},
		{"unavailable", NewAppError("VELNEO", "submit", ErrUnavailable), codes.Unavailable},
		{"canceled", fmt.Errorf("process: %w", context.Canceled), codes.Canceled},
		{"conflict", ErrConflict, codes.AlreadyExists},
		{"plain", fmt.Errorf("boom"), codes.Internal},
		{"status kept", FailedPreconditionError("not on form"), codes.FailedPrecondition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(ToStatus(tt.err)))
		})
	}
	assert.NoError(t, ToStatus(nil))
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError(nil, "query document"))

	err := WrapError(ErrNotFound, "query document")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "query document: resource not found", err.Error())
}

func TestValidatorRules(t *testing.T) {
	v := NewValidator().
		Field("name", "  ", Required).
		Field("code", "TOOLONG", MaxLength(3)).
		Field("op", "NUEVA", OneOf("NUEVA", "ENDOSO")).
		Field("ratio", 1.5, Between(0, 1)).
		Field("id", "not-a-uuid", UUID)

	assert.True(t, v.HasErrors())
	var fields []string
	for _, e := range v.Errors() {
		fields = append(fields, e.Field)
	}
	assert.Equal(t, []string{"name", "code", "ratio", "id"}, fields)
	assert.True(t, IsValidation(v.Error()))
	assert.Equal(t, codes.InvalidArgument, status.Code(ValidateAndReturnError(v)))

	assert.Nil(t, NewValidator().Error())
}
