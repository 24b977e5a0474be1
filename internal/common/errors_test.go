package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"invite required", ErrInviteRequired, KindInviteRequired},
		{"wrapped invalid invite", fmt.Errorf("consume: %w", ErrInvalidInvite), KindInvalidInvite},
		{"duplicate email", fmt.Errorf("create: %w", ErrDuplicateEmail), KindDuplicateEmail},
		{"invalid token", ErrInvalidToken, KindInvalidToken},
		{"unauthorized", ErrUnauthorized, KindUnauthorized},
		{"already exists", ErrAlreadyExists, KindAlreadyExists},
		{"not found", ErrorNotFound, KindNotFound},
		{"validation", ErrValidation, KindValidation},
		{"unknown", errors.New("boom"), KindInternal},
		{"internal", ErrorInternal, KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}
