package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslateTxError(t *testing.T) {
	other := errors.New("connection reset")
	uniqueViolation := &pgconn.PgError{Code: "23505"}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, ErrConflict},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, ErrConflict},
		{"wrapped deadlock", fmt.Errorf("shift bucket 1/1: %w", &pgconn.PgError{Code: "40P01"}), ErrConflict},
		{"record not found", gorm.ErrRecordNotFound, ErrNotFound},
		{"service error passes through", ErrPermissionDenied, ErrPermissionDenied},
		{"other postgres error passes through", uniqueViolation, uniqueViolation},
		{"unknown error passes through", other, other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateTxError(tt.err)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}
