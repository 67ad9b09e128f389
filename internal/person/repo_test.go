package person

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "email constraint",
			err:  &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "persons_email_key"},
			want: ErrDuplicateEmail,
		},
		{
			name: "username constraint",
			err:  &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "persons_username_key"},
			want: ErrDuplicateUsername,
		},
		{
			name: "expression index detail",
			err:  &pgconn.PgError{Code: pgerrcode.UniqueViolation, Detail: "Key (lower(email))=(a@b.c) already exists."},
			want: ErrDuplicateEmail,
		},
		{
			name: "wrapped",
			err:  fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "persons_username_key"}),
			want: ErrDuplicateUsername,
		},
		{
			name: "other code",
			err:  &pgconn.PgError{Code: pgerrcode.NotNullViolation, ConstraintName: "persons_email_key"},
		},
		{
			name: "not a pg error",
			err:  errors.New("boom"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapUniqueViolation(tt.err))
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane@example.com", NormalizeEmail("  Jane@Example.COM "))
}

func TestCanLogin(t *testing.T) {
	assert.True(t, (&Person{IsActive: true}).CanLogin())
	assert.False(t, (&Person{IsActive: false}).CanLogin())
	assert.False(t, (&Person{IsActive: true, IsDeleted: true}).CanLogin())
}
