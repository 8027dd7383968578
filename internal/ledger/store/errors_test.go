package store

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/payrecon/internal/reconcile"
)

func TestClassify(t *testing.T) {
	type testCase struct {
		name     string
		err      error
		wantKind reconcile.Kind
		wantIs   error
	}

	tests := []testCase{
		{
			name:     "LockTimeout",
			err:      &pgconn.PgError{Code: "55P03", Message: "canceling statement due to lock timeout"},
			wantKind: reconcile.KindTransient,
			wantIs:   reconcile.ErrTransient,
		},
		{
			name:     "Deadlock",
			err:      &pgconn.PgError{Code: "40P01"},
			wantKind: reconcile.KindTransient,
			wantIs:   reconcile.ErrTransient,
		},
		{
			name:     "SerializationFailure",
			err:      &pgconn.PgError{Code: "40001"},
			wantKind: reconcile.KindTransient,
			wantIs:   reconcile.ErrTransient,
		},
		{
			name:     "CheckViolation",
			err:      &pgconn.PgError{Code: "23514", ConstraintName: "payouts_amount_check"},
			wantKind: reconcile.KindConsistency,
			wantIs:   reconcile.ErrConsistencyViolation,
		},
		{
			name:     "ForeignKeyViolation",
			err:      &pgconn.PgError{Code: "23503"},
			wantKind: reconcile.KindConsistency,
			wantIs:   reconcile.ErrConsistencyViolation,
		},
		{
			name:     "ValueTooLong",
			err:      &pgconn.PgError{Code: "22001", Message: "value too long for type character varying(32)"},
			wantKind: reconcile.KindPermanent,
			wantIs:   reconcile.ErrPermanent,
		},
		{
			name:     "UntranslatableCharacter",
			err:      &pgconn.PgError{Code: "22P05", Message: "unsupported Unicode escape sequence"},
			wantKind: reconcile.KindPermanent,
			wantIs:   reconcile.ErrPermanent,
		},
		{
			name:     "SyntaxError",
			err:      &pgconn.PgError{Code: "42601"},
			wantKind: reconcile.KindTransient,
		},
		{
			name:     "NotPostgres",
			err:      errors.New("driver: bad connection"),
			wantKind: reconcile.KindTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify("op", tt.err)

			assert.Equal(t, tt.wantKind, reconcile.KindOf(got))
			assert.Contains(t, got.Error(), "op: ")

			if tt.wantIs != nil {
				assert.ErrorIs(t, got, tt.wantIs)
			}
		})
	}
}
