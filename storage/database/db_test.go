package database

import (
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	plain := errors.New("connection reset")

	tests := []struct {
		name           string
		err            error
		wantKind       error // nil: returned unchanged
		wantConstraint string
	}{
		{name: "nil", err: nil},
		{name: "not a pq error", err: plain},
		{name: "other pq error", err: &pq.Error{Code: "40001", Message: "could not serialize access"}},
		{
			name:           "unique violation",
			err:            &pq.Error{Code: "23505", Table: "enrollments", Constraint: "enrollments_course_student_key"},
			wantKind:       ErrUniqueViolation,
			wantConstraint: "enrollments_course_student_key",
		},
		{
			name:           "wrapped unique violation",
			err:            errors.Wrap(&pq.Error{Code: "23505", Constraint: "payments_enrollment_id_key"}, "inserting payment"),
			wantKind:       ErrUniqueViolation,
			wantConstraint: "payments_enrollment_id_key",
		},
		{
			name:           "foreign key violation",
			err:            &pq.Error{Code: "23503", Constraint: "enrollments_course_id_fkey"},
			wantKind:       ErrForeignKeyViolation,
			wantConstraint: "enrollments_course_id_fkey",
		},
		{
			name:           "check violation",
			err:            &pq.Error{Code: "23514", Constraint: "users_points_balance_check"},
			wantKind:       ErrCheckViolation,
			wantConstraint: "users_points_balance_check",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			if tt.wantKind == nil {
				assert.Equal(t, tt.err, got)
				return
			}
			cErr, ok := got.(*ConstraintError)
			require.True(t, ok, "got %T", got)
			assert.Equal(t, tt.wantKind, cErr.Kind)
			assert.Equal(t, tt.wantConstraint, cErr.Constraint)
			assert.True(t, IsConstraintError(tt.err, tt.wantKind, tt.wantConstraint))
			assert.True(t, IsConstraintError(tt.err, tt.wantKind, ""))
			assert.False(t, IsConstraintError(tt.err, tt.wantKind, "another_constraint"))
		})
	}

	assert.False(t, IsConstraintError(plain, ErrUniqueViolation, ""))
	assert.False(t, IsConstraintError(&pq.Error{Code: "23503"}, ErrUniqueViolation, ""))
}

func TestMigrate(t *testing.T) {
	origRun := gooseRunFunc
	defer func() { gooseRunFunc = origRun }()

	var gotCmd, gotDir string
	var gotArgs []string
	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		gotCmd, gotDir, gotArgs = command, dir, args
		if command == "lol" {
			return errors.Errorf("%q: no such command", command)
		}
		return nil
	}

	require.NoError(t, Migrate(nil, "up-to", "2"))
	assert.Equal(t, "up-to", gotCmd)
	assert.Equal(t, migrationsDir, gotDir)
	assert.Equal(t, []string{"2"}, gotArgs)

	err := Migrate(nil, "lol")
	require.Error(t, err)
	assert.Equal(t, `migrating database (lol): "lol": no such command`, err.Error())
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir(migrationsDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"00001_catalog.sql", "00002_enrollments.sql", "00003_audit_log.sql"}, names)
}
