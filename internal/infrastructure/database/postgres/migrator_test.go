package postgres

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations_PairedUpAndDown(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case len(e.Name()) > 7 && e.Name()[len(e.Name())-7:] == ".up.sql":
			ups++
		case len(e.Name()) > 9 && e.Name()[len(e.Name())-9:] == ".down.sql":
			downs++
		default:
			t.Fatalf("unexpected migration file %q", e.Name())
		}
	}
	assert.Equal(t, ups, downs, "every up migration needs a matching down migration")
}

func TestRollbackMigration_RejectsNonPositiveSteps(t *testing.T) {
	err := RollbackMigration("postgres://localhost/ignored", "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steps must be greater than 0")

	err = RollbackMigration("postgres://localhost/ignored", "", -3)
	require.Error(t, err)
}
