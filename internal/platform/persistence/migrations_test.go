package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunMigrations_InputValidation(t *testing.T) {
	t.Run("EmptyMigrationsPath", func(t *testing.T) {
		err := RunMigrations("postgres://test", "")
		assert.Error(t, err)
		assert.EqualError(t, err, "migrations path cannot be empty")
	})

	t.Run("EmptyDatabaseURL", func(t *testing.T) {
		err := RunMigrations("", "file://./migrations")
		assert.Error(t, err)
		assert.EqualError(t, err, "database URL cannot be empty")
	})

	t.Run("PrefixesBarePaths", func(t *testing.T) {
		// A bare path gets the file:// scheme; the bad URL then fails at the
		// database step, not the source step.
		err := RunMigrations("not-a-database-url", "./migrations/postgres")
		assert.Error(t, err)
	})

	// Only testing input validation since full migration tests require a test DB
}
