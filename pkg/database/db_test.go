package database

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(db))

	_, err = db.Exec(`INSERT INTO users(id, username, email, password_hash) VALUES('u1','dupe','dupe@x.test','!')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO users(id, username, email, password_hash) VALUES('u2','dupe','other@x.test','!')`)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	_, err = db.Exec(`INSERT INTO nope(id) VALUES('x')`)
	require.Error(t, err)
	assert.False(t, IsUniqueViolation(err))
	assert.False(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: users.username")))
}
