package attendance

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"attendvault/internal/store"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()
	db, err := store.Open(ctx, "sqlite3", filepath.Join(t.TempDir(), "attendance.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx, Schema))
	return NewRepository(db)
}

func validRegistration(username, email string) Registration {
	return Registration{
		Username:           username,
		Email:              email,
		Phone:              "5550001111",
		Department:         "CSE",
		Semester:           "3",
		RegistrationNumber: "REG-" + username,
		Gender:             "female",
		Password:           "password1",
		Confirmation:       "password1",
	}
}

// countingStore fails the test on any call; it proves a code path never
// reaches the database.
type countingStore struct {
	Store
	t *testing.T
}

func (c countingStore) FindSession(context.Context, Payload) (*Session, error) {
	c.t.Fatal("FindSession must not be called")
	return nil, nil
}
