package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendvault/internal/attendance"
	"attendvault/internal/config"
	"attendvault/internal/store"
)

func runCtl(t *testing.T, cfg config.App, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(cfg)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestAdminCommands(t *testing.T) {
	dir := t.TempDir()
	cfg := config.App{
		AttendanceDBDriver: "sqlite3",
		AttendanceDBDSN:    filepath.Join(dir, "attendance.db"),
		CardsDBDriver:      "sqlite3",
		CardsDBDSN:         filepath.Join(dir, "cards.db"),
	}

	out, err := runCtl(t, cfg, "migrate", "--cards")
	require.NoError(t, err)
	assert.Contains(t, out, "attendance schema ready")
	assert.Contains(t, out, "card schema ready")

	ctx := context.Background()
	db, err := store.Open(ctx, cfg.AttendanceDBDriver, cfg.AttendanceDBDSN)
	require.NoError(t, err)
	u := &attendance.User{Username: "lecturer", Email: "lecturer@example.com", PasswordHash: "x"}
	require.NoError(t, attendance.NewRepository(db).CreateUser(ctx, u))
	require.NoError(t, db.Close())

	out, err = runCtl(t, cfg, "grant-admin", "lecturer@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "lecturer is now an admin")

	out, err = runCtl(t, cfg, "list-admins")
	require.NoError(t, err)
	assert.Contains(t, out, "USERNAME")
	assert.Contains(t, out, "lecturer@example.com")

	out, err = runCtl(t, cfg, "revoke-admin", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "no longer an admin")

	out, err = runCtl(t, cfg, "list-admins")
	require.NoError(t, err)
	assert.NotContains(t, out, "lecturer@example.com")

	_, err = runCtl(t, cfg, "grant-admin", "nobody@example.com")
	assert.ErrorContains(t, err, "no user")

	_, err = runCtl(t, cfg, "grant-admin")
	assert.Error(t, err)
}
