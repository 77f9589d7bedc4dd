package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vyrodovalexey/scoregw/internal/config"
	"github.com/vyrodovalexey/scoregw/internal/secrets"
	"github.com/vyrodovalexey/scoregw/internal/store"
)

func newTestState(t *testing.T, cfg *config.Config) *State {
	t.Helper()

	st, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	sec, err := secrets.NewStore("0123456789abcdef0123456789abcdef", secrets.Policy{Leeway: time.Minute, TokenTTL: time.Hour})
	require.NoError(t, err)

	state, err := New(cfg, st, sec, nil, nil)
	require.NoError(t, err)
	return state
}

func TestNew_RequiresMembers(t *testing.T) {
	t.Parallel()

	sec, err := secrets.NewStore("s", secrets.Policy{})
	require.NoError(t, err)

	tests := []struct {
		name string
		cfg  *config.Config
		st   store.Store
		sec  *secrets.Store
	}{
		{name: "no config", st: &store.Redis{}, sec: sec},
		{name: "no store", cfg: config.Default(), sec: sec},
		{name: "no secrets", cfg: config.Default(), st: &store.Redis{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.cfg, tt.st, tt.sec, nil, nil)
			assert.ErrorIs(t, err, ErrIncompleteState)
		})
	}
}

func TestSeedAdmin(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Auth.AdminPassword = "s3cret-pass"
	state := newTestState(t, cfg)

	require.NoError(t, state.SeedAdmin(context.Background()))

	u, err := state.Store.FindUser(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", u.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret-pass")))
}

func TestSeedAdmin_SkippedWithoutPassword(t *testing.T) {
	t.Parallel()

	state := newTestState(t, config.Default())

	require.NoError(t, state.SeedAdmin(context.Background()))

	_, err := state.Store.FindUser(context.Background(), "admin")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
