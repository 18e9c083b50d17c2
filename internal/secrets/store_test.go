package secrets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/contraconf/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "nested", "secrets.yaml"))
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s
}

func TestStore_EmptyWhenMissing(t *testing.T) {
	s := newTestStore(t)

	names, err := s.Names()
	require.NoError(t, err)
	assert.Empty(t, names)

	_, ok := s.Lookup("POLYGON_PRIVATE_KEY")
	assert.False(t, ok)

	_, err = s.Get("POLYGON_PRIVATE_KEY")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SetGetDelete(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set("POLYGON_PRIVATE_KEY", "0xabc", "deployer"))
	require.NoError(t, s.Set("POLYGONSCAN_API_KEY", "APIKEY", ""))

	v, ok := s.Lookup("POLYGON_PRIVATE_KEY")
	assert.True(t, ok)
	assert.Equal(t, "0xabc", v)

	sec, err := s.Get("POLYGON_PRIVATE_KEY")
	require.NoError(t, err)
	assert.Equal(t, "deployer", sec.Note)
	assert.Equal(t, "2026-01-02T03:04:05Z", sec.UpdatedAt)

	names, err := s.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"POLYGONSCAN_API_KEY", "POLYGON_PRIVATE_KEY"}, names)

	require.NoError(t, s.Delete("POLYGON_PRIVATE_KEY"))
	_, ok = s.Lookup("POLYGON_PRIVATE_KEY")
	assert.False(t, ok)

	assert.ErrorIs(t, s.Delete("POLYGON_PRIVATE_KEY"), ErrNotFound)
}

func TestStore_FilePermissions(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Set("POLYGON_PRIVATE_KEY", "0xabc", ""))

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Dir(s.Path()))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())
}

func TestStore_RejectsEmpty(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.Set("", "value", ""))
	assert.Error(t, s.Set("NAME", "", ""))
}

func TestStore_CorruptFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0700))
	require.NoError(t, os.WriteFile(s.Path(), []byte("secrets: [not a map"), 0600))

	_, ok := s.Lookup("ANY")
	assert.False(t, ok)

	_, err := s.Names()
	assert.Error(t, err)
}

func TestStore_AsResolverLookup(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Set("POLYGON_EXPLORER_API_KEY", "STOREDKEY", ""))

	d, err := config.DefaultProject().Defaults("polygon")
	require.NoError(t, err)

	cfg, err := config.Resolve(d, config.Chain(config.MapLookup{}, s), config.IntentVerify)
	require.NoError(t, err)
	assert.Equal(t, "STOREDKEY", cfg.Verification.APIKey)

	// environment-style sources earlier in the chain win
	cfg, err = config.Resolve(d, config.Chain(config.MapLookup{"POLYGON_EXPLORER_API_KEY": "ENVKEY"}, s), config.IntentVerify)
	require.NoError(t, err)
	assert.Equal(t, "ENVKEY", cfg.Verification.APIKey)
}
