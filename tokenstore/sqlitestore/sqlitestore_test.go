package sqlitestore_test

import (
	"path/filepath"
	"testing"

	"github.com/jrsteele09/ferretcontrol-console/tokenstore"
	"github.com/jrsteele09/ferretcontrol-console/tokenstore/sqlitestore"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_SetGetDelete(t *testing.T) {
	s, err := sqlitestore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.Get(tokenstore.AccessTokenKey)
	require.ErrorIs(t, err, tokenstore.ErrNotFound)

	require.NoError(t, s.Set(tokenstore.AccessTokenKey, "a1"))
	require.NoError(t, s.Set(tokenstore.AccessTokenKey, "a2"))

	v, err := s.Get(tokenstore.AccessTokenKey)
	require.NoError(t, err)
	require.Equal(t, "a2", v)

	require.NoError(t, s.Delete(tokenstore.AccessTokenKey))
	require.NoError(t, s.Delete(tokenstore.AccessTokenKey))

	_, ok, err := tokenstore.Lookup(s, tokenstore.AccessTokenKey)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "tokens.db")

	s, err := sqlitestore.Open(dsn)
	require.NoError(t, err)
	require.NoError(t, s.Set(tokenstore.RefreshTokenKey, "r1"))
	require.NoError(t, s.Close())

	reopened, err := sqlitestore.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	v, err := reopened.Get(tokenstore.RefreshTokenKey)
	require.NoError(t, err)
	require.Equal(t, "r1", v)
}
