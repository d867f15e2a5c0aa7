package filestore_test

import (
	"testing"

	"github.com/jrsteele09/ferretcontrol-console/tokenstore"
	"github.com/jrsteele09/ferretcontrol-console/tokenstore/filestore"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const storePath = "/var/lib/ferret/tokens.json"

func TestFileStore_SetGetDelete(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := filestore.New(fs, storePath)
	require.NoError(t, err)

	_, err = s.Get(tokenstore.AccessTokenKey)
	require.ErrorIs(t, err, tokenstore.ErrNotFound)

	require.NoError(t, s.Set(tokenstore.AccessTokenKey, "access-1"))
	require.NoError(t, s.Set(tokenstore.RefreshTokenKey, "refresh-1"))
	require.NoError(t, s.Set(tokenstore.AccessTokenKey, "access-2"))

	v, err := s.Get(tokenstore.AccessTokenKey)
	require.NoError(t, err)
	require.Equal(t, "access-2", v)

	require.NoError(t, s.Delete(tokenstore.AccessTokenKey))
	require.NoError(t, s.Delete(tokenstore.AccessTokenKey), "deleting a missing key is not an error")

	_, err = s.Get(tokenstore.AccessTokenKey)
	require.ErrorIs(t, err, tokenstore.ErrNotFound)

	v, err = s.Get(tokenstore.RefreshTokenKey)
	require.NoError(t, err)
	require.Equal(t, "refresh-1", v)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := filestore.New(fs, storePath)
	require.NoError(t, err)
	require.NoError(t, s.Set(tokenstore.AccessTokenKey, "persisted"))

	reopened, err := filestore.New(fs, storePath)
	require.NoError(t, err)
	v, ok, err := tokenstore.Lookup(reopened, tokenstore.AccessTokenKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "persisted", v)

	exists, err := afero.Exists(fs, storePath+".tmp")
	require.NoError(t, err)
	require.False(t, exists, "temporary file must be renamed away")

	info, err := fs.Stat(storePath)
	require.NoError(t, err)
	require.Equal(t, "-rw-------", info.Mode().Perm().String())
}

func TestFileStore_CorruptFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, storePath, []byte("{not json"), 0o600))

	s, err := filestore.New(fs, storePath)
	require.NoError(t, err)

	_, err = s.Get(tokenstore.AccessTokenKey)
	require.Error(t, err)
	require.NotErrorIs(t, err, tokenstore.ErrNotFound)
}

func TestFileStore_RequiresPath(t *testing.T) {
	_, err := filestore.New(afero.NewMemMapFs(), "")
	require.Error(t, err)
}
