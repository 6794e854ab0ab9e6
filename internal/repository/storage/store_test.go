package storage

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_ReadWriteDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Read(ctx, "trans_db/2024/03.csv")
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	require.NoError(t, store.Write(ctx, "trans_db/2024/03.csv", []byte("id,date\n")))

	data, err := store.Read(ctx, "trans_db/2024/03.csv")
	require.NoError(t, err)
	assert.Equal(t, "id,date\n", string(data))

	exists, err := store.Exists(ctx, "trans_db/2024/03.csv")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Delete(ctx, "trans_db/2024/03.csv"))
	exists, err = store.Exists(ctx, "trans_db/2024/03.csv")
	require.NoError(t, err)
	assert.False(t, exists)

	// Deleting a missing path is not an error.
	require.NoError(t, store.Delete(ctx, "trans_db/2024/03.csv"))
}

func TestLocalStore_Listing(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Write(ctx, "trans_db/2023/12.csv", []byte("x")))
	require.NoError(t, store.Write(ctx, "trans_db/2024/03.csv", []byte("x")))
	require.NoError(t, store.Write(ctx, "trans_db/2024/04.csv", []byte("x")))

	years, err := store.ListDirs(ctx, "trans_db")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"2023", "2024"}, years)

	files, err := store.ListFiles(ctx, "trans_db/2024")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"03.csv", "04.csv"}, files)

	// Subdirectories are not files.
	files, err = store.ListFiles(ctx, "trans_db")
	require.NoError(t, err)
	assert.Empty(t, files)

	// Missing directories list as empty.
	dirs, err := store.ListDirs(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, dirs)
}
