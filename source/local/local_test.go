package local

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobeaver/lockscan/source"
)

func tree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "mail", "2024"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "top.pdf"), []byte("12345"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "mail", "2024", "a.eml"), []byte("abc"), 0o600))
	return root
}

func TestWalk(t *testing.T) {
	a, err := New(tree(t))
	require.NoError(t, err)

	var objs []source.Object
	require.NoError(t, a.Walk(context.Background(), func(obj source.Object, err error) error {
		require.NoError(t, err)
		objs = append(objs, obj)
		return nil
	}))
	sort.Slice(objs, func(i, j int) bool { return objs[i].Path < objs[j].Path })

	assert.Equal(t, []source.Object{
		{Path: "mail/2024/a.eml", Size: 3},
		{Path: "top.pdf", Size: 5},
	}, objs)
}

func TestWalkMissingRoot(t *testing.T) {
	a, err := New(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)

	var walkErr error
	require.NoError(t, a.Walk(context.Background(), func(_ source.Object, err error) error {
		walkErr = err
		return nil
	}))
	assert.ErrorIs(t, walkErr, fs.ErrNotExist)
}

func TestOpen(t *testing.T) {
	a, err := New(tree(t))
	require.NoError(t, err)
	ctx := context.Background()

	rc, err := a.Open(ctx, "mail/2024/a.eml")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "abc", string(data))

	_, err = a.Open(ctx, "nope.pdf")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = a.Open(ctx, "../../etc/passwd")
	assert.ErrorIs(t, err, source.ErrOutsideRoot)
}

func TestRegistered(t *testing.T) {
	root := tree(t)

	src, err := source.Open(context.Background(), root)
	require.NoError(t, err)
	require.IsType(t, &Adapter{}, src)
	assert.Equal(t, root, src.(*Adapter).Root())
}
