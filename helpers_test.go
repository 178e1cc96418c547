package lockscan

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gobeaver/lockscan/compound"
)

type entry struct {
	name      string
	data      []byte
	encrypted bool
}

func zipOf(t testing.TB, entries ...entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		fh := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		if e.encrypted {
			fh.Flags |= 0x1
		}
		w, err := zw.CreateHeader(fh)
		require.NoError(t, err)
		_, err = w.Write(e.data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// lockedDocx builds the compound wrapper of a password protected docx
func lockedDocx(t testing.TB) []byte {
	t.Helper()
	root := compound.NewStorage(compound.RootName)
	root.AddStream("EncryptionInfo", bytes.Repeat([]byte{0x04}, 200))
	root.AddStream("EncryptedPackage", bytes.Repeat([]byte{0x5A}, 5000))
	data, err := compound.Encode(root)
	require.NoError(t, err)
	return data
}

func plainZip(t testing.TB) []byte {
	return zipOf(t,
		entry{name: "readme.txt", data: bytes.Repeat([]byte("plain text "), 20)},
		entry{name: "data.csv", data: []byte("a,b,c\n1,2,3\n")},
	)
}

func lockedZip(t testing.TB) []byte {
	return zipOf(t,
		entry{name: "readme.txt", data: []byte("hello")},
		entry{name: "payroll.xlsx", data: []byte("ciphertext"), encrypted: true},
	)
}

func writeFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func newChecker(t testing.TB, opts ...Option) *Checker {
	t.Helper()
	c, err := NewDefault(opts...)
	require.NoError(t, err)
	return c
}
