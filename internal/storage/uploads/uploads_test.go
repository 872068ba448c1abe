package uploads

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// 1x1 transparent PNG.
var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func TestStore_SaveImage(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	store, err := NewStore(dir, 1<<20)
	req.NoError(err)

	// When a png is uploaded
	path, err := store.SaveImage("my avatar.png", bytes.NewReader(pngPixel))

	// Then it is stored under a unique public name
	req.NoError(err)
	req.True(strings.HasPrefix(path, PublicPrefix))
	req.True(strings.HasSuffix(path, "-my_avatar.png"))

	stored, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(path, PublicPrefix)))
	req.NoError(err)
	req.Equal(pngPixel, stored)
}

func TestStore_SaveImage_RejectsNonImage(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	store, err := NewStore(dir, 1<<20)
	req.NoError(err)

	_, err = store.SaveImage("notes.txt", strings.NewReader("just some text"))

	req.ErrorIs(err, ErrUnsupportedType)
	entries, err := os.ReadDir(dir)
	req.NoError(err)
	req.Empty(entries)
}

func TestStore_SaveImage_TooLarge(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	store, err := NewStore(dir, 16)
	req.NoError(err)

	_, err = store.SaveImage("big.png", bytes.NewReader(pngPixel))

	req.ErrorIs(err, ErrTooLarge)
	entries, err := os.ReadDir(dir)
	req.NoError(err)
	req.Empty(entries)
}
