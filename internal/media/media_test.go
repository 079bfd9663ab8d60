package media

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestReadImage(t *testing.T) {
	data, contentType, err := ReadImage(bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
	assert.Equal(t, pngHeader, data)

	_, _, err = ReadImage(strings.NewReader("plain text"))
	assert.ErrorIs(t, err, ErrNotImage)

	big := append(append([]byte{}, pngHeader...), make([]byte, MaxImageBytes)...)
	_, _, err = ReadImage(bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestPutDiscardLink(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	ref, err := Put(ctx, store, CoverPrefix(7), "Cover.PNG", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "memory://covers/7/"))
	assert.True(t, strings.HasSuffix(ref, ".png"))

	key, ok := store.Key(ref)
	require.True(t, ok)
	_, contentType, ok := store.Object(key)
	require.True(t, ok)
	assert.Equal(t, "image/png", contentType)

	link, err := Link(ctx, store, ref)
	require.NoError(t, err)
	assert.Equal(t, ref, link)

	external := "https://covers.example.com/dune.jpg"
	link, err = Link(ctx, store, external)
	require.NoError(t, err)
	assert.Equal(t, external, link)
	require.NoError(t, Discard(ctx, store, &external))
	assert.Equal(t, 1, store.Len())

	require.NoError(t, Discard(ctx, store, &ref))
	require.NoError(t, Discard(ctx, store, nil))
	assert.Equal(t, 0, store.Len())

	_, err = Put(ctx, store, AvatarPrefix(1), "notes.txt", strings.NewReader("hello"))
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestLink_NilStore(t *testing.T) {
	link, err := Link(context.Background(), nil, "memory://covers/1/a.png")
	require.NoError(t, err)
	assert.Equal(t, "memory://covers/1/a.png", link)
}
