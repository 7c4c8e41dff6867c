package mapmedia

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndOpen(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Save("map-1", "image/png", strings.NewReader("png-bytes")))

	f, contentType, err := s.Open("map-1")
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, "image/png", contentType)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestSaveReplacesAcrossTypes(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Save("map-1", "image/png", strings.NewReader("old")))
	require.NoError(t, s.Save("map-1", "image/jpeg", strings.NewReader("new")))

	f, contentType, err := s.Open("map-1")
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, "image/jpeg", contentType)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestSaveUnsupportedType(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	err = s.Save("map-1", "image/gif", strings.NewReader("gif"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestOpenMissing(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, _, err = s.Open("nope")
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestDelete(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Save("map-1", "image/png", strings.NewReader("x")))
	require.NoError(t, s.Delete("map-1"))
	require.NoError(t, s.Delete("map-1"), "deleting a missing image is fine")

	_, _, err = s.Open("map-1")
	assert.ErrorIs(t, err, ErrNoImage)
}
