package poster

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
)

func TestEncodeDataURI_SniffsMime(t *testing.T) {
	assert.True(t, strings.HasPrefix(EncodeDataURI(pngBytes), "data:image/png;base64,"))
	assert.True(t, strings.HasPrefix(EncodeDataURI(jpegBytes), "data:image/jpeg;base64,"))
	assert.True(t, strings.HasPrefix(EncodeDataURI([]byte("plain text")), "data:image/jpeg;base64,"))
	assert.Empty(t, EncodeDataURI(nil))
}

func TestDecodeDataURI(t *testing.T) {
	mime, data, err := DecodeDataURI(EncodeDataURI(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, pngBytes, data)

	_, _, err = DecodeDataURI("assets/posters/x.jpg")
	assert.ErrorIs(t, err, ErrNotDataURI)
	_, _, err = DecodeDataURI("data:image/png,raw")
	assert.ErrorIs(t, err, ErrNotDataURI)
	_, _, err = DecodeDataURI("data:image/png;base64,!!!")
	assert.Error(t, err)
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "Dept._Q", SafeName("Dept. Q"))
	assert.Equal(t, "Shogun", SafeName("Shōgun"))
	assert.Equal(t, "True_Detective_Night_Country", SafeName("True Detective: Night Country"))
	assert.Equal(t, "poster", SafeName("???"))
}

func TestSaver_Save(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewSaver(fs, "assets/posters")

	path, err := s.Save("Slow Horses", EncodeDataURI(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, "assets/posters/Slow_Horses.png", path)

	got, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, got)

	_, err = s.Save("x", "not a uri")
	assert.ErrorIs(t, err, ErrNotDataURI)
}

func TestInline(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "p/a.jpg", jpegBytes, 0o644))

	uri := EncodeDataURI(pngBytes)
	assert.Equal(t, uri, Inline(fs, uri))
	assert.True(t, strings.HasPrefix(Inline(fs, "p/a.jpg"), "data:image/jpeg;base64,"))
	assert.Empty(t, Inline(fs, "p/missing.jpg"))
	assert.Empty(t, Inline(fs, ""))
}
