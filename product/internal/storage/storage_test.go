package storage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/catalog/internal/validate"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func TestSave(t *testing.T) {
	c := context.Background()
	storage := NewMediaStorage(afero.NewMemMapFs())
	content := pngBytes(t)

	first, err := storage.Save(c, DirProducts, "vitamin-iron.png", content)
	require.NoError(t, err)
	assert.Equal(t, "products/vitamin-iron.png", first)

	second, err := storage.Save(c, DirProducts, "vitamin-iron.png", content)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(second, "products/vitamin-iron_"), second)
	assert.True(t, strings.HasSuffix(second, ".png"), second)
	assert.Len(t, second, len("products/vitamin-iron_")+suffixLength+len(".png"))

	stored, err := storage.Read(second)
	require.NoError(t, err)
	assert.Equal(t, content, stored)
}

func TestValidFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		expected string
	}{
		{name: "given plain name should keep it", filename: "photo.jpg", expected: "photo.jpg"},
		{name: "given spaces should use underscores", filename: " my photo.jpg ", expected: "my_photo.jpg"},
		{name: "given directories should keep base name", filename: "../../etc/passwd", expected: "passwd"},
		{name: "given windows path should keep base name", filename: `C:\Users\me\cat.png`, expected: "cat.png"},
		{name: "given only invalid characters should fall back", filename: "???", expected: "file"},
		{
			name:     "given long stem should cut it to leave room for a suffix",
			filename: strings.Repeat("a", 300) + ".png",
			expected: strings.Repeat("a", maxFilenameLength-len(".png")-suffixLength-1) + ".png",
		},
		{
			name:     "given long extension should cut it",
			filename: "photo." + strings.Repeat("b", 300),
			expected: "photo." + strings.Repeat("b", maxExtensionLength-1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidFilename(tt.filename))
		})
	}
}

func TestValidateImage(t *testing.T) {
	assert.NoError(t, ValidateImage(pngBytes(t)))

	err := ValidateImage([]byte("not an image"))
	var fieldErrors validate.FieldErrors
	require.ErrorAs(t, err, &fieldErrors)
	assert.Equal(t, validate.FieldErrors{"photo": {validate.MsgImage}}, fieldErrors)
}

func TestHandlerServesStoredFile(t *testing.T) {
	storage := NewMediaStorage(afero.NewMemMapFs())
	content := pngBytes(t)
	name, err := storage.Save(context.Background(), DirProducts, "cat.png", content)
	require.NoError(t, err)

	server := httptest.NewServer(storage.Handler("/media/"))
	defer server.Close()

	resp, err := http.Get(server.URL + "/media/" + name)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, content, body)

	missing, err := http.Get(server.URL + "/media/products/missing.png")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestSaveLongFilenameFitsPhotoColumn(t *testing.T) {
	c := context.Background()
	storage := NewMediaStorage(afero.NewMemMapFs())
	filename := strings.Repeat("x", 500) + ".jpeg"

	first, err := storage.Save(c, DirProducts, filename, pngBytes(t))
	require.NoError(t, err)
	second, err := storage.Save(c, DirProducts, filename, pngBytes(t))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.LessOrEqual(t, len(first), len(DirProducts)+1+maxFilenameLength)
	assert.Len(t, second, len(DirProducts)+1+maxFilenameLength)
	assert.True(t, strings.HasSuffix(second, ".jpeg"), second)
}

func TestRemove(t *testing.T) {
	c := context.Background()
	storage := NewMediaStorage(afero.NewMemMapFs())
	name, err := storage.Save(c, DirProducts, "cat.png", pngBytes(t))
	require.NoError(t, err)

	require.NoError(t, storage.Remove(c, name))
	_, err = storage.Read(name)
	assert.Error(t, err)

	assert.NoError(t, storage.Remove(c, name))
}
