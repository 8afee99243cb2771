package storage

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestImage(t *testing.T, width, height int, encode func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	buf := new(bytes.Buffer)
	require.NoError(t, encode(buf, img))
	return buf.Bytes()
}

func jpegBytes(t *testing.T, width, height int) []byte {
	return encodeTestImage(t, width, height, func(buf *bytes.Buffer, img image.Image) error {
		return jpeg.Encode(buf, img, &jpeg.Options{Quality: 90})
	})
}

func TestImageProcessor_ValidateMIME(t *testing.T) {
	p := NewImageProcessor(0)

	for _, mime := range []string{"image/jpeg", "image/png", "image/gif", "image/webp"} {
		assert.NoError(t, p.ValidateMIME(mime), mime)
	}
	for _, mime := range []string{"application/pdf", "text/html", "image/svg+xml", ""} {
		assert.Error(t, p.ValidateMIME(mime), mime)
	}
}

func TestImageProcessor_ValidateImage(t *testing.T) {
	p := NewImageProcessor(1024 * 1024)

	assert.NoError(t, p.ValidateImage(jpegBytes(t, 10, 10)))

	pngData := encodeTestImage(t, 10, 10, func(buf *bytes.Buffer, img image.Image) error {
		return png.Encode(buf, img)
	})
	assert.NoError(t, p.ValidateImage(pngData))

	err := p.ValidateImage([]byte("not an image at all"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an image")
}

func TestImageProcessor_ValidateImageSizeCap(t *testing.T) {
	p := NewImageProcessor(16)

	err := p.ValidateImage(jpegBytes(t, 100, 100))
	require.Error(t, err)
}

func TestImageProcessor_ProcessVariants(t *testing.T) {
	p := NewImageProcessor(0)

	variants, err := p.ProcessVariants(jpegBytes(t, 1200, 800))
	require.NoError(t, err)
	require.Contains(t, variants, "medium")
	require.Contains(t, variants, "thumbnail")

	medium, _, err := image.Decode(bytes.NewReader(variants["medium"]))
	require.NoError(t, err)
	assert.LessOrEqual(t, medium.Bounds().Dx(), 600)
	assert.LessOrEqual(t, medium.Bounds().Dy(), 600)

	thumb, _, err := image.Decode(bytes.NewReader(variants["thumbnail"]))
	require.NoError(t, err)
	assert.LessOrEqual(t, thumb.Bounds().Dx(), 300)
	assert.LessOrEqual(t, thumb.Bounds().Dy(), 300)

	// Aspect ratio is preserved, not cropped to square.
	assert.Equal(t, 600, medium.Bounds().Dx())
	assert.Equal(t, 400, medium.Bounds().Dy())
}

func TestImageProcessor_ProcessVariantsRejectsGarbage(t *testing.T) {
	p := NewImageProcessor(0)
	_, err := p.ProcessVariants([]byte("garbage"))
	require.Error(t, err)
}
