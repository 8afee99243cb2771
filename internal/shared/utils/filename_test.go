package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeBaseName(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"portada.jpg", 20, "portada"},
		{"mi foto (1).png", 20, "mi_foto_1_"},
		{"../../etc/passwd", 20, "passwd"},
		{"averyverylongfilenamethatkeepsgoing.jpg", 10, "averyveryl"},
		{".jpg", 20, "file"},
		{"", 20, "file"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeBaseName(tt.input, tt.maxLen), tt.input)
	}
}

func TestFileExt(t *testing.T) {
	assert.Equal(t, "jpg", FileExt("photo.JPG"))
	assert.Equal(t, "png", FileExt("cover.png"))
	assert.Equal(t, "webp", FileExt("scan.webp"))
	assert.Equal(t, "jpg", FileExt("noextension"))
}
