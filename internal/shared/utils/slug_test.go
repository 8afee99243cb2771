package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Física Cuántica", "fisica-cuantica"},
		{"Introducción a la Mecánica Clásica", "introduccion-a-la-mecanica-clasica"},
		{"Electromagnetismo (2a Edición)", "electromagnetismo-2a-edicion"},
		{"  Óptica  ", "optica"},
		{"Señales & Sistemas", "senales-sistemas"},
		{"---", ""},
		{"Termodinámica", "termodinamica"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, GenerateSlug(tt.input), tt.input)
	}
}

func TestRemoveDiacritics(t *testing.T) {
	assert.Equal(t, "Fisica nuclear", RemoveDiacritics("Física nuclear"))
	assert.Equal(t, "MUNOZ", RemoveDiacritics("MUÑOZ"))
	assert.Equal(t, "plain ascii", RemoveDiacritics("plain ascii"))
}
