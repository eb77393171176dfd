package fmp4

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLanguage(t *testing.T) {
	tests := []struct {
		packed uint16
		want   string
	}{
		{0x15c7, "eng"},
		{0x55c4, "und"},
		{0x2a0e, "jpn"},
		{0x5595, "ulu"},
		{0x0421, "aaa"},
		{0x6b5a, "zzz"},
	}
	for _, tt := range tests {
		got, err := decodeLanguage(tt.packed)
		require.NoError(t, err, "0x%04x", tt.packed)
		assert.Equal(t, tt.want, got, "0x%04x", tt.packed)
	}
}

func TestDecodeLanguageIgnoresPadBit(t *testing.T) {
	got, err := decodeLanguage(0x8000 | 0x15c7)
	require.NoError(t, err)
	assert.Equal(t, "eng", got)
}

func TestDecodeLanguageInvalid(t *testing.T) {
	for _, packed := range []uint16{0x0000, 0x7fff, 0x15c0, 0x6f5a} {
		_, err := decodeLanguage(packed)
		assert.ErrorIs(t, err, ErrInvalidLanguage, "0x%04x", packed)
		assert.Equal(t, "", languageOrEmpty(packed))
	}
}
