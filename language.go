package fmp4

import (
	"github.com/pkg/errors"
	codec "github.com/yapingcat/gomedia/go-codec"
)

// ErrInvalidLanguage is returned by decodeLanguage when a packed code does
// not unpack to three lowercase letters.
var ErrInvalidLanguage = errors.New("invalid packed language code")

// decodeLanguage unpacks an ISO-639-2/T code stored as
//
//	bit(1) pad = 0;
//	unsigned int(5)[3] language;
//
// where every 5-bit field is the character minus 0x60.
func decodeLanguage(packed uint16) (string, error) {
	bs := codec.NewBitStream([]byte{byte(packed >> 8), byte(packed)})
	bs.SkipBits(1) // pad

	var lang [3]byte
	for i := range lang {
		ch := bs.Uint8(5) + 0x60
		if ch < 'a' || ch > 'z' {
			return "", errors.Wrapf(ErrInvalidLanguage, "0x%04x", packed)
		}
		lang[i] = ch
	}
	return string(lang[:]), nil
}

// languageOrEmpty is the lenient form of decodeLanguage used for mdhd:
// an undecodable language is reported as "" instead of failing the box.
func languageOrEmpty(packed uint16) string {
	lang, err := decodeLanguage(packed)
	if err != nil {
		return ""
	}
	return lang
}
