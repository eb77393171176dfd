package fmp4

import "github.com/pkg/errors"

// Mdhd is a decoded media header box. Only the fields needed for timing are
// kept.
//
//	aligned(8) class MediaHeaderBox extends FullBox('mdhd', version, 0) {
//	    if (version==1) {
//	        unsigned int(64) creation_time;
//	        unsigned int(64) modification_time;
//	        unsigned int(32) timescale;
//	        unsigned int(64) duration;
//	    } else { // version==0
//	        unsigned int(32) creation_time;
//	        unsigned int(32) modification_time;
//	        unsigned int(32) timescale;
//	        unsigned int(32) duration;
//	    }
//	    bit(1) pad = 0;
//	    unsigned int(5)[3] language; // ISO-639-2/T language code
//	    unsigned int(16) pre_defined = 0;
//	}
type Mdhd struct {
	Timescale uint32
	Language  string // "" when the packed code is not three letters
}

// DecodeMdhd decodes mdhd content for the given box version.
func DecodeMdhd(c *Cursor, version uint8) (Mdhd, error) {
	timeWidth := 4
	if version == 1 {
		timeWidth = 8
	}

	if err := c.Skip(timeWidth); err != nil {
		return Mdhd{}, errors.Wrap(err, "mdhd creation_time")
	}
	if err := c.Skip(timeWidth); err != nil {
		return Mdhd{}, errors.Wrap(err, "mdhd modification_time")
	}
	timescale, err := c.ReadUint32()
	if err != nil {
		return Mdhd{}, errors.Wrap(err, "mdhd timescale")
	}
	// Version 1 duration is 64-bit, as in ISO/IEC 14496-12.
	if err := c.Skip(timeWidth); err != nil {
		return Mdhd{}, errors.Wrap(err, "mdhd duration")
	}
	packed, err := c.ReadUint16()
	if err != nil {
		return Mdhd{}, errors.Wrap(err, "mdhd language")
	}

	return Mdhd{
		Timescale: timescale,
		Language:  languageOrEmpty(packed),
	}, nil
}
