package fmp4

import "github.com/pkg/errors"

// Tfhd flags (Track Fragment Header Box).
const (
	TfhdBaseDataOffsetPresent         = 0x000001
	TfhdSampleDescriptionIndexPresent = 0x000002
	TfhdDefaultSampleDurationPresent  = 0x000008
	TfhdDefaultSampleSizePresent      = 0x000010
	TfhdDefaultSampleFlagsPresent     = 0x000020
	TfhdDurationIsEmpty               = 0x010000
	TfhdDefaultBaseIsMoof             = 0x020000
)

// Tfhd is a decoded track fragment header box.
//
//	aligned(8) class TrackFragmentHeaderBox extends FullBox('tfhd', 0, tf_flags) {
//	    unsigned int(32) track_ID;
//	    // all the following are optional fields
//	    unsigned int(64) base_data_offset;
//	    unsigned int(32) sample_description_index;
//	    unsigned int(32) default_sample_duration;
//	    unsigned int(32) default_sample_size;
//	    unsigned int(32) default_sample_flags;
//	}
type Tfhd struct {
	TrackID               uint32
	BaseDataOffset        Optional[uint64]
	DefaultSampleDuration Optional[uint32]
	DefaultSampleSize     Optional[uint32]
}

// DecodeTfhd decodes tfhd content. c must be positioned after the full box
// header and flags is the 24-bit flags field from that header.
func DecodeTfhd(c *Cursor, flags uint32) (Tfhd, error) {
	var t Tfhd

	trackID, err := c.ReadUint32()
	if err != nil {
		return Tfhd{}, errors.Wrap(err, "tfhd track_ID")
	}
	t.TrackID = trackID

	if flags&TfhdBaseDataOffsetPresent != 0 {
		v, err := c.ReadUint64()
		if err != nil {
			return Tfhd{}, errors.Wrap(err, "tfhd base_data_offset")
		}
		t.BaseDataOffset = Some(v)
	}
	if flags&TfhdSampleDescriptionIndexPresent != 0 {
		if err := c.Skip(4); err != nil {
			return Tfhd{}, errors.Wrap(err, "tfhd sample_description_index")
		}
	}
	if flags&TfhdDefaultSampleDurationPresent != 0 {
		v, err := c.ReadUint32()
		if err != nil {
			return Tfhd{}, errors.Wrap(err, "tfhd default_sample_duration")
		}
		t.DefaultSampleDuration = Some(v)
	}
	if flags&TfhdDefaultSampleSizePresent != 0 {
		v, err := c.ReadUint32()
		if err != nil {
			return Tfhd{}, errors.Wrap(err, "tfhd default_sample_size")
		}
		t.DefaultSampleSize = Some(v)
	}
	return t, nil
}
