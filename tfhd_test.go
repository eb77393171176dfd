package fmp4_test

import (
	"fmt"
	"testing"

	amp4 "github.com/abema/go-mp4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tetsuo/fmp4"
)

var tfhdOptionalFlags = []uint32{
	fmp4.TfhdBaseDataOffsetPresent,
	fmp4.TfhdSampleDescriptionIndexPresent,
	fmp4.TfhdDefaultSampleDurationPresent,
	fmp4.TfhdDefaultSampleSizePresent,
	fmp4.TfhdDefaultSampleFlagsPresent,
}

// tfhdFlagCombinations returns every subset of the optional field flags, with
// and without default-base-is-moof.
func tfhdFlagCombinations() []uint32 {
	var out []uint32
	for mask := range 1 << len(tfhdOptionalFlags) {
		var flags uint32
		for i, f := range tfhdOptionalFlags {
			if mask&(1<<i) != 0 {
				flags |= f
			}
		}
		out = append(out, flags, flags|fmp4.TfhdDefaultBaseIsMoof)
	}
	return out
}

func TestDecodeTfhdAllFlags(t *testing.T) {
	for _, flags := range tfhdFlagCombinations() {
		t.Run(fmt.Sprintf("0x%06x", flags), func(t *testing.T) {
			box := &amp4.Tfhd{
				TrackID:                7,
				BaseDataOffset:         0x1_0000_0010,
				SampleDescriptionIndex: 2,
				DefaultSampleDuration:  3000,
				DefaultSampleSize:      4096,
				DefaultSampleFlags:     0x01010000,
			}
			box.SetFlags(flags)
			data := marshalPayload(t, box)

			c := fmp4.NewCursor(data)
			h, err := fmp4.DecodeTfhd(c, flags)
			require.NoError(t, err)
			assert.Equal(t, uint32(7), h.TrackID)

			v, ok := h.BaseDataOffset.Get()
			assert.Equal(t, flags&fmp4.TfhdBaseDataOffsetPresent != 0, ok)
			if ok {
				assert.Equal(t, uint64(0x1_0000_0010), v)
			}
			d, ok := h.DefaultSampleDuration.Get()
			assert.Equal(t, flags&fmp4.TfhdDefaultSampleDurationPresent != 0, ok)
			if ok {
				assert.Equal(t, uint32(3000), d)
			}
			s, ok := h.DefaultSampleSize.Get()
			assert.Equal(t, flags&fmp4.TfhdDefaultSampleSizePresent != 0, ok)
			if ok {
				assert.Equal(t, uint32(4096), s)
			}

			// default_sample_flags is the only field left when present.
			rest := 0
			if flags&fmp4.TfhdDefaultSampleFlagsPresent != 0 {
				rest = 4
			}
			assert.Equal(t, rest, c.Len())
		})
	}
}

func TestDecodeTfhdTruncated(t *testing.T) {
	for _, flags := range tfhdFlagCombinations() {
		box := &amp4.Tfhd{TrackID: 1, DefaultSampleDuration: 1}
		box.SetFlags(flags)
		data := marshalPayload(t, box)

		// Drop default_sample_flags since the decoder never reads it.
		if flags&fmp4.TfhdDefaultSampleFlagsPresent != 0 {
			data = data[:len(data)-4]
		}
		h, err := fmp4.DecodeTfhd(fmp4.NewCursor(data[:len(data)-1]), flags)
		assert.ErrorIs(t, err, fmp4.ErrInsufficientData, "flags 0x%06x", flags)
		assert.Equal(t, fmp4.Tfhd{}, h)
	}
}

func TestDecodeTfhdEmpty(t *testing.T) {
	_, err := fmp4.DecodeTfhd(fmp4.NewCursor(nil), 0)
	assert.ErrorIs(t, err, fmp4.ErrInsufficientData)
	assert.ErrorContains(t, err, "tfhd track_ID")
}

func TestDecodeTfhdFieldOrder(t *testing.T) {
	flags := uint32(fmp4.TfhdBaseDataOffsetPresent | fmp4.TfhdSampleDescriptionIndexPresent |
		fmp4.TfhdDefaultSampleDurationPresent | fmp4.TfhdDefaultSampleSizePresent)
	data := append(u32(1, 0, 100, 9), u32(20, 30)...)

	h, err := fmp4.DecodeTfhd(fmp4.NewCursor(data), flags)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), h.TrackID)
	assert.Equal(t, uint64(100), h.BaseDataOffset.Or(0))
	assert.Equal(t, uint32(20), h.DefaultSampleDuration.Or(0))
	assert.Equal(t, uint32(30), h.DefaultSampleSize.Or(0))
}
