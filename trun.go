package fmp4

import (
	"encoding/json"
	"iter"

	"github.com/pkg/errors"
)

// Trun flags.
const (
	TrunDataOffsetPresent                  = 0x000001
	TrunFirstSampleFlagsPresent            = 0x000004
	TrunSampleDurationPresent              = 0x000100
	TrunSampleSizePresent                  = 0x000200
	TrunSampleFlagsPresent                 = 0x000400
	TrunSampleCompositionTimeOffsetPresent = 0x000800
)

// trunSampleFields are the flags that control the per-sample record layout.
const trunSampleFields = TrunSampleDurationPresent | TrunSampleSizePresent |
	TrunSampleFlagsPresent | TrunSampleCompositionTimeOffsetPresent

// TrunSample is one sample of a track run.
type TrunSample struct {
	Duration              Optional[uint32]
	Size                  Optional[uint32]
	CompositionTimeOffset Optional[int32]
}

// trunValues is the raw storage for one sample; which members are meaningful
// is decided by Trun.fields.
type trunValues struct {
	duration uint32
	size     uint32
	cto      int32
}

// Trun is a decoded track run box.
//
//	aligned(8) class TrackRunBox extends FullBox('trun', version, tr_flags) {
//	    unsigned int(32) sample_count;
//	    // the following are optional fields
//	    signed int(32) data_offset;
//	    unsigned int(32) first_sample_flags;
//	    // all fields in the following array are optional
//	    {
//	        unsigned int(32) sample_duration;
//	        unsigned int(32) sample_size;
//	        unsigned int(32) sample_flags
//	        if (version == 0)
//	            { unsigned int(32) sample_composition_time_offset; }
//	        else
//	            { signed int(32) sample_composition_time_offset; }
//	    }[ sample_count ]
//	}
type Trun struct {
	SampleCount uint32
	DataOffset  Optional[int32]

	fields uint32
	values []trunValues // nil when no per-sample value is stored
}

// trunStride returns the on-wire size of one sample record.
func trunStride(flags uint32) int {
	n := 0
	for _, f := range [...]uint32{
		TrunSampleDurationPresent,
		TrunSampleSizePresent,
		TrunSampleFlagsPresent,
		TrunSampleCompositionTimeOffsetPresent,
	} {
		if flags&f != 0 {
			n += 4
		}
	}
	return n
}

// DecodeTrun decodes trun content. flags and version come from the full box
// header. Either every sample is decoded or an error is returned.
func DecodeTrun(c *Cursor, flags uint32, version uint8) (Trun, error) {
	count, err := c.ReadUint32()
	if err != nil {
		return Trun{}, errors.Wrap(err, "trun sample_count")
	}
	t := Trun{
		SampleCount: count,
		fields:      flags & trunSampleFields,
	}

	if flags&TrunDataOffsetPresent != 0 {
		v, err := c.ReadInt32()
		if err != nil {
			return Trun{}, errors.Wrap(err, "trun data_offset")
		}
		t.DataOffset = Some(v)
	}
	if flags&TrunFirstSampleFlagsPresent != 0 {
		if err := c.Skip(4); err != nil {
			return Trun{}, errors.Wrap(err, "trun first_sample_flags")
		}
	}

	stride := trunStride(flags)
	if stride == 0 {
		return t, nil
	}
	if need := uint64(count) * uint64(stride); need > uint64(c.Len()) {
		return Trun{}, errors.Wrapf(ErrInsufficientData, "trun samples: need %d bytes, have %d", need, c.Len())
	}

	storeValues := flags&(TrunSampleDurationPresent|TrunSampleSizePresent|TrunSampleCompositionTimeOffsetPresent) != 0
	if storeValues {
		t.values = make([]trunValues, count)
	}
	for i := range count {
		var v trunValues
		if flags&TrunSampleDurationPresent != 0 {
			if v.duration, err = c.ReadUint32(); err != nil {
				return Trun{}, errors.Wrapf(err, "trun sample %d duration", i)
			}
		}
		if flags&TrunSampleSizePresent != 0 {
			if v.size, err = c.ReadUint32(); err != nil {
				return Trun{}, errors.Wrapf(err, "trun sample %d size", i)
			}
		}
		if flags&TrunSampleFlagsPresent != 0 {
			if err = c.Skip(4); err != nil {
				return Trun{}, errors.Wrapf(err, "trun sample %d flags", i)
			}
		}
		if flags&TrunSampleCompositionTimeOffsetPresent != 0 {
			if version != 0 {
				v.cto, err = c.ReadInt32()
			} else {
				var u uint32
				u, err = c.ReadUint32()
				v.cto = int32(u)
			}
			if err != nil {
				return Trun{}, errors.Wrapf(err, "trun sample %d composition_time_offset", i)
			}
		}
		if storeValues {
			t.values[i] = v
		}
	}
	return t, nil
}

// Len returns the number of samples in the run.
func (t *Trun) Len() int { return int(t.SampleCount) }

// HasSampleDuration reports whether samples carry their own duration.
func (t *Trun) HasSampleDuration() bool { return t.fields&TrunSampleDurationPresent != 0 }

// HasSampleSize reports whether samples carry their own size.
func (t *Trun) HasSampleSize() bool { return t.fields&TrunSampleSizePresent != 0 }

// HasCompositionTimeOffset reports whether samples carry a composition time offset.
func (t *Trun) HasCompositionTimeOffset() bool {
	return t.fields&TrunSampleCompositionTimeOffsetPresent != 0
}

// Sample returns sample i in decode order. It panics if i is out of range.
func (t *Trun) Sample(i int) TrunSample {
	if i < 0 || i >= t.Len() {
		panic("fmp4: trun sample index out of range")
	}
	var s TrunSample
	if t.values == nil {
		return s
	}
	v := t.values[i]
	if t.HasSampleDuration() {
		s.Duration = Some(v.duration)
	}
	if t.HasSampleSize() {
		s.Size = Some(v.size)
	}
	if t.HasCompositionTimeOffset() {
		s.CompositionTimeOffset = Some(v.cto)
	}
	return s
}

// All iterates over the samples in decode order.
func (t *Trun) All() iter.Seq2[int, TrunSample] {
	return func(yield func(int, TrunSample) bool) {
		for i := range t.Len() {
			if !yield(i, t.Sample(i)) {
				return
			}
		}
	}
}

// Samples returns all samples as a slice.
func (t *Trun) Samples() []TrunSample {
	out := make([]TrunSample, t.Len())
	for i := range out {
		out[i] = t.Sample(i)
	}
	return out
}

// MarshalJSON encodes the run with its samples expanded.
func (t Trun) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		SampleCount uint32          `json:"sampleCount"`
		DataOffset  Optional[int32] `json:"dataOffset"`
		Samples     []TrunSample    `json:"samples"`
	}{t.SampleCount, t.DataOffset, t.Samples()})
}
