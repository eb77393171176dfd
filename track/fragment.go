package track

import (
	"github.com/pkg/errors"

	"github.com/tetsuo/fmp4"
)

// FragmentSamples resolves the samples of frag against tracks and appends
// them to dst in decode order per track fragment.
//
// Durations and sizes come from the trun sample, else the tfhd default, else
// the trex default, else 0. Decode times start at the tfdt value, else at the
// track's NextDTS. Offsets are absolute. The base is the tfhd
// base_data_offset when present, else the moof offset for the first traf and
// for default-base-is-moof; any other traf starts where the previous traf's
// data ended. A run without a data offset continues where the previous run
// of the same traf ended. NextDTS of each referenced track is advanced past
// the last sample.
//
// Every traf must name a known track. Otherwise dst and the tracks are left
// unchanged and the error wraps ErrUnknownTrack.
func FragmentSamples(dst []Sample, frag *fmp4.Fragment, tracks []*Track) ([]Sample, error) {
	resolved := make([]*Track, len(frag.Tracks))
	for i := range frag.Tracks {
		id := frag.Tracks[i].Header.TrackID
		if resolved[i] = FindTrack(tracks, id); resolved[i] == nil {
			return dst, errors.Wrapf(ErrUnknownTrack, "traf[%d]: track %d", i, id)
		}
	}

	prevEnd := frag.Offset
	for i := range frag.Tracks {
		tf := &frag.Tracks[i]
		t := resolved[i]

		base := frag.Offset
		if v, ok := tf.Header.BaseDataOffset.Get(); ok {
			base = int64(v)
		} else if i > 0 && tf.Flags&fmp4.TfhdDefaultBaseIsMoof == 0 {
			base = prevEnd
		}
		dts := t.NextDTS
		if d, ok := tf.DecodeTime.Get(); ok {
			dts = int64(d.BaseMediaDecodeTime)
		}
		defDuration := tf.Header.DefaultSampleDuration.Or(t.Defaults.SampleDuration)
		defSize := tf.Header.DefaultSampleSize.Or(t.Defaults.SampleSize)

		next := base
		for j := range tf.Runs {
			run := &tf.Runs[j]

			pos := next
			if off, ok := run.DataOffset.Get(); ok {
				pos = base + int64(off)
			}
			for _, s := range run.All() {
				size := s.Size.Or(defSize)
				duration := s.Duration.Or(defDuration)
				dst = append(dst, Sample{
					TrackID:            t.ID,
					Offset:             pos,
					Size:               size,
					Duration:           duration,
					DTS:                dts,
					PresentationOffset: s.CompositionTimeOffset.Or(0),
				})
				pos += int64(size)
				dts += int64(duration)
			}
			next = pos
		}
		prevEnd = next
		t.NextDTS = dts
	}
	return dst, nil
}
