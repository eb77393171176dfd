package fmp4

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrMissingTfhd is returned when a traf box carries no tfhd.
var ErrMissingTfhd = errors.New("traf without tfhd")

// Fragment is the timing metadata of one movie fragment (moof).
type Fragment struct {
	Offset         int64 // absolute offset of the moof box
	Size           int64 // moof box size including header
	SequenceNumber uint32
	Tracks         []TrackFragment
}

// TrackFragment is the decoded content of one traf box.
type TrackFragment struct {
	Header     Tfhd
	Flags      uint32 // tfhd flags
	DecodeTime Optional[Tfdt]
	Runs       []Trun
}

// SampleCount returns the total number of samples over all runs.
func (tf *TrackFragment) SampleCount() int {
	n := 0
	for i := range tf.Runs {
		n += tf.Runs[i].Len()
	}
	return n
}

// ParseFragment decodes the moof box at the start of moof. offset is the
// absolute position of the box in its file and is recorded in the result.
func ParseFragment(moof []byte, offset int64) (*Fragment, error) {
	r := NewReader(moof)
	if !r.Next() {
		if err := r.Err(); err != nil {
			return nil, err
		}
		return nil, errors.Wrap(ErrTruncatedHeader, "moof")
	}
	if r.Type() != TypeMoof {
		return nil, errors.Errorf("expected moof, got %s", r.Type())
	}

	frag := &Fragment{
		Offset: offset,
		Size:   int64(r.Size()),
	}

	r.Enter()
	trafIndex := 0
	for r.Next() {
		switch r.Type() {
		case TypeMfhd:
			seq, err := r.Cursor().ReadUint32()
			if err != nil {
				return nil, errors.Wrap(err, "moof/mfhd")
			}
			frag.SequenceNumber = seq

		case TypeTraf:
			path := fmt.Sprintf("moof/traf[%d]", trafIndex)
			r.Enter()
			tf, err := parseTraf(&r, path)
			if err != nil {
				return nil, err
			}
			r.Exit()
			frag.Tracks = append(frag.Tracks, tf)
			trafIndex++
		}
	}
	if err := r.Err(); err != nil {
		return nil, errors.Wrap(err, "moof")
	}
	r.Exit()
	return frag, nil
}

// parseTraf decodes the children of a traf box. r must have entered it.
func parseTraf(r *Reader, path string) (TrackFragment, error) {
	var (
		tf       TrackFragment
		haveTfhd bool
	)
	for r.Next() {
		switch r.Type() {
		case TypeTfhd:
			h, err := DecodeTfhd(r.Cursor(), r.Flags())
			if err != nil {
				return TrackFragment{}, errors.Wrapf(err, "%s/tfhd", path)
			}
			tf.Header = h
			tf.Flags = r.Flags()
			haveTfhd = true

		case TypeTfdt:
			t, err := DecodeTfdt(r.Cursor(), r.Version())
			if err != nil {
				return TrackFragment{}, errors.Wrapf(err, "%s/tfdt", path)
			}
			tf.DecodeTime = Some(t)

		case TypeTrun:
			t, err := DecodeTrun(r.Cursor(), r.Flags(), r.Version())
			if err != nil {
				return TrackFragment{}, errors.Wrapf(err, "%s/trun[%d]", path, len(tf.Runs))
			}
			tf.Runs = append(tf.Runs, t)
		}
	}
	if err := r.Err(); err != nil {
		return TrackFragment{}, errors.Wrap(err, path)
	}
	if !haveTfhd {
		return TrackFragment{}, errors.Wrap(ErrMissingTfhd, path)
	}
	return tf, nil
}
