package track

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/tetsuo/fmp4"
)

// TrackKind distinguishes tracks by their handler type.
type TrackKind int

const (
	TrackOther TrackKind = iota
	TrackVideo
	TrackAudio
	TrackSubtitle
)

func (k TrackKind) String() string {
	switch k {
	case TrackVideo:
		return "video"
	case TrackAudio:
		return "audio"
	case TrackSubtitle:
		return "subtitle"
	}
	return "other"
}

// MarshalText encodes the kind by name.
func (k TrackKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Defaults are the per-track sample defaults from a trex box.
type Defaults struct {
	SampleDescriptionIndex uint32
	SampleDuration         uint32
	SampleSize             uint32
}

// Track holds the metadata of one track parsed from an initialization
// segment.
type Track struct {
	ID        uint32
	Kind      TrackKind
	TimeScale uint32
	Language  string // "" when the mdhd code does not decode
	Codec     string // e.g. "avc1.64001f", "mp4a.40.2"
	Defaults  Defaults

	// NextDTS is the decode time following the last sample returned by
	// FragmentSamples. It seeds fragments that carry no tfdt.
	NextDTS int64
}

// FindTrack returns the track with the given ID, or nil.
func FindTrack(tracks []*Track, id uint32) *Track {
	for _, t := range tracks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Sample represents a single media sample.
type Sample struct {
	TrackID            uint32
	Offset             int64
	Size               uint32
	Duration           uint32
	DTS                int64
	PresentationOffset int32
}

// PTS returns the presentation timestamp.
func (s Sample) PTS() int64 {
	return s.DTS + int64(s.PresentationOffset)
}

// TrackSampleStats holds aggregated stats for samples belonging to one track.
type TrackSampleStats struct {
	TrackID     uint32
	TimeScale   uint32
	Duration    uint64
	EarliestPTS int64
	SampleCount int
}

// CollectTrackSampleStats aggregates sample count, duration, and earliest PTS
// per track. The returned slice contains only tracks that have at least one sample.
func CollectTrackSampleStats(dst []TrackSampleStats, tracks []*Track, samples []Sample) []TrackSampleStats {
	if cap(dst) < len(tracks) {
		dst = make([]TrackSampleStats, len(tracks))
	} else {
		dst = dst[:len(tracks)]
	}

	for i, t := range tracks {
		dst[i] = TrackSampleStats{
			TrackID:     t.ID,
			TimeScale:   t.TimeScale,
			EarliestPTS: -1,
		}
	}

	for i := range samples {
		s := &samples[i]
		for j := range dst {
			if dst[j].TrackID != s.TrackID {
				continue
			}
			st := &dst[j]
			st.SampleCount++
			st.Duration += uint64(s.Duration)
			pts := s.PTS()
			if st.EarliestPTS < 0 || pts < st.EarliestPTS {
				st.EarliestPTS = pts
			}
			break
		}
	}

	out := dst[:0]
	for i := range dst {
		if dst[i].SampleCount > 0 {
			out = append(out, dst[i])
		}
	}
	return out
}

var (
	ErrMoovNotFound = errors.New("moov box not found in buffer")
	ErrInvalidTrack = errors.New("invalid track data")
	ErrUnknownTrack = errors.New("fragment references unknown track")
)

// ParseInit parses a moov box buffer and returns its tracks. The buffer must
// start with the moov box header. Trex defaults from mvex are attached to
// the matching tracks.
func ParseInit(moovBuf []byte) ([]*Track, error) {
	mr := fmp4.NewReader(moovBuf)
	if !mr.Next() || mr.Type() != fmp4.TypeMoov {
		if err := mr.Err(); err != nil {
			return nil, errors.Wrap(ErrMoovNotFound, err.Error())
		}
		return nil, ErrMoovNotFound
	}

	var (
		tracks   []*Track
		defaults = make(map[uint32]Defaults)
	)

	mr.Enter()
	for mr.Next() {
		switch mr.Type() {
		case fmp4.TypeTrak:
			path := fmt.Sprintf("moov/trak[%d]", len(tracks))
			t, err := parseTrak(&mr, path)
			if err != nil {
				return nil, err
			}
			tracks = append(tracks, t)
		case fmp4.TypeMvex:
			if err := parseMvex(&mr, defaults); err != nil {
				return nil, err
			}
		}
	}
	if err := mr.Err(); err != nil {
		return nil, errors.Wrap(err, "moov")
	}
	mr.Exit()

	for _, t := range tracks {
		if d, ok := defaults[t.ID]; ok {
			t.Defaults = d
		}
	}
	return tracks, nil
}

func parseTrak(mr *fmp4.Reader, path string) (*Track, error) {
	track := &Track{}

	mr.Enter()
	defer mr.Exit()

	for mr.Next() {
		switch mr.Type() {
		case fmp4.TypeTkhd:
			id, err := readTkhdTrackID(mr.Cursor(), mr.Version())
			if err != nil {
				return nil, errors.Wrapf(err, "%s/tkhd", path)
			}
			track.ID = id
		case fmp4.TypeMdia:
			if err := parseMdia(mr, track, path+"/mdia"); err != nil {
				return nil, err
			}
		}
	}
	if err := mr.Err(); err != nil {
		return nil, errors.Wrap(err, path)
	}
	if track.ID == 0 {
		return nil, errors.Wrapf(ErrInvalidTrack, "%s: missing tkhd", path)
	}
	return track, nil
}

func parseMdia(mr *fmp4.Reader, track *Track, path string) error {
	mr.Enter()
	defer mr.Exit()

	for mr.Next() {
		switch mr.Type() {
		case fmp4.TypeMdhd:
			m, err := fmp4.DecodeMdhd(mr.Cursor(), mr.Version())
			if err != nil {
				return errors.Wrapf(err, "%s/mdhd", path)
			}
			track.TimeScale = m.Timescale
			track.Language = m.Language
		case fmp4.TypeHdlr:
			kind, err := readHdlrKind(mr.Cursor())
			if err != nil {
				return errors.Wrapf(err, "%s/hdlr", path)
			}
			track.Kind = kind
		case fmp4.TypeMinf:
			if err := parseMinf(mr, track, path+"/minf"); err != nil {
				return err
			}
		}
	}
	return nil
}

func parseMinf(mr *fmp4.Reader, track *Track, path string) error {
	mr.Enter()
	defer mr.Exit()

	for mr.Next() {
		if mr.Type() != fmp4.TypeStbl {
			continue
		}
		mr.Enter()
		for mr.Next() {
			if mr.Type() != fmp4.TypeStsd {
				continue
			}
			codec, err := sampleEntryCodec(mr.Data())
			if err != nil {
				mr.Exit()
				return errors.Wrapf(err, "%s/stbl/stsd", path)
			}
			track.Codec = codec
		}
		mr.Exit()
	}
	return nil
}

func parseMvex(mr *fmp4.Reader, defaults map[uint32]Defaults) error {
	mr.Enter()
	defer mr.Exit()

	for mr.Next() {
		if mr.Type() != fmp4.TypeTrex {
			continue
		}
		id, d, err := readTrex(mr.Cursor())
		if err != nil {
			return errors.Wrap(err, "moov/mvex/trex")
		}
		defaults[id] = d
	}
	return nil
}

// readTkhdTrackID skips the creation and modification times and returns
// track_ID.
func readTkhdTrackID(c *fmp4.Cursor, version uint8) (uint32, error) {
	timeWidth := 4
	if version == 1 {
		timeWidth = 8
	}
	if err := c.Skip(2 * timeWidth); err != nil {
		return 0, err
	}
	return c.ReadUint32()
}

// readHdlrKind maps handler_type to a TrackKind.
func readHdlrKind(c *fmp4.Cursor) (TrackKind, error) {
	if err := c.Skip(4); err != nil { // pre_defined
		return TrackOther, err
	}
	ht, err := c.ReadUint32()
	if err != nil {
		return TrackOther, err
	}
	switch fourCC(ht) {
	case "vide":
		return TrackVideo, nil
	case "soun":
		return TrackAudio, nil
	case "text", "sbtl", "subt", "clcp":
		return TrackSubtitle, nil
	}
	return TrackOther, nil
}

//	aligned(8) class TrackExtendsBox extends FullBox('trex', 0, 0) {
//	    unsigned int(32) track_ID;
//	    unsigned int(32) default_sample_description_index;
//	    unsigned int(32) default_sample_duration;
//	    unsigned int(32) default_sample_size;
//	    unsigned int(32) default_sample_flags;
//	}
func readTrex(c *fmp4.Cursor) (uint32, Defaults, error) {
	var (
		d   Defaults
		id  uint32
		err error
	)
	if id, err = c.ReadUint32(); err != nil {
		return 0, Defaults{}, err
	}
	if d.SampleDescriptionIndex, err = c.ReadUint32(); err != nil {
		return 0, Defaults{}, err
	}
	if d.SampleDuration, err = c.ReadUint32(); err != nil {
		return 0, Defaults{}, err
	}
	if d.SampleSize, err = c.ReadUint32(); err != nil {
		return 0, Defaults{}, err
	}
	return id, d, nil
}

func fourCC(v uint32) string {
	return string([]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}
