package track_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	amp4 "github.com/abema/go-mp4"
	"github.com/stretchr/testify/require"
)

func makeBox(typ string, children ...[]byte) []byte {
	var body []byte
	for _, c := range children {
		body = append(body, c...)
	}
	out := make([]byte, 8, 8+len(body))
	binary.BigEndian.PutUint32(out, uint32(8+len(body)))
	copy(out[4:], typ)
	return append(out, body...)
}

func marshalBox(t testing.TB, b amp4.IImmutableBox) []byte {
	t.Helper()
	var buf bytes.Buffer
	_, err := amp4.Marshal(&buf, b, amp4.Context{})
	require.NoError(t, err)
	typ := b.GetType()
	return makeBox(string(typ[:]), buf.Bytes())
}

type trakOpts struct {
	id        uint32
	handler   string
	timescale uint32
	language  string
	entry     string // sample entry type, "" for an empty stsd
}

func trakBox(t testing.TB, s trakOpts) []byte {
	var lang [3]byte
	if s.language != "" {
		lang = [3]byte{s.language[0] - 0x60, s.language[1] - 0x60, s.language[2] - 0x60}
	}
	var ht [4]byte
	copy(ht[:], s.handler)

	stsd := append(make([]byte, 4), 0, 0, 0, 0) // version/flags, entry_count
	if s.entry != "" {
		stsd[7] = 1
		stsd = append(stsd, makeBox(s.entry, make([]byte, 28))...)
	}

	return makeBox("trak",
		marshalBox(t, &amp4.Tkhd{TrackID: s.id}),
		makeBox("mdia",
			marshalBox(t, &amp4.Mdhd{Timescale: s.timescale, Language: lang}),
			marshalBox(t, &amp4.Hdlr{HandlerType: ht, Name: s.handler}),
			makeBox("minf",
				makeBox("stbl", makeBox("stsd", stsd)),
			),
		),
	)
}

func trexBox(t testing.TB, id, duration, size uint32) []byte {
	return marshalBox(t, &amp4.Trex{
		TrackID:                       id,
		DefaultSampleDescriptionIndex: 1,
		DefaultSampleDuration:         duration,
		DefaultSampleSize:             size,
	})
}

func tfhdBox(t testing.TB, b *amp4.Tfhd, flags uint32) []byte {
	b.SetFlags(flags)
	return marshalBox(t, b)
}

func tfdtBox(t testing.TB, v uint64) []byte {
	b := &amp4.Tfdt{BaseMediaDecodeTimeV1: v}
	b.Version = 1
	return marshalBox(t, b)
}

func trunBox(t testing.TB, flags uint32, dataOffset int32, entries ...amp4.TrunEntry) []byte {
	b := &amp4.Trun{
		SampleCount: uint32(len(entries)),
		DataOffset:  dataOffset,
		Entries:     entries,
	}
	b.SetFlags(flags)
	return marshalBox(t, b)
}
