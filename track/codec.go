package track

import (
	"fmt"

	"github.com/tetsuo/fmp4"
)

// Fixed field sizes preceding the child boxes of a sample entry.
const (
	visualSampleEntrySize = 78
	audioSampleEntrySize  = 28
)

// MPEG-4 descriptor tags found in esds.
const (
	tagESDescriptor            = 0x03
	tagDecoderConfigDescriptor = 0x04
	tagDecoderSpecificInfo     = 0x05
)

// sampleEntryCodec returns the codec string of the first entry in stsd
// content, e.g. "avc1.64001f" or "mp4a.40.2". Codec configuration that does
// not parse leaves only the entry type; only a short stsd is an error.
func sampleEntryCodec(stsd []byte) (string, error) {
	c := fmp4.NewCursor(stsd)
	count, err := c.ReadUint32()
	if err != nil || count == 0 {
		return "", err
	}

	er := fmp4.NewReader(stsd[c.Pos():])
	if !er.Next() {
		if err := er.Err(); err != nil {
			return "", err
		}
		return "", fmp4.ErrInsufficientData
	}
	entry := er.Type()
	data := er.Data()
	codec := entry.String()

	switch entry {
	case fmp4.TypeAvc1, fmp4.TypeAvc3:
		if len(data) < visualSampleEntrySize {
			return codec, nil
		}
		if cfg := findChild(data[visualSampleEntrySize:], fmp4.TypeAvcC); len(cfg) >= 4 {
			codec += fmt.Sprintf(".%02x%02x%02x", cfg[1], cfg[2], cfg[3])
		}
	case fmp4.TypeMp4a:
		if len(data) < audioSampleEntrySize {
			return codec, nil
		}
		if esds := findChild(data[audioSampleEntrySize:], fmp4.TypeEsds); esds != nil {
			codec += esdsCodec(esds)
		}
	}
	return codec, nil
}

// findChild returns the content of the first box of type t in buf.
func findChild(buf []byte, t fmp4.BoxType) []byte {
	r := fmp4.NewReader(buf)
	for r.Next() {
		if r.Type() == t {
			return r.Data()
		}
	}
	return nil
}

// descriptor is one MPEG-4 descriptor from an esds box.
type descriptor struct {
	tag  byte
	body []byte
	size int // tag, length and body
}

// readDescriptor decodes the descriptor at the start of buf. The body is
// clipped to buf.
func readDescriptor(buf []byte) (descriptor, bool) {
	if len(buf) < 2 {
		return descriptor{}, false
	}
	ptr, length := 1, 0
	for ptr < len(buf) {
		b := buf[ptr]
		ptr++
		length = length<<7 | int(b&0x7f)
		if b&0x80 == 0 {
			break
		}
	}
	end := min(ptr+length, len(buf))
	return descriptor{
		tag:  buf[0],
		body: buf[ptr:end],
		size: ptr + length,
	}, true
}

// findDescriptor returns the first descriptor tagged tag in a descriptor
// array.
func findDescriptor(buf []byte, tag byte) (descriptor, bool) {
	for len(buf) >= 2 {
		d, ok := readDescriptor(buf)
		if !ok {
			break
		}
		if d.tag == tag {
			return d, true
		}
		if d.size >= len(buf) {
			break
		}
		buf = buf[d.size:]
	}
	return descriptor{}, false
}

// esdsCodec returns the ".OTI.audioObjectType" suffix from esds content, or
// "" when the descriptors are incomplete.
func esdsCodec(esds []byte) string {
	es, ok := readDescriptor(esds)
	if !ok || es.tag != tagESDescriptor || len(es.body) < 3 {
		return ""
	}

	flags := es.body[2]
	ptr := 3
	if flags&0x80 != 0 { // streamDependenceFlag
		ptr += 2
	}
	if flags&0x40 != 0 { // URL_Flag
		if ptr >= len(es.body) {
			return ""
		}
		ptr += 1 + int(es.body[ptr])
	}
	if flags&0x20 != 0 { // OCRstreamFlag
		ptr += 2
	}
	if ptr >= len(es.body) {
		return ""
	}

	dcd, ok := findDescriptor(es.body[ptr:], tagDecoderConfigDescriptor)
	if !ok || len(dcd.body) == 0 || dcd.body[0] == 0 {
		return ""
	}
	oti := dcd.body[0]
	out := fmt.Sprintf(".%x", oti)

	if len(dcd.body) <= 13 {
		return out
	}
	dsi, ok := findDescriptor(dcd.body[13:], tagDecoderSpecificInfo)
	if !ok || len(dsi.body) == 0 {
		return out
	}
	if aot := dsi.body[0] >> 3; aot != 0 {
		out += fmt.Sprintf(".%d", aot)
	}
	return out
}
