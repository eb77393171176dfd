// Package fmp4 decodes the timing metadata of fragmented ISO Base Media File
// Format (MP4) segments: track fragment headers, decode times, media headers
// and track runs.
package fmp4

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

var be = binary.BigEndian

// BoxType is a 4-byte box type identifier.
type BoxType [4]byte

func (t BoxType) String() string {
	return string(t[:])
}

// newBoxType creates a BoxType from a 4-character string.
func newBoxType(s string) BoxType {
	var t BoxType
	copy(t[:], s)
	return t
}

// Known box types.
var (
	TypeFtyp = newBoxType("ftyp")
	TypeStyp = newBoxType("styp")
	TypeSidx = newBoxType("sidx")
	TypeEmsg = newBoxType("emsg")
	TypeMoov = newBoxType("moov")
	TypeMvhd = newBoxType("mvhd")
	TypeTrak = newBoxType("trak")
	TypeTkhd = newBoxType("tkhd")
	TypeTref = newBoxType("tref")
	TypeTrgr = newBoxType("trgr")
	TypeEdts = newBoxType("edts")
	TypeElst = newBoxType("elst")
	TypeMdia = newBoxType("mdia")
	TypeMdhd = newBoxType("mdhd")
	TypeHdlr = newBoxType("hdlr")
	TypeMinf = newBoxType("minf")
	TypeVmhd = newBoxType("vmhd")
	TypeSmhd = newBoxType("smhd")
	TypeDinf = newBoxType("dinf")
	TypeStbl = newBoxType("stbl")
	TypeStsd = newBoxType("stsd")
	TypeAvc1 = newBoxType("avc1")
	TypeAvc3 = newBoxType("avc3")
	TypeAvcC = newBoxType("avcC")
	TypeMp4a = newBoxType("mp4a")
	TypeEsds = newBoxType("esds")
	TypeMvex = newBoxType("mvex")
	TypeMehd = newBoxType("mehd")
	TypeTrex = newBoxType("trex")
	TypeMoof = newBoxType("moof")
	TypeMfhd = newBoxType("mfhd")
	TypeTraf = newBoxType("traf")
	TypeTfhd = newBoxType("tfhd")
	TypeTfdt = newBoxType("tfdt")
	TypeTrun = newBoxType("trun")
	TypeSbgp = newBoxType("sbgp")
	TypeSgpd = newBoxType("sgpd")
	TypeSaiz = newBoxType("saiz")
	TypeSaio = newBoxType("saio")
	TypeSenc = newBoxType("senc")
	TypeMeta = newBoxType("meta")
	TypeUdta = newBoxType("udta")
	TypeMdat = newBoxType("mdat")
	TypeFree = newBoxType("free")
	TypeSkip = newBoxType("skip")
)

// IsFullBox returns true if the box type has version and flags fields.
func IsFullBox(t BoxType) bool {
	switch t {
	case TypeMvhd, TypeTkhd, TypeMdhd, TypeHdlr,
		TypeVmhd, TypeSmhd, TypeStsd, TypeElst,
		TypeMeta, TypeMehd, TypeTrex, TypeMfhd,
		TypeTfhd, TypeTfdt, TypeTrun, TypeSbgp,
		TypeSgpd, TypeSaiz, TypeSaio, TypeSenc,
		TypeSidx, TypeEmsg, TypeEsds:
		return true
	}
	return false
}

// IsContainerBox returns true if the box type is a container that holds child boxes.
func IsContainerBox(t BoxType) bool {
	switch t {
	case TypeMoov, TypeTrak, TypeEdts, TypeMdia,
		TypeMinf, TypeDinf, TypeStbl, TypeUdta,
		TypeMeta, TypeMvex, TypeMoof, TypeTraf,
		TypeTref, TypeTrgr:
		return true
	}
	return false
}

// Walker errors.
var (
	ErrTruncatedHeader = errors.New("truncated box header")
	ErrBoxOverrun      = errors.New("box extends past its parent")
)

// Headers holds parsed box header information.
type Headers struct {
	Size       uint64 // total size including header
	HeaderSize int
	Type       BoxType
	Version    uint8
	Flags      uint32
}

// ContentLen returns the number of bytes following the header.
func (h Headers) ContentLen() uint64 {
	return h.Size - uint64(h.HeaderSize)
}

// ReadHeaders parses the header of the box at the start of buf. A size of 0
// is resolved to len(buf).
func ReadHeaders(buf []byte) (Headers, error) {
	c := NewCursor(buf)

	size32, err := c.ReadUint32()
	if err != nil {
		return Headers{}, errors.Wrap(ErrTruncatedHeader, err.Error())
	}
	var h Headers
	copy(h.Type[:], buf[4:min(8, len(buf))])
	if err := c.Skip(4); err != nil {
		return Headers{}, errors.Wrap(ErrTruncatedHeader, err.Error())
	}

	h.Size = uint64(size32)
	switch size32 {
	case 1:
		if h.Size, err = c.ReadUint64(); err != nil {
			return Headers{}, errors.Wrapf(ErrTruncatedHeader, "%s largesize: %v", h.Type, err)
		}
	case 0:
		h.Size = uint64(len(buf))
	}

	if IsFullBox(h.Type) {
		vf, err := c.ReadUint32()
		if err != nil {
			return Headers{}, errors.Wrapf(ErrTruncatedHeader, "%s version/flags: %v", h.Type, err)
		}
		h.Version = uint8(vf >> 24)
		h.Flags = vf & 0x00ffffff
	}

	h.HeaderSize = c.Pos()
	if h.Size < uint64(h.HeaderSize) {
		return Headers{}, errors.Wrapf(ErrTruncatedHeader, "%s: size %d smaller than header", h.Type, h.Size)
	}
	return h, nil
}
