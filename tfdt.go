package fmp4

import "github.com/pkg/errors"

// Tfdt is a decoded track fragment base media decode time box.
//
//	aligned(8) class TrackFragmentBaseMediaDecodeTimeBox extends FullBox('tfdt', version, 0) {
//	    if (version==1) {
//	        unsigned int(64) baseMediaDecodeTime;
//	    } else { // version==0
//	        unsigned int(32) baseMediaDecodeTime;
//	    }
//	}
type Tfdt struct {
	BaseMediaDecodeTime uint64
}

// DecodeTfdt decodes tfdt content for the given box version.
func DecodeTfdt(c *Cursor, version uint8) (Tfdt, error) {
	if version == 1 {
		v, err := c.ReadUint64()
		if err != nil {
			return Tfdt{}, errors.Wrap(err, "tfdt baseMediaDecodeTime")
		}
		return Tfdt{BaseMediaDecodeTime: v}, nil
	}
	v, err := c.ReadUint32()
	if err != nil {
		return Tfdt{}, errors.Wrap(err, "tfdt baseMediaDecodeTime")
	}
	return Tfdt{BaseMediaDecodeTime: uint64(v)}, nil
}
