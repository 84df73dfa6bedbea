package geombuilder

import (
	"encoding/binary"
	"errors"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/wkb"
)

const ewkbSRIDFlag = 0x20000000

var ErrShortWKB = errors.New("wkb too short")

// EncodeEWKB encodes g as extended WKB carrying the SRID in the header, the
// form PostGIS expects for a geometry column with a fixed SRID.
func EncodeEWKB(g geom.Geometry, srid int) ([]byte, error) {
	b, err := wkb.EncodeBytes(g)
	if err != nil {
		return nil, err
	}
	return injectSRID(b, srid)
}

// DecodeEWKB is the inverse of EncodeEWKB.
func DecodeEWKB(b []byte) (geom.Geometry, int, error) {
	plain, srid, err := extractSRID(b)
	if err != nil {
		return nil, 0, err
	}
	g, err := wkb.DecodeBytes(plain)
	return g, srid, err
}

func byteOrder(b byte) binary.ByteOrder {
	if b == 0 {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func injectSRID(b []byte, srid int) ([]byte, error) {
	if len(b) < 5 {
		return nil, ErrShortWKB
	}
	order := byteOrder(b[0])
	out := make([]byte, len(b)+4)
	out[0] = b[0]
	order.PutUint32(out[1:5], order.Uint32(b[1:5])|ewkbSRIDFlag)
	order.PutUint32(out[5:9], uint32(srid))
	copy(out[9:], b[5:])
	return out, nil
}

func extractSRID(b []byte) ([]byte, int, error) {
	if len(b) < 5 {
		return nil, 0, ErrShortWKB
	}
	order := byteOrder(b[0])
	gtype := order.Uint32(b[1:5])
	if gtype&ewkbSRIDFlag == 0 {
		return b, 0, nil
	}
	if len(b) < 9 {
		return nil, 0, ErrShortWKB
	}
	srid := int(order.Uint32(b[5:9]))
	out := make([]byte, len(b)-4)
	out[0] = b[0]
	order.PutUint32(out[1:5], gtype&^ewkbSRIDFlag)
	copy(out[5:], b[9:])
	return out, srid, nil
}
