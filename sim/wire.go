package sim

import (
	"encoding/binary"
	"math"
)

// recordSize is the encoded byte length of one Particle's wire
// representation: GlobalID plus the eight float64 physical fields plus
// Type, each fixed-width, no pointers (spec.md §4.6: "the raw record
// layout, all scalar fields, no pointers").
const recordSize = 8 + 8*8 + 8

// encodeRecords serializes a slice of particles into a flat byte
// buffer for border exchange and migration payloads.
func encodeRecords(ps []Particle) []byte {
	buf := make([]byte, len(ps)*recordSize)
	for i, p := range ps {
		off := i * recordSize
		binary.LittleEndian.PutUint64(buf[off:], p.GlobalID)
		putFloat64(buf[off+8:], p.X)
		putFloat64(buf[off+16:], p.Y)
		putFloat64(buf[off+24:], p.VX)
		putFloat64(buf[off+32:], p.VY)
		putFloat64(buf[off+40:], p.Rho)
		putFloat64(buf[off+48:], p.Pressure)
		putFloat64(buf[off+56:], p.Mass)
		putFloat64(buf[off+64:], p.H)
		binary.LittleEndian.PutUint64(buf[off+72:], uint64(int64(p.Type)))
	}
	return buf
}

// decodeRecords is the inverse of encodeRecords. Scratch fields are
// left zero; the receiver only reads the physical fields a mirror or
// migrated particle carries.
func decodeRecords(buf []byte) []Particle {
	n := len(buf) / recordSize
	out := make([]Particle, n)
	for i := 0; i < n; i++ {
		off := i * recordSize
		out[i] = Particle{
			GlobalID: binary.LittleEndian.Uint64(buf[off:]),
			X:        getFloat64(buf[off+8:]),
			Y:        getFloat64(buf[off+16:]),
			VX:       getFloat64(buf[off+24:]),
			VY:       getFloat64(buf[off+32:]),
			Rho:      getFloat64(buf[off+40:]),
			Pressure: getFloat64(buf[off+48:]),
			Mass:     getFloat64(buf[off+56:]),
			H:        getFloat64(buf[off+64:]),
			Type:     int(int64(binary.LittleEndian.Uint64(buf[off+72:]))),
		}
	}
	return out
}

func putFloat64(b []byte, v float64) {
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
}

func getFloat64(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func encodeCount(n int) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(int64(n)))
	return buf
}

func decodeCount(buf []byte) int {
	return int(int64(binary.LittleEndian.Uint64(buf)))
}
