package sim

import (
	"encoding/binary"

	"github.com/pthm-cable/sph/comm"
	"github.com/pthm-cable/sph/store"
)

const (
	migrateCountTag   = 20
	migratePayloadTag = 21

	storeRecordSize = 8 + 8*8 // GlobalID + 8 float64 fields
)

// MigrateParticles implements spec.md §4.7: any owned particle whose
// position crossed a subdomain boundary this step is detached from the
// store and handed to the neighbor that now owns it, preserving its
// global id. Boundary-rank particles never migrate outward past the
// edges of the global box; those are reflective walls, handled by the
// integrator, not migration.
func MigrateParticles(s *store.Store, cl comm.Collective, lo, hi float64) error {
	west, east := cl.West(), cl.East()

	var westOut, eastOut []store.Record
	for _, rec := range s.List() {
		switch {
		case rec.X < lo && west != comm.NoRank:
			westOut = append(westOut, rec)
			s.Remove(rec.GlobalID)
		case rec.X > hi && east != comm.NoRank:
			eastOut = append(eastOut, rec)
			s.Remove(rec.GlobalID)
		}
	}

	if west != comm.NoRank {
		resp, err := cl.SendRecv(west, migrateCountTag, encodeCount(len(westOut)), west, migrateCountTag)
		if err != nil {
			return err
		}
		importWest := decodeCount(resp)
		payload, err := cl.SendRecv(west, migratePayloadTag, encodeStoreRecords(westOut), west, migratePayloadTag)
		if err != nil {
			return err
		}
		recs := decodeStoreRecords(payload)
		if len(recs) != importWest {
			recs = recs[:importWest]
		}
		for _, rec := range recs {
			s.Insert(rec)
		}
	}

	if east != comm.NoRank {
		resp, err := cl.SendRecv(east, migrateCountTag, encodeCount(len(eastOut)), east, migrateCountTag)
		if err != nil {
			return err
		}
		importEast := decodeCount(resp)
		payload, err := cl.SendRecv(east, migratePayloadTag, encodeStoreRecords(eastOut), east, migratePayloadTag)
		if err != nil {
			return err
		}
		recs := decodeStoreRecords(payload)
		if len(recs) != importEast {
			recs = recs[:importEast]
		}
		for _, rec := range recs {
			s.Insert(rec)
		}
	}

	return nil
}

func encodeStoreRecords(recs []store.Record) []byte {
	buf := make([]byte, len(recs)*storeRecordSize)
	for i, r := range recs {
		off := i * storeRecordSize
		binary.LittleEndian.PutUint64(buf[off:], r.GlobalID)
		putFloat64(buf[off+8:], r.X)
		putFloat64(buf[off+16:], r.Y)
		putFloat64(buf[off+24:], r.VX)
		putFloat64(buf[off+32:], r.VY)
		putFloat64(buf[off+40:], r.Rho)
		putFloat64(buf[off+48:], r.Pressure)
		putFloat64(buf[off+56:], r.Mass)
		putFloat64(buf[off+64:], r.H)
	}
	return buf
}

func decodeStoreRecords(buf []byte) []store.Record {
	n := len(buf) / storeRecordSize
	out := make([]store.Record, n)
	for i := 0; i < n; i++ {
		off := i * storeRecordSize
		out[i] = store.Record{
			GlobalID: binary.LittleEndian.Uint64(buf[off:]),
			X:        getFloat64(buf[off+8:]),
			Y:        getFloat64(buf[off+16:]),
			VX:       getFloat64(buf[off+24:]),
			VY:       getFloat64(buf[off+32:]),
			Rho:      getFloat64(buf[off+40:]),
			Pressure: getFloat64(buf[off+48:]),
			Mass:     getFloat64(buf[off+56:]),
			H:        getFloat64(buf[off+64:]),
		}
	}
	return out
}
