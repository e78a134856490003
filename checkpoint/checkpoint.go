// Package checkpoint implements the checkpoint writer external
// collaborator spec.md §6 describes: collect_checkpoint gathers owned
// field particles to rank 0, write_checkpoint serializes them to disk,
// restart_checkpoint loads them back. The on-disk format is opaque to
// the simulation core; this repository picks CSV via gocarina/gocsv,
// the same library the teacher uses for its own telemetry output.
package checkpoint

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/sph/comm"
	"github.com/pthm-cable/sph/store"
)

const gatherTag = 30

// Row is the on-disk record for one field particle. Virtual and halo
// mirrors never reach a checkpoint (spec.md §3 invariant 4); only
// store.Record values are ever marshaled here.
type Row struct {
	GlobalID uint64  `csv:"global_id"`
	X        float64 `csv:"x"`
	Y        float64 `csv:"y"`
	VX       float64 `csv:"vx"`
	VY       float64 `csv:"vy"`
	Rho      float64 `csv:"rho"`
	Pressure float64 `csv:"pressure"`
	Mass     float64 `csv:"mass"`
	H        float64 `csv:"h"`
}

// Writer writes numbered checkpoint files under Dir.
type Writer struct {
	Dir string
}

// New builds a Writer rooted at dir.
func New(dir string) *Writer {
	return &Writer{Dir: dir}
}

// Collect gathers every rank's owned field particles into a single
// buffer on rank 0. Non-root ranks return nil; only rank 0's return
// value is meaningful for Write.
func Collect(s *store.Store, cl comm.Collective) ([]store.Record, error) {
	owned := s.List()
	if cl.Rank() != 0 {
		buf, err := gocsvEncode(owned)
		if err != nil {
			return nil, err
		}
		if err := cl.Send(0, gatherTag, buf); err != nil {
			return nil, fmt.Errorf("checkpoint: rank %d: send to rank 0: %w", cl.Rank(), err)
		}
		return nil, nil
	}

	all := append([]store.Record(nil), owned...)
	for r := 1; r < cl.Size(); r++ {
		buf, err := cl.Recv(r, gatherTag)
		if err != nil {
			return nil, fmt.Errorf("checkpoint: rank 0: recv from rank %d: %w", r, err)
		}
		recs, err := gocsvDecode(buf)
		if err != nil {
			return nil, err
		}
		all = append(all, recs...)
	}
	return all, nil
}

// Write serializes records to plot/NNNN.dat, NNNN = timestep/frequency
// zero-padded to 4 digits (spec.md "Persisted state layout").
func (w *Writer) Write(records []store.Record, timestep, frequency int) error {
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return fmt.Errorf("checkpoint: creating %s: %w", w.Dir, err)
	}
	path := w.path(timestep, frequency)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("checkpoint: creating %s: %w", path, err)
	}
	defer f.Close()

	rows := toRows(records)
	if err := gocsv.Marshal(&rows, f); err != nil {
		return fmt.Errorf("checkpoint: writing %s: %w", path, err)
	}
	return nil
}

// Restart loads the checkpoint file for the given step/frequency pair.
func (w *Writer) Restart(step, frequency int) ([]store.Record, error) {
	path := w.path(step, frequency)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: opening %s: %w", path, err)
	}
	defer f.Close()

	var rows []Row
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, fmt.Errorf("checkpoint: reading %s: %w", path, err)
	}
	return fromRows(rows), nil
}

func (w *Writer) path(timestep, frequency int) string {
	n := 0
	if frequency > 0 {
		n = timestep / frequency
	}
	return filepath.Join(w.Dir, fmt.Sprintf("%04d.dat", n))
}

func toRows(records []store.Record) []Row {
	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = Row{
			GlobalID: r.GlobalID, X: r.X, Y: r.Y, VX: r.VX, VY: r.VY,
			Rho: r.Rho, Pressure: r.Pressure, Mass: r.Mass, H: r.H,
		}
	}
	return rows
}

func fromRows(rows []Row) []store.Record {
	recs := make([]store.Record, len(rows))
	for i, r := range rows {
		recs[i] = store.Record{
			GlobalID: r.GlobalID, X: r.X, Y: r.Y, VX: r.VX, VY: r.VY,
			Rho: r.Rho, Pressure: r.Pressure, Mass: r.Mass, H: r.H,
		}
	}
	return recs
}

func gocsvEncode(records []store.Record) ([]byte, error) {
	rows := toRows(records)
	var buf bytes.Buffer
	if err := gocsv.Marshal(&rows, &buf); err != nil {
		return nil, fmt.Errorf("checkpoint: encoding gather payload: %w", err)
	}
	return buf.Bytes(), nil
}

func gocsvDecode(buf []byte) ([]store.Record, error) {
	var rows []Row
	if err := gocsv.Unmarshal(bytes.NewReader(buf), &rows); err != nil {
		return nil, fmt.Errorf("checkpoint: decoding gather payload: %w", err)
	}
	return fromRows(rows), nil
}
