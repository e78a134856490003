// Command sphview replays a checkpoint sequence written by the sph
// solver: plot/0000.dat, plot/0001.dat, ... Enter plays/pauses,
// Left/Right steps back and forward.
//
// Usage: go run ./cmd/sphview -dir plot
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sph/checkpoint"
	"github.com/pthm-cable/sph/config"
	"github.com/pthm-cable/sph/store"
)

const (
	windowWidth  = 1000
	windowHeight = 500
	margin       = 20
)

var (
	dir       = flag.String("dir", "plot", "checkpoint directory to replay")
	frequency = flag.Int("frequency", 1, "checkpoint_frequency used when the run wrote these files")
)

func main() {
	flag.Parse()

	files, err := listCheckpoints(*dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sphview:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "sphview: no checkpoint files found under %s\n", *dir)
		os.Exit(1)
	}

	cfg := config.Default()
	w := checkpoint.New(*dir)

	rl.InitWindow(windowWidth, windowHeight, "sph checkpoint replay")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	frame := 0
	playing := false
	records, loadErr := loadFrame(w, files, frame, *frequency)

	for !rl.WindowShouldClose() {
		if rl.IsKeyPressed(rl.KeyEnter) {
			playing = !playing
		}

		advanceFrame := 0
		if rl.IsKeyPressed(rl.KeyRight) {
			advanceFrame = 1
			playing = false
		}
		if rl.IsKeyPressed(rl.KeyLeft) {
			advanceFrame = -1
			playing = false
		}
		if playing {
			advanceFrame = 1
		}

		if advanceFrame != 0 {
			next := frame + advanceFrame
			if next >= 0 && next < len(files) {
				frame = next
				records, loadErr = loadFrame(w, files, frame, *frequency)
			} else if playing {
				playing = false
			}
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		if loadErr != nil {
			rl.DrawText(fmt.Sprintf("error loading frame: %v", loadErr), margin, margin, 16, rl.Red)
		} else {
			drawFrame(cfg, records)
		}
		rl.DrawText(fmt.Sprintf("frame %d/%d  (enter: play/pause, arrows: step)", frame, len(files)-1),
			margin, windowHeight-margin-16, 14, rl.DarkGray)
		rl.EndDrawing()
	}
}

func listCheckpoints(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".dat" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func loadFrame(w *checkpoint.Writer, files []string, frame, frequency int) ([]store.Record, error) {
	step := frame * frequency
	return w.Restart(step, frequency)
}

func drawFrame(cfg *config.Config, records []store.Record) {
	scaleX := float32(windowWidth-2*margin) / float32(cfg.Tank.Width)
	scaleY := float32(windowHeight-2*margin) / float32(cfg.Tank.Height)
	scale := scaleX
	if scaleY < scale {
		scale = scaleY
	}

	toScreen := func(x, y float64) (int32, int32) {
		sx := margin + int32(float32(x)*scale)
		sy := windowHeight - margin - int32(float32(y)*scale)
		return sx, sy
	}

	rho0 := cfg.Physics.ReferenceDensity
	for _, r := range records {
		sx, sy := toScreen(r.X, r.Y)
		ratio := r.Rho / rho0
		c := uint8(math.Max(0, math.Min(255, (ratio-0.9)*2550)))
		rl.DrawCircle(sx, sy, 3, rl.NewColor(c, 120, 255-c/2, 255))
	}
}
