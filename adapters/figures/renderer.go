package figures

import (
	"math"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"cellsanity/domain/telemetry"
	"cellsanity/internal"
	apperrors "cellsanity/internal/errors"
)

// Renderer draws the two evidence figures as PNG files under outDir/figures.
type Renderer struct {
	outDir string
	log    *internal.Logger
}

// NewRenderer creates a figure renderer rooted at outDir.
func NewRenderer(outDir string) *Renderer {
	return &Renderer{outDir: outDir, log: internal.NewLogger("figures")}
}

func (r *Renderer) figuresDir() (string, error) {
	dir := filepath.Join(r.outDir, "figures")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// CapacityFade draws max discharge capacity against cycle index, one line per
// cell. Cycles without a capacity reading are skipped, not drawn as zero.
// Returns the written file path.
func (r *Renderer) CapacityFade(cycleStats []telemetry.CycleStats) (string, error) {
	dir, err := r.figuresDir()
	if err != nil {
		return "", apperrors.ArtifactError("figures directory", err)
	}

	byCell := make(map[string][]telemetry.CycleStats)
	cells := make([]string, 0)
	for _, cs := range cycleStats {
		if _, seen := byCell[cs.CellID]; !seen {
			cells = append(cells, cs.CellID)
		}
		byCell[cs.CellID] = append(byCell[cs.CellID], cs)
	}
	sort.Strings(cells)

	p := plot.New()
	p.X.Label.Text = "Cycle index"
	p.Y.Label.Text = "Discharge capacity (Ah)"
	p.Legend.Top = true

	for i, cell := range cells {
		sub := byCell[cell]
		sort.Slice(sub, func(a, b int) bool { return sub[a].CycleIndex < sub[b].CycleIndex })

		pts := make(plotter.XYs, 0, len(sub))
		for _, cs := range sub {
			if math.IsNaN(cs.MaxCapacity) {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(cs.CycleIndex), Y: cs.MaxCapacity})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return "", apperrors.ArtifactError("capacity fade figure", err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(cell, line)
	}

	path := filepath.Join(dir, "fig_capacity_fade_all_cells.png")
	if err := p.Save(6.5*vg.Inch, 4.5*vg.Inch, path); err != nil {
		return "", apperrors.ArtifactError("capacity fade figure", err)
	}
	r.log.Info("saved figure: %s", path)
	return path, nil
}

// DischargeProfile draws the three-panel current/voltage/temperature profile
// of one representative discharge cycle against its time index. Returns the
// written file path.
func (r *Renderer) DischargeProfile(rep telemetry.CyclePartition) (string, error) {
	dir, err := r.figuresDir()
	if err != nil {
		return "", apperrors.ArtifactError("figures directory", err)
	}

	ordered := rep.SortedByTime()
	current := make(plotter.XYs, len(ordered))
	voltage := make(plotter.XYs, len(ordered))
	temperature := make(plotter.XYs, len(ordered))
	for i, s := range ordered {
		t := float64(s.TimeIndex)
		current[i] = plotter.XY{X: t, Y: s.Current}
		voltage[i] = plotter.XY{X: t, Y: s.Voltage}
		temperature[i] = plotter.XY{X: t, Y: s.Temperature}
	}

	panels := []struct {
		label string
		pts   plotter.XYs
	}{
		{"Current (A)", current},
		{"Voltage (V)", voltage},
		{"Temperature (C)", temperature},
	}

	rows := make([][]*plot.Plot, len(panels))
	for i, panel := range panels {
		p := plot.New()
		p.Y.Label.Text = panel.label
		if i == 0 {
			p.Title.Text = "Representative discharge profile (" + rep.Key.String() + ")"
		}
		if i == len(panels)-1 {
			p.X.Label.Text = "Time index"
		}
		line, err := plotter.NewLine(panel.pts)
		if err != nil {
			return "", apperrors.ArtifactError("discharge profile figure", err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		rows[i] = []*plot.Plot{p}
	}

	img := vgimg.New(6.5*vg.Inch, 7*vg.Inch)
	dc := draw.New(img)
	canvases := plot.Align(rows, draw.Tiles{Rows: len(panels), Cols: 1}, dc)
	for i, row := range rows {
		for j, p := range row {
			p.Draw(canvases[i][j])
		}
	}

	path := filepath.Join(dir, "fig_discharge_profile_"+rep.Key.CellID+".png")
	f, err := os.Create(path)
	if err != nil {
		return "", apperrors.ArtifactError("discharge profile figure", err)
	}
	defer f.Close()
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return "", apperrors.ArtifactError("discharge profile figure", err)
	}
	r.log.Info("saved figure: %s", path)
	return path, nil
}
