package report

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// PlotFile is the figure name written into the output directory.
const PlotFile = "performance.png"

const (
	plotWidth   = 8 * vg.Inch
	rowHeight   = 0.8 * vg.Inch
	minPlotRows = 4
)

// Plot renders absolute and normalized throughput as two stacked scatter
// panels, one y tick per configuration, and writes the figure as PNG.
func Plot(w io.Writer, rows []Row) error {
	if len(rows) == 0 {
		return fmt.Errorf("no results to plot")
	}

	labels := make([]string, len(rows))
	abs := make(plotter.XYs, len(rows))
	norm := make(plotter.XYs, len(rows))

	for i, r := range rows {
		labels[i] = r.Label
		abs[i] = plotter.XY{X: r.Throughput / 1e6, Y: float64(i)}
		norm[i] = plotter.XY{X: r.Normalized, Y: float64(i)}
	}

	top, err := scatterPanel(abs, labels, "Mzone-cycles/s")
	if err != nil {
		return fmt.Errorf("absolute panel: %w", err)
	}

	bottom, err := scatterPanel(norm, labels, "zcs normalized to bottom row")
	if err != nil {
		return fmt.Errorf("normalized panel: %w", err)
	}

	height := vg.Length(max(len(rows), minPlotRows)) * rowHeight

	img := vgimg.New(plotWidth, height)
	dc := draw.New(img)

	tiles := draw.Tiles{
		Rows:      2,
		Cols:      1,
		PadTop:    vg.Points(8),
		PadBottom: vg.Points(8),
		PadLeft:   vg.Points(8),
		PadRight:  vg.Points(8),
		PadY:      vg.Points(24),
	}

	canvases := plot.Align([][]*plot.Plot{{top}, {bottom}}, tiles, dc)
	top.Draw(canvases[0][0])
	bottom.Draw(canvases[1][0])

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}

	return nil
}

// SavePlot renders the figure to path. Nothing is written unless the
// figure renders.
func SavePlot(path string, rows []Row) error {
	var buf bytes.Buffer
	if err := Plot(&buf, rows); err != nil {
		return err
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

func scatterPanel(pts plotter.XYs, labels []string, xLabel string) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = xLabel
	p.X.Min = 0
	p.NominalY(labels...)

	s, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}

	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Radius = vg.Points(3)

	p.Add(plotter.NewGrid(), s)

	return p, nil
}
