package report

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"

	"github.com/ethpandaops/columnbench/pkg/benchmark"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var (
	clickHouseColor = color.RGBA{R: 0xFF, G: 0x6B, B: 0x00, A: 0xCC}
	mySQLColor      = color.RGBA{R: 0x00, G: 0x7A, B: 0xCC, A: 0xCC}
	gainColor       = color.RGBA{R: 0x00, G: 0x80, B: 0x00, A: 0xB3}
	lossColor       = color.RGBA{R: 0xFF, G: 0x00, B: 0x00, A: 0xB3}
	breakEvenColor  = color.RGBA{R: 0xFF, G: 0x00, B: 0x00, A: 0x80}
)

const barWidth = vg.Length(28)

// WriteChart renders the time comparison and speedup charts, stacked, as PNG.
func WriteChart(w io.Writer, results []benchmark.Result) error {
	if len(results) == 0 {
		return ErrNoResults
	}

	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Query
	}

	timePlot, err := timeChart(results, names)
	if err != nil {
		return fmt.Errorf("building time chart: %w", err)
	}

	speedupPlot, err := speedupChart(results, names)
	if err != nil {
		return fmt.Errorf("building speedup chart: %w", err)
	}

	img := vgimg.New(14*vg.Inch, 10*vg.Inch)
	dc := draw.New(img)

	tiles := draw.Tiles{
		Rows: 2,
		Cols: 1,
		PadX: vg.Millimeter * 4,
		PadY: vg.Millimeter * 8,
	}

	canvases := plot.Align([][]*plot.Plot{{timePlot}, {speedupPlot}}, tiles, dc)
	timePlot.Draw(canvases[0][0])
	speedupPlot.Draw(canvases[1][0])

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}

	return nil
}

// WriteChartFile renders the chart to path.
func WriteChartFile(path string, results []benchmark.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	if err := WriteChart(f, results); err != nil {
		_ = f.Close()

		return err
	}

	return f.Close()
}

func timeChart(results []benchmark.Result, names []string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Query Execution Time: ClickHouse vs MySQL"
	p.X.Label.Text = "Queries"
	p.Y.Label.Text = "Execution Time (seconds)"

	ch := make(plotter.Values, len(results))
	my := make(plotter.Values, len(results))

	for i, r := range results {
		ch[i] = r.ClickHouseTime
		my[i] = r.MySQLTime
	}

	chBars, err := plotter.NewBarChart(ch, barWidth)
	if err != nil {
		return nil, err
	}

	chBars.Color = clickHouseColor
	chBars.LineStyle.Width = 0
	chBars.Offset = -barWidth / 2

	myBars, err := plotter.NewBarChart(my, barWidth)
	if err != nil {
		return nil, err
	}

	myBars.Color = mySQLColor
	myBars.LineStyle.Width = 0
	myBars.Offset = barWidth / 2

	p.Add(plotter.NewGrid(), chBars, myBars)
	p.Legend.Add("ClickHouse", chBars)
	p.Legend.Add("MySQL", myBars)
	p.Legend.Top = true

	nominal(p, names)

	return p, nil
}

func speedupChart(results []benchmark.Result, names []string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Performance Speedup: ClickHouse vs MySQL"
	p.X.Label.Text = "Queries"
	p.Y.Label.Text = "Speedup Factor (MySQL Time / ClickHouse Time)"

	gains := make(plotter.Values, len(results))
	losses := make(plotter.Values, len(results))
	labels := plotter.XYLabels{
		XYs:    make(plotter.XYs, len(results)),
		Labels: make([]string, len(results)),
	}

	for i, r := range results {
		if r.Speedup > 1 {
			gains[i] = r.Speedup
		} else {
			losses[i] = r.Speedup
		}

		labels.XYs[i] = plotter.XY{X: float64(i), Y: r.Speedup}
		labels.Labels[i] = fmt.Sprintf("%.1fx", r.Speedup)
	}

	gainBars, err := plotter.NewBarChart(gains, barWidth*2)
	if err != nil {
		return nil, err
	}

	gainBars.Color = gainColor
	gainBars.LineStyle.Width = 0

	lossBars, err := plotter.NewBarChart(losses, barWidth*2)
	if err != nil {
		return nil, err
	}

	lossBars.Color = lossColor
	lossBars.LineStyle.Width = 0

	breakEven, err := plotter.NewLine(plotter.XYs{
		{X: -0.5, Y: 1},
		{X: float64(len(results)) - 0.5, Y: 1},
	})
	if err != nil {
		return nil, err
	}

	breakEven.Color = breakEvenColor
	breakEven.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}

	valueLabels, err := plotter.NewLabels(labels)
	if err != nil {
		return nil, err
	}

	for i := range valueLabels.TextStyle {
		valueLabels.TextStyle[i].XAlign = draw.XCenter
		valueLabels.TextStyle[i].YAlign = draw.YBottom
	}

	valueLabels.Offset = vg.Point{Y: vg.Points(3)}

	p.Add(plotter.NewGrid(), gainBars, lossBars, breakEven, valueLabels)
	p.Legend.Add("Break-even (1x)", breakEven)
	p.Legend.Top = true

	nominal(p, names)

	return p, nil
}

func nominal(p *plot.Plot, names []string) {
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
}
