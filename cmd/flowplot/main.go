// Command flowplot renders a sampler history snapshot, as written by
// History.WriteJSON, into an interactive HTML page: the acceptance-rate
// trace per batch and the log q - log p stream per chain sample.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"normflow/mcmc"
)

func main() {
	inPath := flag.String("in", "history.json", "input history snapshot JSON")
	outPath := flag.String("out", "flowplot.html", "output HTML file")
	title := flag.String("title", "Flow sampler history", "page title")
	flag.Parse()

	snap, err := readSnapshot(*inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read error: %v\n", err)
		os.Exit(1)
	}
	if len(snap.AcceptRate) == 0 && len(snap.Logqp) == 0 && len(snap.RawLogqp) == 0 {
		fmt.Fprintf(os.Stderr, "snapshot %s holds no data\n", *inPath)
		os.Exit(1)
	}

	reportSnapshot(snap)

	page := components.NewPage().SetPageTitle(*title)
	if ch := rateChart(snap.AcceptRate); ch != nil {
		page.AddCharts(ch)
	}
	if ch := logqpChart(snap); ch != nil {
		page.AddCharts(ch)
	}

	f, err := os.Create(*outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		fmt.Fprintf(os.Stderr, "render error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s | batches: %d, samples: %d\n", *outPath, len(snap.AcceptRate), len(snap.Logqp))
}

func readSnapshot(path string) (mcmc.Snapshot, error) {
	var snap mcmc.Snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return snap, err
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("parse %s: %w", path, err)
	}
	return snap, nil
}

func reportSnapshot(snap mcmc.Snapshot) {
	if n := len(snap.AcceptRate); n > 0 {
		s := 0.0
		for _, r := range snap.AcceptRate {
			s += r
		}
		fmt.Printf("accept_rate: %.4f over %d batches (last %.4f)\n",
			s/float64(n), n, snap.AcceptRate[n-1])
	}
	if n := len(snap.Logqp); n > 0 {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range snap.Logqp {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		fmt.Printf("logqp: %d samples in [%.4f, %.4f]\n", n, lo, hi)
	}
}

func rateChart(rates []float64) *charts.Line {
	if len(rates) == 0 {
		return nil
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Acceptance rate per batch"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "batch"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "accept rate", Type: "value"}),
		charts.WithDataZoomOpts(
			opts.DataZoom{Type: "inside"},
			opts.DataZoom{Type: "slider"},
		),
	)
	labels := make([]string, len(rates))
	items := make([]opts.LineData, len(rates))
	for i, r := range rates {
		labels[i] = strconv.Itoa(i)
		items[i] = opts.LineData{Value: r}
	}
	line.SetXAxis(labels).AddSeries("accept_rate", items,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(false)}))
	return line
}

func logqpChart(snap mcmc.Snapshot) *charts.Scatter {
	if len(snap.Logqp) == 0 && len(snap.RawLogqp) == 0 {
		return nil
	}
	sc := charts.NewScatter()
	sc.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "log q - log p per sample"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "sample", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "logqp", Type: "value"}),
		charts.WithDataZoomOpts(
			opts.DataZoom{Type: "inside"},
			opts.DataZoom{Type: "slider"},
		),
	)
	if items := scatterItems(snap.Logqp); len(items) > 0 {
		sc.AddSeries("chain", items,
			charts.WithScatterChartOpts(opts.ScatterChart{Symbol: "circle", SymbolSize: 5}))
	}
	if items := scatterItems(snap.RawLogqp); len(items) > 0 {
		sc.AddSeries("raw proposals", items,
			charts.WithScatterChartOpts(opts.ScatterChart{Symbol: "triangle", SymbolSize: 5}))
	}
	return sc
}

func scatterItems(values []float64) []opts.ScatterData {
	items := make([]opts.ScatterData, 0, len(values))
	for i, v := range values {
		items = append(items, opts.ScatterData{Value: []interface{}{i, v}})
	}
	return items
}
