// Copyright (c) 2025 Yawning Angel
//
// SPDX-License-Identifier: BSD-3-Clause

// Command dyadic-bench measures square root engine behavior across
// window widths for a field: table build times, per-query operation
// counts checked against the cost model, and wall-clock latencies,
// written out as JSON and a go-echarts HTML page.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/tuneinsight/lattigo/v4/utils"

	"gitlab.com/yawning/dyadic-sqrt"
	"gitlab.com/yawning/dyadic-sqrt/field"
)

// NIST P-224, the classic "annoying for Tonelli-Shanks" field.
const defaultQ = "0xffffffffffffffffffffffffffffffff000000000000000000000001"

type summaryStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

type widthReport struct {
	WindowWidth     uint         `json:"window_width"`
	LeafWidth       uint         `json:"leaf_width"`
	Squarings       uint64       `json:"squarings"`
	Multiplications uint64       `json:"multiplications"`
	BuildSeconds    float64      `json:"build_seconds"`
	SqrtMicros      summaryStats `json:"sqrt_micros"`
	SquareRate      float64      `json:"square_rate"`
}

func computeStats(x []float64) summaryStats {
	n := len(x)
	if n == 0 {
		return summaryStats{}
	}
	cp := append([]float64(nil), x...)
	sort.Float64s(cp)
	var m float64
	for _, v := range x {
		m += v
	}
	m /= float64(n)
	var m2 float64
	for _, v := range x {
		d := v - m
		m2 += d * d
	}
	var std float64
	if n > 1 {
		std = math.Sqrt(m2 / float64(n-1))
	}
	return summaryStats{
		Count:  n,
		Mean:   m,
		Std:    std,
		Min:    cp[0],
		Q1:     quantileSorted(cp, 0.25),
		Median: quantileSorted(cp, 0.5),
		Q3:     quantileSorted(cp, 0.75),
		Max:    cp[n-1],
	}
}

func quantileSorted(sorted []float64, p float64) float64 {
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := p * float64(len(sorted)-1)
	l := int(math.Floor(pos))
	r := int(math.Ceil(pos))
	if l == r {
		return sorted[l]
	}
	w := pos - float64(l)
	return sorted[l]*(1-w) + sorted[r]*w
}

func computeHistogram(values []float64, nbins int) (edges []float64, counts []int) {
	cp := append([]float64(nil), values...)
	sort.Float64s(cp)
	minv, maxv := cp[0], cp[len(cp)-1]
	width := (maxv - minv) / float64(nbins)
	if width <= 0 {
		width = 1
	}
	edges = make([]float64, nbins+1)
	for i := 0; i <= nbins; i++ {
		edges[i] = minv + float64(i)*width
	}
	counts = make([]int, nbins)
	for _, v := range values {
		idx := int(math.Floor((v - minv) / width))
		if idx < 0 {
			idx = 0
		}
		if idx >= nbins {
			idx = nbins - 1
		}
		counts[idx]++
	}
	return
}

func toBarItems(vals []int) []opts.BarData {
	out := make([]opts.BarData, len(vals))
	for i, v := range vals {
		out[i] = opts.BarData{Value: v}
	}
	return out
}

func newLatencyChart(title string, values []float64, stats summaryStats) *charts.Bar {
	nbins := int(math.Ceil(math.Sqrt(float64(len(values)))))
	if nbins < 20 {
		nbins = 20
	}
	if nbins > 200 {
		nbins = 200
	}
	edges, counts := computeHistogram(values, nbins)
	xLabels := make([]string, nbins)
	for i := 0; i < nbins; i++ {
		xLabels[i] = fmt.Sprintf("%.2f", 0.5*(edges[i]+edges[i+1]))
	}

	bar := charts.NewBar()
	subtitle := fmt.Sprintf("n=%d, mean=%.3fus, std=%.3f, median=%.3fus", stats.Count, stats.Mean, stats.Std, stats.Median)
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1200px", Height: "600px"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}, opts.DataZoom{Type: "slider"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(xLabels).
		AddSeries("count", toBarItems(counts)).
		SetSeriesOptions(charts.WithLabelOpts(opts.Label{Show: opts.Bool(false)}))
	return bar
}

func newCostChart(reports []widthReport) *charts.Line {
	xs := make([]string, len(reports))
	sq := make([]opts.LineData, len(reports))
	mu := make([]opts.LineData, len(reports))
	for i, r := range reports {
		xs[i] = strconv.FormatUint(uint64(r.WindowWidth), 10)
		sq[i] = opts.LineData{Value: r.Squarings}
		mu[i] = opts.LineData{Value: r.Multiplications}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "operations per square root vs window width"}),
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "600px"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	line.SetXAxis(xs).
		AddSeries("squarings", sq).
		AddSeries("multiplications", mu)
	return line
}

func saveJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func parseWidths(s string) ([]uint, error) {
	var out []uint
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseUint(part, 10, 8)
		if err != nil {
			return nil, err
		}
		out = append(out, uint(v))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no widths")
	}
	return out, nil
}

func measureWidth(fld *field.Field, w, leafW uint, hardened bool, samples int, seed []byte) (widthReport, []float64, error) {
	buildStart := time.Now()
	eng, err := dyadicsqrt.New(fld, dyadicsqrt.Config{
		WindowWidth:     w,
		LeafWidth:       leafW,
		HardenedLookups: hardened,
	})
	if err != nil {
		return widthReport{}, nil, err
	}
	buildSeconds := time.Since(buildStart).Seconds()

	predicted := dyadicsqrt.PredictCost(eng.N(), eng.WindowWidth(), eng.LeafWidth())

	// Keyed PRNG, so every width sees the identical input stream.
	prng, err := utils.NewKeyedPRNG(seed)
	if err != nil {
		return widthReport{}, nil, err
	}

	micros := make([]float64, 0, samples)
	var squares uint64
	x := field.NewElement()
	for i := 0; i < samples; i++ {
		if _, err = fld.Random(x, prng); err != nil {
			return widthReport{}, nil, err
		}

		qStart := time.Now()
		_, ok, cost := eng.SqrtWithCost(x)
		micros = append(micros, time.Since(qStart).Seconds()*1e6)

		if cost != predicted {
			return widthReport{}, nil, fmt.Errorf("cost model drift: have %s, predicted %s", cost, predicted)
		}
		squares += ok
	}

	report := widthReport{
		WindowWidth:     eng.WindowWidth(),
		LeafWidth:       eng.LeafWidth(),
		Squarings:       predicted.Squarings,
		Multiplications: predicted.Multiplications,
		BuildSeconds:    buildSeconds,
		SqrtMicros:      computeStats(micros),
		SquareRate:      float64(squares) / float64(samples),
	}
	return report, micros, nil
}

func main() {
	qStr := flag.String("q", defaultQ, "field order (decimal, or 0x-prefixed hex)")
	widths := flag.String("widths", "2,4,6,8", "comma separated window widths to measure")
	leafW := flag.Uint("leafw", 0, "leaf width in bits (0 tracks the window width)")
	samples := flag.Int("samples", 1000, "queries measured per width")
	seed := flag.String("seed", "dyadic-bench", "PRNG key for reproducible inputs")
	hardened := flag.Bool("hardened", false, "use hardened table lookups")
	outDir := flag.String("out", "bench_reports", "output directory")
	flag.Parse()

	q, ok := new(big.Int).SetString(*qStr, 0)
	if !ok {
		log.Fatalf("unparseable field order %q", *qStr)
	}
	fld, err := field.New(q)
	if err != nil {
		log.Fatalf("bad field: %v", err)
	}
	ws, err := parseWidths(*widths)
	if err != nil {
		log.Fatalf("bad widths %q: %v", *widths, err)
	}
	if err = os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("create output dir: %v", err)
	}

	page := components.NewPage()
	reports := make([]widthReport, 0, len(ws))
	histograms := make([]components.Charter, 0, len(ws))
	for _, w := range ws {
		r, micros, err := measureWidth(fld, w, *leafW, *hardened, *samples, []byte(*seed))
		if err != nil {
			log.Fatalf("width %d: %v", w, err)
		}
		reports = append(reports, r)
		histograms = append(histograms, newLatencyChart(fmt.Sprintf("sqrt latency, w=%d (us)", r.WindowWidth), micros, r.SqrtMicros))
		fmt.Printf("w=%-2d leafw=%-2d build=%.3fs cost=%dS+%dM mean=%.2fus\n",
			r.WindowWidth, r.LeafWidth, r.BuildSeconds, r.Squarings, r.Multiplications, r.SqrtMicros.Mean)
	}

	ts := time.Now().Format("20060102_150405")
	jsonPath := filepath.Join(*outDir, fmt.Sprintf("sqrt_costs_%s.json", ts))
	if err := saveJSON(jsonPath, reports); err != nil {
		log.Printf("warn: save stats: %v", err)
	}

	page.AddCharts(newCostChart(reports))
	page.AddCharts(histograms...)

	htmlPath := filepath.Join(*outDir, fmt.Sprintf("sqrt_bench_%s.html", ts))
	f, err := os.Create(htmlPath)
	if err != nil {
		log.Fatalf("create html: %v", err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		log.Fatalf("render html: %v", err)
	}
	fmt.Println("Charts page:", htmlPath)
	fmt.Println("Stats JSON:", jsonPath)
}
