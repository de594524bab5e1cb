// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/relabs-tech/liftheat/internal/heatmap"
)

var intensityColors = []string{"#313695", "#4575b4", "#74add1", "#abd9e9", "#fee090", "#fdae61", "#f46d43", "#d73027", "#a50026"}

// verticalChart renders time per floor as a bar chart, lowest floor first.
func verticalChart(v []heatmap.FloorDwell, label string) *charts.Bar {
	x := make([]string, 0, len(v))
	y := make([]opts.BarData, 0, len(v))
	for _, d := range v {
		x = append(x, d.FloorName)
		y = append(y, opts.BarData{Value: d.Duration})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Vertical heat map", Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Time per floor", Subtitle: label}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "seconds"}),
	)
	bar.SetXAxis(x).
		AddSeries("duration", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

// floorChart renders the in-car positions of one floor as a scatter
// coloured by intensity over the unit square.
func floorChart(floor int, points []heatmap.HeatPoint, label string) *charts.Scatter {
	data := make([]opts.ScatterData, 0, len(points))
	for _, p := range points {
		data = append(data, opts.ScatterData{Value: []interface{}{p.NormalizedX, p.NormalizedY, p.Intensity}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Horizontal heat map", Width: "700px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("Floor %d movement", floor), Subtitle: fmt.Sprintf("%s points=%d", label, len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: 1, Name: "width", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1, Name: "depth", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        1,
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: intensityColors},
		}),
	)
	scatter.AddSeries("movement", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	return scatter
}

func (ws *WebServer) writeChart(w http.ResponseWriter, render func(buf *bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (ws *WebServer) handleVerticalChart(w http.ResponseWriter, r *http.Request) {
	snap, label, err := ws.snapshotFor(r)
	if err != nil {
		ws.writeJSONError(w, errorStatus(err), err.Error())
		return
	}
	bar := verticalChart(snap.Vertical, label)
	ws.writeChart(w, func(buf *bytes.Buffer) error { return bar.Render(buf) })
}

func (ws *WebServer) handleFloorChart(w http.ResponseWriter, r *http.Request) {
	floor, err := parseFloor(r)
	if err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, label, err := ws.snapshotFor(r)
	if err != nil {
		ws.writeJSONError(w, errorStatus(err), err.Error())
		return
	}
	scatter := floorChart(floor, snap.Horizontal[floor], label)
	ws.writeChart(w, func(buf *bytes.Buffer) error { return scatter.Render(buf) })
}
