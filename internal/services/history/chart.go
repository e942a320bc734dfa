package history

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/bolsa/internal/models"
)

// RenderIndexChart renders a PNG line chart of adjusted index values.
// Manual points are overlaid as a second, dotted series.
func RenderIndexChart(points []models.IndexPoint) ([]byte, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(points))
	}

	xValues := make([]time.Time, len(points))
	yValues := make([]float64, len(points))
	var manualX []time.Time
	var manualY []float64

	for i, p := range points {
		xValues[i] = p.Date.Time()
		yValues[i] = p.Value
		if p.Source.IsManual() {
			manualX = append(manualX, p.Date.Time())
			manualY = append(manualY, p.Value)
		}
	}

	series := []chart.Series{
		chart.TimeSeries{
			Name: "Índice General",
			Style: chart.Style{
				StrokeColor: drawing.ColorFromHex("2563eb"),
				StrokeWidth: 2.5,
			},
			XValues: xValues,
			YValues: yValues,
		},
	}
	if len(manualX) > 0 {
		series = append(series, chart.TimeSeries{
			Name: "Manual",
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    3,
				DotColor:    drawing.ColorFromHex("dc2626"),
			},
			XValues: manualX,
			YValues: manualY,
		})
	}

	graph := chart.Chart{
		Title:  "Índice General",
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("02 Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.2f", f)
				}
				return ""
			},
		},
		Series: series,
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}
