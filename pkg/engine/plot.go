package engine

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/recut/pkg/engine/analysis"
)

const (
	curveLineWidth = 2

	curveColor   = "#5470c6"
	turningColor = "#ee6666"
)

// buildCurveData flattens the per-sentence emotion curve into chart series:
// the signed curve itself plus a marker-only series at turning-point
// segments.
func buildCurveData(features analysis.Features) (labels []string, curve, turning []opts.LineData) {
	turningSet := make(map[int]bool, len(features.TurningPoints))
	for _, tp := range features.TurningPoints {
		turningSet[tp.Index] = true
	}

	labels = make([]string, len(features.Curve))
	curve = make([]opts.LineData, len(features.Curve))
	turning = make([]opts.LineData, len(features.Curve))

	for i, p := range features.Curve {
		labels[i] = strconv.Itoa(i + 1)
		curve[i] = opts.LineData{Value: p.Score}

		if turningSet[p.SegmentIndex] {
			turning[i] = opts.LineData{
				Value:  p.Score,
				Symbol: "circle",
			}
		} else {
			turning[i] = opts.LineData{Value: "-"}
		}
	}

	return labels, curve, turning
}

// createCurveChart renders the emotion curve with turning points overlaid.
func createCurveChart(labels []string, curve, turning []opts.LineData) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Emotion Curve",
			Subtitle: "Signed sentence-level sentiment with detected turning points",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Sentence"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Sentiment", Min: -1, Max: 1}),
	)
	line.SetXAxis(labels)
	line.AddSeries("Sentiment", curve,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: curveColor}),
		charts.WithLineStyleOpts(opts.LineStyle{Width: curveLineWidth}),
	)
	line.AddSeries("Turning points", turning,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: turningColor}),
		charts.WithLineStyleOpts(opts.LineStyle{Width: 0, Opacity: opts.Float(0)}),
	)

	return line
}

// RenderCurve writes an HTML emotion-curve chart for the analyzed features.
func RenderCurve(w io.Writer, features analysis.Features) error {
	labels, curve, turning := buildCurveData(features)

	chart := createCurveChart(labels, curve, turning)

	if err := chart.Render(w); err != nil {
		return fmt.Errorf("render emotion curve: %w", err)
	}

	return nil
}
