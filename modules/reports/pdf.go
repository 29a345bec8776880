package reports

import (
	"bytes"
	"sort"

	"github.com/go-pdf/fpdf"
	"github.com/wcharczuk/go-chart/v2"
)

// renderPDF assembles the utilization report: a bar chart of booked hours per
// resource, a bar chart of booking counts, and a pie chart of usage by type.
func renderPDF(period string, stats []ResourceUtilization, types []TypeUsage) ([]byte, error) {
	// Rank by booked hours for presentation
	sorted := append([]ResourceUtilization{}, stats...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TotalHours > sorted[j].TotalHours })

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, "Resource Utilization Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 10, period, "", 1, "C", false, 0, "")
	pdf.Ln(10)

	if len(sorted) == 0 {
		pdf.CellFormat(190, 10, "No data available for this period.", "", 1, "C", false, 0, "")
	} else {
		hourBars := make([]chart.Value, 0, len(sorted))
		bookingBars := make([]chart.Value, 0, len(sorted))
		for _, row := range sorted {
			hourBars = append(hourBars, chart.Value{Label: row.ResourceName, Value: row.TotalHours})
			bookingBars = append(bookingBars, chart.Value{Label: row.ResourceName, Value: float64(row.Bookings)})
		}

		if err := embedBarChart(pdf, "hours", "Resource Utilization (Hours)", hourBars); err != nil {
			return nil, err
		}
		pdf.AddPage()
		if err := embedBarChart(pdf, "bookings", "Resource Bookings (Count)", bookingBars); err != nil {
			return nil, err
		}
	}

	slices := make([]chart.Value, 0, len(types))
	for _, row := range types {
		if row.Hours > 0 {
			slices = append(slices, chart.Value{Label: row.Type, Value: row.Hours})
		}
	}
	if len(slices) > 0 {
		pdf.AddPage()
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(190, 10, "Usage by Resource Type", "", 1, "L", false, 0, "")

		pie := chart.PieChart{Width: 600, Height: 600, Values: slices}
		var buf bytes.Buffer
		if err := pie.Render(chart.PNG, &buf); err != nil {
			return nil, err
		}
		embedPNG(pdf, "types", &buf, 30, 150)
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func embedBarChart(pdf *fpdf.Fpdf, name, title string, bars []chart.Value) error {
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(190, 10, title, "", 1, "L", false, 0, "")

	// The renderer rejects a zero-span y-range, which is what it infers when
	// every bar has the same value. Pin the range to [0, max] instead.
	max := 0.0
	for _, bar := range bars {
		if bar.Value > max {
			max = bar.Value
		}
	}
	if max <= 0 {
		max = 1
	}

	graph := chart.BarChart{
		Width:    1000,
		Height:   600,
		BarWidth: 60,
		Bars:     bars,
		XAxis:    chart.Style{TextRotationDegrees: 45},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: max * 1.1},
		},
		Background: chart.Style{
			Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20},
		},
	}
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return err
	}
	embedPNG(pdf, name, &buf, 10, 190)
	return nil
}

func embedPNG(pdf *fpdf.Fpdf, name string, buf *bytes.Buffer, x, width float64) {
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, buf)
	pdf.ImageOptions(name, x, pdf.GetY()+5, width, 0, false, opts, 0, "")
}
