package sales

import (
	"fmt"
	"math"
)

// Forecast is a straight-line projection of hourly sales.
type Forecast struct {
	Slope     float64
	Intercept float64
	// Trend is the fitted line evaluated at every input row.
	Trend []float64
	// Labels and Values are the projected periods after the last row.
	Labels []string
	Values []float64
}

// LinearForecast fits sales over rows by least squares (absent sales count
// as zero) and projects the next periods. Projections never go below zero.
func LinearForecast(rows []HourlyRecord, periods int) (Forecast, error) {
	n := len(rows)
	if n < 2 {
		return Forecast{}, fmt.Errorf("%w: have %d", ErrForecastTooShort, n)
	}

	var sumX, sumY, sumXY, sumXX float64

	for i, r := range rows {
		x, y := float64(i), r.Sales.Or(0)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	fn := float64(n)
	slope := (fn*sumXY - sumX*sumY) / (fn*sumXX - sumX*sumX)
	intercept := (sumY - slope*sumX) / fn

	fc := Forecast{
		Slope:     slope,
		Intercept: intercept,
		Trend:     make([]float64, n),
	}

	for i := range rows {
		fc.Trend[i] = intercept + slope*float64(i)
	}

	lastHour := n - 1
	if h, ok := LeadingHour(rows[n-1].Time); ok {
		lastHour = h
	}

	for k := 1; k <= periods; k++ {
		v := math.Max(0, intercept+slope*float64(n-1+k))

		fc.Labels = append(fc.Labels, ClockLabel(((lastHour+k)%24)*60))
		fc.Values = append(fc.Values, math.Round(v))
	}

	return fc, nil
}
