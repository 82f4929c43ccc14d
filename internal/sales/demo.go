package sales

import "math"

// DefaultDemoTimes are the hours used by DemoDataset when none are given.
var DefaultDemoTimes = []string{
	"10:00", "11:00", "12:00", "13:00", "14:00",
	"15:00", "16:00", "17:00", "18:00", "19:00",
}

// DemoDataset builds a deterministic bell-shaped trading day over times.
func DemoDataset(times []string) Dataset {
	if len(times) == 0 {
		times = DefaultDemoTimes
	}

	n := len(times)
	rows := make([]HourlyRecord, n)

	var total float64

	for i, t := range times {
		x := (float64(i) - float64(n-1)/2) / (float64(n) / 4)
		sales := math.Round(600 * math.Exp(-0.5*x*x))
		txns := math.Max(1, math.Round(sales/45))

		rows[i] = HourlyRecord{
			Time:       t,
			Sales:      N(sales),
			Txns:       N(txns),
			Units:      N(math.Round(txns * 1.6)),
			HourTarget: N(math.Round(sales * 1.05)),
			LastYear:   N(math.Round(sales * 0.92)),
			Traffic:    N(math.Round(txns * 3.3)),
		}

		total += sales
	}

	return Dataset{
		Hourly: rows,
		WTD: map[string]any{
			"day_target": math.Round(total * 1.05),
			"vs_ly":      math.Round(total * 0.08),
		},
		Meta: map[string]any{"source": "demo"},
	}
}
