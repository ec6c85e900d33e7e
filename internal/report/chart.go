package report

import (
	"strconv"
	"time"

	"tally/internal/core"
)

// Bucket is one fixed subdivision of a period for trend charting.
// Value is the profit of the subset falling in the bucket, in cents.
type Bucket struct {
	Label string `json:"label"`
	Value int64  `json:"value_cents"`
}

var (
	weekdayLabels = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	monthLabels   = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
)

// ChartBuckets subdivides the snapshot into the period's fixed bucket
// sequence: 24 hours for day, 7 weekdays for week, 4 positional weeks
// for month, 12 months for year. The sequence length never depends on
// the data; empty buckets carry a zero value.
func ChartBuckets(ts []core.Transaction, period Period) []Bucket {
	switch period {
	case Day:
		return bucketize(ts, 24, func(i int) string { return strconv.Itoa(i) + ":00" },
			func(d time.Time) int { return d.Hour() })
	case Week:
		return bucketize(ts, 7, func(i int) string { return weekdayLabels[i] },
			func(d time.Time) int { return int(d.Weekday()) })
	case Month:
		// Positional weeks 1..4; days 29-31 fall past the last bucket.
		return bucketize(ts, 4, func(i int) string { return "Week " + strconv.Itoa(i+1) },
			func(d time.Time) int { return (d.Day()+6)/7 - 1 })
	case Year:
		return bucketize(ts, 12, func(i int) string { return monthLabels[i] },
			func(d time.Time) int { return int(d.Month()) - 1 })
	default:
		return nil
	}
}

func bucketize(ts []core.Transaction, n int, label func(int) string, index func(time.Time) int) []Bucket {
	values := make([]int64, n)
	for _, t := range ts {
		i := index(t.Date)
		if i < 0 || i >= n {
			continue
		}
		if t.Type == core.Income {
			values[i] += t.AmountCents
		} else {
			values[i] -= t.AmountCents
		}
	}

	out := make([]Bucket, n)
	for i := range out {
		out[i] = Bucket{Label: label(i), Value: values[i]}
	}
	return out
}
