package api

import (
	"fmt"
	"time"

	"github.com/polygon-io/client-go/rest/models"
)

// Timeframe selects the window and bar size of a chart.
type Timeframe string

const (
	Timeframe1D Timeframe = "1D"
	Timeframe1W Timeframe = "1W"
	Timeframe1M Timeframe = "1M"
	Timeframe1Y Timeframe = "1Y"
)

// Timeframes lists every supported timeframe.
var Timeframes = []Timeframe{Timeframe1D, Timeframe1W, Timeframe1M, Timeframe1Y}

// ParseTimeframe validates s.
func ParseTimeframe(s string) (Timeframe, error) {
	for _, tf := range Timeframes {
		if string(tf) == s {
			return tf, nil
		}
	}
	return "", fmt.Errorf("unknown timeframe %q", s)
}

// IsRealtime reports whether the chart is kept live from the stream.
func (tf Timeframe) IsRealtime() bool {
	return tf == Timeframe1D
}

// Range is the concrete query window of a timeframe.
type Range struct {
	Multiplier int
	Timespan   models.Timespan
	From       time.Time
	To         time.Time
}

// Range resolves tf against now. Windows start at local midnight.
func (tf Timeframe) Range(now time.Time) (Range, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch tf {
	case Timeframe1D:
		return Range{Multiplier: 1, Timespan: models.Minute, From: today, To: now}, nil
	case Timeframe1W:
		return Range{Multiplier: 1, Timespan: models.Hour, From: today.AddDate(0, 0, -7), To: now}, nil
	case Timeframe1M:
		return Range{Multiplier: 1, Timespan: models.Day, From: today.AddDate(0, -1, 0), To: now}, nil
	case Timeframe1Y:
		return Range{Multiplier: 1, Timespan: models.Day, From: today.AddDate(-1, 0, 0), To: now}, nil
	}
	return Range{}, fmt.Errorf("unknown timeframe %q", tf)
}

// dateLayout is the vendor's calendar date format.
const dateLayout = "2006-01-02"

// FromDate is From as a vendor calendar date.
func (r Range) FromDate() string { return r.From.Format(dateLayout) }

// ToDate is To as a vendor calendar date.
func (r Range) ToDate() string { return r.To.Format(dateLayout) }
