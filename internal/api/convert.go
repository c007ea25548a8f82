package api

import (
	"time"

	"github.com/polygon-io/client-go/rest/models"

	"github.com/rickgao/stockstream/internal/model"
)

// NanosToMillis converts a vendor nanosecond timestamp to milliseconds,
// the unit the stream uses.
func NanosToMillis(ns int64) int64 {
	return ns / int64(time.Millisecond)
}

func pointFromAgg(a models.Agg) model.Point {
	p := model.Point{
		Open:      a.Open,
		High:      a.High,
		Low:       a.Low,
		Close:     a.Close,
		Volume:    a.Volume,
		Timestamp: time.Time(a.Timestamp).UnixMilli(),
	}
	if a.VWAP != 0 {
		vw := a.VWAP
		p.VWAP = &vw
	}
	return p
}

// ToEntry converts a historical trade to a recent-trades row.
func (t *APITrade) ToEntry() model.TradeEntry {
	conditions := t.Conditions
	if conditions == nil {
		conditions = []int{}
	}
	return model.TradeEntry{
		Price:      t.Price,
		Size:       t.Size,
		Timestamp:  NanosToMillis(t.ParticipantTimestamp),
		Conditions: conditions,
	}
}

// ToPriceData builds a price panel from a snapshot. It fails with ErrNoData
// when the snapshot has no last trade or previous close.
func (s *TickerSnapshot) ToPriceData(trades []APITrade) (model.PriceData, error) {
	if s.LastTrade == nil || s.LastTrade.Price == 0 || s.PrevDay == nil || s.PrevDay.Close == 0 {
		return model.PriceData{}, ErrNoData
	}

	price := s.LastTrade.Price
	prevClose := s.PrevDay.Close
	change := price - prevClose

	pd := model.PriceData{
		Symbol:        s.Ticker,
		Price:         price,
		Change:        change,
		ChangePercent: change / prevClose * 100,
		LastUpdate:    NanosToMillis(s.LastTrade.Timestamp),
		PreviousClose: prevClose,
		DayOpen:       prevClose,
		Trades:        make([]model.TradeEntry, 0, len(trades)),
	}
	if s.Day != nil {
		pd.Volume = s.Day.Volume
		if s.Day.Open != 0 {
			pd.DayOpen = s.Day.Open
		}
	}
	for i := range trades {
		pd.Trades = append(pd.Trades, trades[i].ToEntry())
	}
	return pd, nil
}

// ToStock converts a snapshot into a summary row. name falls back to
// "Unknown".
func (s *TickerSnapshot) ToStock(name string) Stock {
	if name == "" {
		name = "Unknown"
	}
	st := Stock{
		Symbol:        s.Ticker,
		Name:          name,
		Change:        s.TodaysChange,
		ChangePercent: s.TodaysChangePerc,
	}
	if s.Day != nil {
		st.Price = s.Day.Close
		st.Volume = s.Day.Volume
	}
	return st
}
