package model

// EventType discriminates the messages carried on the vendor feed.
type EventType string

const (
	EventTrade     EventType = "T"
	EventAggregate EventType = "A"
	EventStatus    EventType = "status"
)

// StatusCode is the value of the "status" field on a status message.
type StatusCode string

const (
	StatusAuthSuccess    StatusCode = "auth_success"
	StatusError          StatusCode = "error"
	StatusConnected      StatusCode = "connected"
	StatusSuccess        StatusCode = "success"
	StatusMaxConnections StatusCode = "max_connections"
)

// Valid reports whether s is one of the status codes the vendor publishes.
func (s StatusCode) Valid() bool {
	switch s {
	case StatusAuthSuccess, StatusError, StatusConnected, StatusSuccess, StatusMaxConnections:
		return true
	}
	return false
}

// -----------------------------------------------------------------------------
// Stream Messages
// -----------------------------------------------------------------------------

// Trade is a single executed trade ("T" event).
type Trade struct {
	Symbol     string
	ExchangeID int
	TradeID    string
	Tape       int
	Price      float64
	Size       float64
	Conditions []int
	Timestamp  int64 // ms
	Sequence   int64
}

// Aggregate is a per-second or per-minute bar ("A" event).
type Aggregate struct {
	Symbol            string
	Volume            float64
	AccumulatedVolume *float64
	OfficialOpen      *float64
	VWAP              *float64 // bar volume weighted price
	Open              float64
	Close             float64
	High              float64
	Low               float64
	VWAPToday         *float64
	AverageTradeSize  float64
	StartTimestamp    int64 // ms
	EndTimestamp      int64 // ms
}

// Status is a control message from the vendor (auth results, errors).
type Status struct {
	Status  StatusCode
	Message string
}

// Message is one decoded element of an inbound frame. Exactly one of
// Trade, Aggregate or Status is set, selected by Event.
type Message struct {
	Event     EventType
	Trade     *Trade
	Aggregate *Aggregate
	Status    *Status
}

// Symbol returns the ticker the message refers to, or "" for status messages.
func (m Message) Symbol() string {
	switch m.Event {
	case EventTrade:
		if m.Trade != nil {
			return m.Trade.Symbol
		}
	case EventAggregate:
		if m.Aggregate != nil {
			return m.Aggregate.Symbol
		}
	}
	return ""
}

// -----------------------------------------------------------------------------
// Derived State
// -----------------------------------------------------------------------------

// Point is a single OHLCV chart point.
type Point struct {
	Open      float64  `json:"o"`
	High      float64  `json:"h"`
	Low       float64  `json:"l"`
	Close     float64  `json:"c"`
	Volume    float64  `json:"v"`
	Timestamp int64    `json:"t"`
	VWAP      *float64 `json:"vw,omitempty"`
}

// PointFromAggregate converts a live bar into a chart point keyed by the bar start.
func PointFromAggregate(a *Aggregate) Point {
	return Point{
		Open:      a.Open,
		High:      a.High,
		Low:       a.Low,
		Close:     a.Close,
		Volume:    a.Volume,
		Timestamp: a.StartTimestamp,
		VWAP:      a.VWAP,
	}
}

// TradeEntry is one row of a recent-trades list.
type TradeEntry struct {
	Price      float64 `json:"price"`
	Size       float64 `json:"size"`
	Timestamp  int64   `json:"timestamp"`
	Conditions []int   `json:"conditions,omitempty"`
}

// PriceData is the live price panel for a single symbol.
type PriceData struct {
	Symbol        string       `json:"symbol"`
	Price         float64      `json:"price"`
	Change        float64      `json:"change"`
	ChangePercent float64      `json:"changePercent"`
	Volume        float64      `json:"volume"`
	LastUpdate    int64        `json:"lastUpdate"`
	Trades        []TradeEntry `json:"trades"`
	PreviousClose float64      `json:"previousClose"`
	DayOpen       float64      `json:"dayOpen"`
}
