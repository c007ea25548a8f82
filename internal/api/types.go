package api

// -----------------------------------------------------------------------------
// Reference
// -----------------------------------------------------------------------------

// TickerDetail is company reference data for one ticker.
type TickerDetail struct {
	Ticker          string  `json:"ticker"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	MarketCap       float64 `json:"market_cap"`
	PrimaryExchange string  `json:"primary_exchange"`
	HomepageURL     string  `json:"homepage_url"`
	ListDate        string  `json:"list_date"`
}

// TickerDetailResponse is the response from GET /v3/reference/tickers/{ticker}.
type TickerDetailResponse struct {
	Status  string        `json:"status"`
	Results *TickerDetail `json:"results"`
}

// TickerResult is one row of a ticker search.
type TickerResult struct {
	Ticker          string `json:"ticker"`
	Name            string `json:"name"`
	Market          string `json:"market"`
	Locale          string `json:"locale"`
	PrimaryExchange string `json:"primary_exchange"`
	Type            string `json:"type"`
	Active          bool   `json:"active"`
	CurrencyName    string `json:"currency_name"`
}

// TickersResponse is the response from GET /v3/reference/tickers.
type TickersResponse struct {
	Status  string         `json:"status"`
	Results []TickerResult `json:"results"`
	Count   int            `json:"count"`
	NextURL string         `json:"next_url"`
}

// SearchOptions contains options for SearchTickers.
type SearchOptions struct {
	Search   string
	Ticker   string
	Exchange string
	Limit    int
}

// -----------------------------------------------------------------------------
// Snapshots
// -----------------------------------------------------------------------------

// SnapshotBar is a day or minute bar inside a snapshot.
type SnapshotBar struct {
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume float64 `json:"v"`
	VWAP   float64 `json:"vw"`
}

// SnapshotTrade is the last trade inside a snapshot.
type SnapshotTrade struct {
	Price      float64 `json:"p"`
	Size       float64 `json:"s"`
	Exchange   int     `json:"x"`
	ID         string  `json:"i"`
	Conditions []int   `json:"c"`
	Timestamp  int64   `json:"t"` // ns
}

// TickerSnapshot is the current state of one ticker.
type TickerSnapshot struct {
	Ticker           string         `json:"ticker"`
	TodaysChange     float64        `json:"todaysChange"`
	TodaysChangePerc float64        `json:"todaysChangePerc"`
	Updated          int64          `json:"updated"`
	Day              *SnapshotBar   `json:"day"`
	Min              *SnapshotBar   `json:"min"`
	PrevDay          *SnapshotBar   `json:"prevDay"`
	LastTrade        *SnapshotTrade `json:"lastTrade"`
}

// SnapshotResponse is the response from the single-ticker snapshot endpoint.
type SnapshotResponse struct {
	Status string          `json:"status"`
	Ticker *TickerSnapshot `json:"ticker"`
}

// SnapshotsResponse is the response from the multi-ticker snapshot endpoint.
type SnapshotsResponse struct {
	Status  string           `json:"status"`
	Tickers []TickerSnapshot `json:"tickers"`
}

// Stock is a summary row for a list of stocks.
type Stock struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Volume        float64 `json:"volume"`
}

// -----------------------------------------------------------------------------
// Trades
// -----------------------------------------------------------------------------

// APITrade is one historical trade.
type APITrade struct {
	Price                float64 `json:"price"`
	Size                 float64 `json:"size"`
	Exchange             int     `json:"exchange"`
	ID                   string  `json:"id"`
	Conditions           []int   `json:"conditions"`
	ParticipantTimestamp int64   `json:"participant_timestamp"` // ns
	SIPTimestamp         int64   `json:"sip_timestamp"`         // ns
	SequenceNumber       int64   `json:"sequence_number"`
	Tape                 int     `json:"tape"`
}

// TradesResponse is the response from GET /v3/trades/{ticker}.
type TradesResponse struct {
	Status  string     `json:"status"`
	Results []APITrade `json:"results"`
	NextURL string     `json:"next_url"`
}

// -----------------------------------------------------------------------------
// Technical indicators
// -----------------------------------------------------------------------------

// IndicatorValue is one RSI or SMA value.
type IndicatorValue struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

// MACDValue is one MACD value.
type MACDValue struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

type indicatorResponse[T any] struct {
	Status  string `json:"status"`
	Results *struct {
		Values []T `json:"values"`
	} `json:"results"`
}
