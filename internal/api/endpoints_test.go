package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/polygon-io/client-go/rest/models"
)

// newTestServer routes paths to canned JSON bodies and records every
// request it serves.
func newTestServer(t *testing.T, routes map[string]string) (*httptest.Server, func() []*http.Request) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []*http.Request
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		reqs = append(reqs, r.Clone(context.Background()))
		mu.Unlock()

		body, ok := routes[r.URL.Path]
		if !ok {
			// Prefix routes end in "/".
			for prefix, b := range routes {
				if strings.HasSuffix(prefix, "/") && strings.HasPrefix(r.URL.Path, prefix) {
					body, ok = b, true
					break
				}
			}
		}
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"status":"NOT_FOUND","message":"no route"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return server, func() []*http.Request {
		mu.Lock()
		defer mu.Unlock()
		return append([]*http.Request(nil), reqs...)
	}
}

func testClient(url string) *Client {
	return NewClient(url, "test-key", WithRetries(0, time.Millisecond))
}

func TestGetTickerDetail(t *testing.T) {
	server, _ := newTestServer(t, map[string]string{
		"/v3/reference/tickers/AAPL": `{"status":"OK","results":{"ticker":"AAPL","name":"Apple Inc.","market_cap":3000000000000,"primary_exchange":"XNAS"}}`,
		"/v3/reference/tickers/NONE": `{"status":"OK"}`,
	})
	c := testClient(server.URL)

	d, err := c.GetTickerDetail(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Name != "Apple Inc." || d.PrimaryExchange != "XNAS" || d.MarketCap != 3e12 {
		t.Errorf("unexpected detail: %+v", d)
	}

	if _, err := c.GetTickerDetail(context.Background(), "NONE"); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestSearchTickers(t *testing.T) {
	t.Run("query parameters", func(t *testing.T) {
		server, requests := newTestServer(t, map[string]string{
			"/v3/reference/tickers": `{"status":"OK","results":[{"ticker":"AAPL","name":"Apple Inc.","active":true}],"count":1}`,
		})
		c := testClient(server.URL)

		results, err := c.SearchTickers(context.Background(), SearchOptions{Search: "apple"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 1 || results[0].Ticker != "AAPL" {
			t.Fatalf("results = %+v", results)
		}

		q := requests()[0].URL.Query()
		for key, want := range map[string]string{
			"active": "true",
			"market": "stocks",
			"type":   "CS",
			"search": "apple",
			"limit":  "20",
		} {
			if got := q.Get(key); got != want {
				t.Errorf("query %s = %q, want %q", key, got, want)
			}
		}
		if q.Has("ticker") || q.Has("exchange") {
			t.Errorf("unset options leaked into query: %v", q)
		}
	})

	t.Run("no results is empty", func(t *testing.T) {
		server, _ := newTestServer(t, map[string]string{
			"/v3/reference/tickers": `{"status":"OK","count":0}`,
		})
		results, err := testClient(server.URL).SearchTickers(context.Background(), SearchOptions{Ticker: "ZZZZ", Limit: 1})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if results == nil || len(results) != 0 {
			t.Errorf("results = %v, want empty slice", results)
		}
	})
}

const aaplSnapshot = `{"ticker":"AAPL","todaysChange":1.5,"todaysChangePerc":0.8,
	"day":{"o":188,"c":189.5,"v":51000000},"prevDay":{"c":188},
	"lastTrade":{"p":189.5,"s":100,"t":1700000000000000000}}`

func TestGetSnapshot(t *testing.T) {
	server, _ := newTestServer(t, map[string]string{
		snapshotPath + "/AAPL": `{"status":"OK","ticker":` + aaplSnapshot + `}`,
		snapshotPath + "/NONE": `{"status":"OK"}`,
	})
	c := testClient(server.URL)

	s, err := c.GetSnapshot(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.LastTrade == nil || s.LastTrade.Price != 189.5 {
		t.Errorf("LastTrade = %+v", s.LastTrade)
	}
	if s.Day == nil || s.Day.Volume != 51_000_000 {
		t.Errorf("Day = %+v", s.Day)
	}

	if _, err := c.GetSnapshot(context.Background(), "NONE"); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestGetStocks(t *testing.T) {
	server, requests := newTestServer(t, map[string]string{
		snapshotPath: `{"status":"OK","tickers":[` + aaplSnapshot + `,
			{"ticker":"MSFT","todaysChange":-2,"day":{"c":410,"v":20000000},"prevDay":{"c":412}},
			{"ticker":"HALT","prevDay":{"c":5}}]}`,
		"/v3/reference/tickers": `{"status":"OK","results":[]}`,
	})
	c := testClient(server.URL)

	stocks, err := c.GetStocks(context.Background(), []string{"AAPL", "MSFT", "HALT"}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stocks) != 2 {
		t.Fatalf("got %d stocks, want 2 (HALT has no day bar)", len(stocks))
	}
	for _, s := range stocks {
		if s.Name != "Unknown" {
			t.Errorf("%s name = %q, want Unknown", s.Symbol, s.Name)
		}
	}

	var sawTickers bool
	for _, r := range requests() {
		if r.URL.Path == snapshotPath && r.URL.Query().Get("tickers") == "AAPL,MSFT,HALT" {
			sawTickers = true
		}
	}
	if !sawTickers {
		t.Error("snapshot request did not carry the tickers list")
	}

	limited, err := c.GetStocks(context.Background(), []string{"AAPL", "MSFT"}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limit ignored: got %d stocks", len(limited))
	}
}

func TestGetStocks_SortedByName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == snapshotPath {
			w.Write([]byte(`{"status":"OK","tickers":[
				{"ticker":"MSFT","day":{"c":410},"prevDay":{"c":412}},
				{"ticker":"AAPL","day":{"c":189},"prevDay":{"c":188}}]}`))
			return
		}
		switch r.URL.Query().Get("ticker") {
		case "MSFT":
			w.Write([]byte(`{"results":[{"ticker":"MSFT","name":"Microsoft Corp"}]}`))
		case "AAPL":
			w.Write([]byte(`{"results":[{"ticker":"AAPL","name":"Apple Inc."}]}`))
		}
	}))
	defer server.Close()

	stocks, err := testClient(server.URL).GetStocks(context.Background(), []string{"MSFT", "AAPL"}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stocks) != 2 || stocks[0].Name != "Apple Inc." || stocks[1].Name != "Microsoft Corp" {
		t.Errorf("stocks = %+v", stocks)
	}
}

func TestGetTrades(t *testing.T) {
	server, requests := newTestServer(t, map[string]string{
		"/v3/trades/AAPL": `{"status":"OK","results":[{"price":189.5,"size":100,"participant_timestamp":1700000000000000000}]}`,
	})
	day := time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)

	trades, err := testClient(server.URL).GetTrades(context.Background(), "AAPL", day, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 1 || trades[0].Price != 189.5 {
		t.Errorf("trades = %+v", trades)
	}

	q := requests()[0].URL.Query()
	if q.Get("timestamp") != "2024-03-15" {
		t.Errorf("timestamp = %q, want 2024-03-15", q.Get("timestamp"))
	}
	if q.Get("limit") != "30" {
		t.Errorf("limit = %q, want 30", q.Get("limit"))
	}
}

func TestGetPriceData(t *testing.T) {
	t.Run("snapshot and trades", func(t *testing.T) {
		server, _ := newTestServer(t, map[string]string{
			snapshotPath + "/AAPL": `{"status":"OK","ticker":` + aaplSnapshot + `}`,
			"/v3/trades/AAPL": `{"status":"OK","results":[
				{"price":189.5,"size":100,"participant_timestamp":1700000000000000000},
				{"price":189.4,"size":50,"participant_timestamp":1699999999000000000}]}`,
		})

		pd, err := testClient(server.URL).GetPriceData(context.Background(), "AAPL")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pd.Symbol != "AAPL" || pd.Price != 189.5 || pd.PreviousClose != 188 {
			t.Errorf("unexpected price data: %+v", pd)
		}
		if len(pd.Trades) != 2 || pd.Trades[1].Timestamp != 1_699_999_999_000 {
			t.Errorf("Trades = %+v", pd.Trades)
		}
	})

	t.Run("snapshot without last trade", func(t *testing.T) {
		server, _ := newTestServer(t, map[string]string{
			snapshotPath + "/HALT": `{"status":"OK","ticker":{"ticker":"HALT","prevDay":{"c":5}}}`,
			"/v3/trades/HALT":      `{"status":"OK","results":[]}`,
		})
		if _, err := testClient(server.URL).GetPriceData(context.Background(), "HALT"); !errors.Is(err, ErrNoData) {
			t.Errorf("expected ErrNoData, got %v", err)
		}
	})

	t.Run("failed request fails the call", func(t *testing.T) {
		server, _ := newTestServer(t, map[string]string{
			snapshotPath + "/AAPL": `{"status":"OK","ticker":` + aaplSnapshot + `}`,
		})
		var apiErr *APIError
		_, err := testClient(server.URL).GetPriceData(context.Background(), "AAPL")
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404 APIError, got %v", err)
		}
	})
}

func TestIndicators(t *testing.T) {
	server, requests := newTestServer(t, map[string]string{
		"/v1/indicators/rsi/AAPL":  `{"status":"OK","results":{"values":[{"timestamp":1700000000000,"value":61.2}]}}`,
		"/v1/indicators/sma/AAPL":  `{"status":"OK","results":{"values":[{"timestamp":1700000000000,"value":187.1}]}}`,
		"/v1/indicators/macd/AAPL": `{"status":"OK","results":{"values":[{"timestamp":1700000000000,"value":1.2,"signal":0.9,"histogram":0.3}]}}`,
		"/v1/indicators/rsi/NONE":  `{"status":"OK"}`,
	})
	c := testClient(server.URL)
	ctx := context.Background()

	rsi, err := c.GetRSI(ctx, "AAPL", Timeframe1M)
	if err != nil {
		t.Fatalf("GetRSI: %v", err)
	}
	if len(rsi) != 1 || rsi[0].Value != 61.2 {
		t.Errorf("rsi = %+v", rsi)
	}

	sma, err := c.GetSMA(ctx, "AAPL", Timeframe1W)
	if err != nil {
		t.Fatalf("GetSMA: %v", err)
	}
	if len(sma) != 1 || sma[0].Value != 187.1 {
		t.Errorf("sma = %+v", sma)
	}

	macd, err := c.GetMACD(ctx, "AAPL", Timeframe1Y)
	if err != nil {
		t.Fatalf("GetMACD: %v", err)
	}
	if len(macd) != 1 || macd[0].Signal != 0.9 || macd[0].Histogram != 0.3 {
		t.Errorf("macd = %+v", macd)
	}

	if _, err := c.GetRSI(ctx, "NONE", Timeframe1D); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
	if _, err := c.GetRSI(ctx, "AAPL", Timeframe("5Y")); err == nil {
		t.Error("expected error for unknown timeframe")
	}

	reqs := requests()
	checks := []struct {
		path string
		want map[string]string
	}{
		{"/v1/indicators/rsi/AAPL", map[string]string{"window": "14", "timespan": "day", "series_type": "close", "order": "asc", "limit": "200"}},
		{"/v1/indicators/sma/AAPL", map[string]string{"window": "20", "timespan": "hour"}},
		{"/v1/indicators/macd/AAPL", map[string]string{"short_window": "12", "long_window": "26", "signal_window": "9", "timespan": "day"}},
	}
	for _, check := range checks {
		var found bool
		for _, r := range reqs {
			if r.URL.Path != check.path {
				continue
			}
			found = true
			q := r.URL.Query()
			for key, want := range check.want {
				if got := q.Get(key); got != want {
					t.Errorf("%s query %s = %q, want %q", check.path, key, got, want)
				}
			}
			if q.Get("timestamp.gte") == "" || q.Get("timestamp.lte") == "" {
				t.Errorf("%s missing date bounds", check.path)
			}
		}
		if !found {
			t.Errorf("no request to %s", check.path)
		}
	}
}

func TestListAggregates(t *testing.T) {
	server, requests := newTestServer(t, map[string]string{
		"/v2/aggs/ticker/AAPL/": `{"status":"OK","ticker":"AAPL","resultsCount":2,"results":[
			{"o":188,"h":189,"l":187.5,"c":188.7,"v":12000,"vw":188.4,"t":1700000000000,"n":90},
			{"o":188.7,"h":189.2,"l":188.6,"c":189.1,"v":8000,"t":1700000060000,"n":51}]}`,
	})
	c := testClient(server.URL)

	from := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	r := Range{Multiplier: 1, Timespan: models.Minute, From: from, To: from.Add(8 * time.Hour)}

	points, err := c.ListAggregates(context.Background(), "AAPL", r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}
	if points[0].Timestamp != 1_700_000_000_000 || points[1].Timestamp != 1_700_000_060_000 {
		t.Errorf("timestamps = %d, %d", points[0].Timestamp, points[1].Timestamp)
	}
	if points[0].VWAP == nil || *points[0].VWAP != 188.4 {
		t.Errorf("first VWAP = %v", points[0].VWAP)
	}
	if points[1].VWAP != nil {
		t.Errorf("second VWAP = %v, want nil", *points[1].VWAP)
	}

	req := requests()[0]
	if !strings.HasPrefix(req.URL.Path, "/v2/aggs/ticker/AAPL/range/1/minute/") {
		t.Errorf("path = %q", req.URL.Path)
	}
	if req.URL.Query().Get("sort") != "asc" {
		t.Errorf("sort = %q, want asc", req.URL.Query().Get("sort"))
	}
}

func TestGetMultipleAggregates(t *testing.T) {
	t.Run("all symbols", func(t *testing.T) {
		server, _ := newTestServer(t, map[string]string{
			"/v2/aggs/ticker/AAPL/": `{"status":"OK","results":[{"c":189,"t":1700000000000}]}`,
			"/v2/aggs/ticker/MSFT/": `{"status":"OK","results":[{"c":410,"t":1700000000000},{"c":411,"t":1700000060000}]}`,
		})

		out, err := testClient(server.URL).GetMultipleAggregates(context.Background(), []string{"AAPL", "MSFT"}, Timeframe1D)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(out["AAPL"]) != 1 || len(out["MSFT"]) != 2 {
			t.Errorf("got AAPL=%d MSFT=%d points", len(out["AAPL"]), len(out["MSFT"]))
		}
	})

	t.Run("one failure fails the call", func(t *testing.T) {
		server, _ := newTestServer(t, map[string]string{
			"/v2/aggs/ticker/AAPL/": `{"status":"OK","results":[]}`,
		})
		if _, err := testClient(server.URL).GetMultipleAggregates(context.Background(), []string{"AAPL", "NONE"}, Timeframe1D); err == nil {
			t.Error("expected error")
		}
	})
}

func TestTimeframe_Range(t *testing.T) {
	now := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)
	midnight := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		tf       Timeframe
		timespan models.Timespan
		from     time.Time
		realtime bool
	}{
		{Timeframe1D, models.Minute, midnight, true},
		{Timeframe1W, models.Hour, midnight.AddDate(0, 0, -7), false},
		{Timeframe1M, models.Day, midnight.AddDate(0, -1, 0), false},
		{Timeframe1Y, models.Day, midnight.AddDate(-1, 0, 0), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.tf), func(t *testing.T) {
			r, err := tt.tf.Range(now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.Multiplier != 1 || r.Timespan != tt.timespan {
				t.Errorf("bar = %d/%s, want 1/%s", r.Multiplier, r.Timespan, tt.timespan)
			}
			if !r.From.Equal(tt.from) || !r.To.Equal(now) {
				t.Errorf("window = %v..%v, want %v..%v", r.From, r.To, tt.from, now)
			}
			if tt.tf.IsRealtime() != tt.realtime {
				t.Errorf("IsRealtime() = %v", tt.tf.IsRealtime())
			}
		})
	}

	r, _ := Timeframe1W.Range(now)
	if r.FromDate() != "2024-03-08" || r.ToDate() != "2024-03-15" {
		t.Errorf("dates = %s..%s", r.FromDate(), r.ToDate())
	}

	if _, err := Timeframe("2D").Range(now); err == nil {
		t.Error("expected error for unknown timeframe")
	}
}

func TestParseTimeframe(t *testing.T) {
	for _, tf := range Timeframes {
		got, err := ParseTimeframe(string(tf))
		if err != nil || got != tf {
			t.Errorf("ParseTimeframe(%q) = %q, %v", tf, got, err)
		}
	}
	if _, err := ParseTimeframe("1d"); err == nil {
		t.Error("expected error for lower-case timeframe")
	}
}
