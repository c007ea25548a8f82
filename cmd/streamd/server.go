package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/stockstream/internal/connection"
	"github.com/rickgao/stockstream/internal/model"
	"github.com/rickgao/stockstream/internal/version"
)

// server serves health, debug and metrics endpoints.
type server struct {
	stream streamStatus
	feeds  *feeds
	db     pinger // nil when recording is disabled
}

func newRouter(s *server, gatherer prometheus.Gatherer, metricsPath string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.health)
	router.GET("/debug/subscriptions", s.subscriptions)
	router.GET("/debug/feeds", s.feedState)
	router.GET(metricsPath, gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return router
}

func (s *server) health(c *gin.Context) {
	state := s.stream.State()
	status := "healthy"
	components := gin.H{
		"stream": gin.H{
			"state": state,
			"label": state.Label(),
		},
	}

	if state != connection.StateAuthenticated {
		status = "unhealthy"
	}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			status = "unhealthy"
			components["timescaledb"] = gin.H{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			components["timescaledb"] = "connected"
		}
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":     status,
		"version":    version.Version,
		"components": components,
	})
}

func (s *server) subscriptions(c *gin.Context) {
	desired := s.stream.Desired()
	if desired == nil {
		desired = []model.Subscription{}
	}
	stats := s.stream.Stats()
	c.JSON(http.StatusOK, gin.H{
		"count":         len(desired),
		"subscriptions": desired,
		"state":         stats.State,
		"frames":        stats.FramesReceived,
		"reconnects":    stats.Reconnects,
		"auth_failures": stats.AuthFailures,
		"last_status":   stats.LastStatus,
	})
}

type chartView struct {
	State  connection.State `json:"state"`
	Points []model.Point    `json:"points"`
}

type priceView struct {
	State connection.State `json:"state"`
	model.PriceData
}

type compareView struct {
	State  connection.State         `json:"state"`
	Series map[string][]model.Point `json:"series"`
}

func (s *server) feedState(c *gin.Context) {
	charts := make(map[string]chartView, len(s.feeds.charts))
	for sym, f := range s.feeds.charts {
		charts[sym] = chartView{State: f.State(), Points: f.Points()}
	}
	prices := make(map[string]priceView, len(s.feeds.prices))
	for sym, f := range s.feeds.prices {
		prices[sym] = priceView{State: f.State(), PriceData: f.Data()}
	}

	resp := gin.H{
		"charts": charts,
		"prices": prices,
	}
	if s.feeds.compare != nil {
		resp["compare"] = compareView{State: s.feeds.compare.State(), Series: s.feeds.compare.Data()}
	}
	c.JSON(http.StatusOK, resp)
}
