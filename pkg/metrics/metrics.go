// Package metrics exposes simulation counters to Prometheus.
// A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "optionpit"

type Collector struct {
	registry *prometheus.Registry

	ordersPlaced   prometheus.Counter
	ordersIgnored  prometheus.Counter
	trades         *prometheus.CounterVec
	tradedSize     *prometheus.CounterVec
	ticks          prometheus.Counter
	strategyFaults *prometheus.CounterVec
	teamMark       *prometheus.GaugeVec
}

// New registers all collectors on a private registry so several runs can
// coexist in one process
func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Orders accepted into a book",
		}),
		ordersIgnored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_ignored_total",
			Help:      "Order requests dropped for non-positive size or unknown symbol",
		}),
		trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Trades executed by symbol",
		}, []string{"symbol"}),
		tradedSize: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "traded_size_total",
			Help:      "Contracts traded by symbol",
		}, []string{"symbol"}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Completed ticks",
		}),
		strategyFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strategy_faults_total",
			Help:      "Strategy errors and panics by team",
		}, []string{"team"}),
		teamMark: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "team_mark",
			Help:      "Latest mark-to-market value by team",
		}, []string{"team"}),
	}
	reg.MustRegister(
		c.ordersPlaced,
		c.ordersIgnored,
		c.trades,
		c.tradedSize,
		c.ticks,
		c.strategyFaults,
		c.teamMark,
	)
	return c
}

// Registry exposes the underlying registry, mostly for tests
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the collector in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) OrderPlaced() {
	if c == nil {
		return
	}
	c.ordersPlaced.Inc()
}

func (c *Collector) OrderIgnored() {
	if c == nil {
		return
	}
	c.ordersIgnored.Inc()
}

func (c *Collector) Trade(symbol string, size int64) {
	if c == nil {
		return
	}
	c.trades.WithLabelValues(symbol).Inc()
	c.tradedSize.WithLabelValues(symbol).Add(float64(size))
}

func (c *Collector) Tick() {
	if c == nil {
		return
	}
	c.ticks.Inc()
}

func (c *Collector) StrategyFault(team int) {
	if c == nil {
		return
	}
	c.strategyFaults.WithLabelValues(strconv.Itoa(team)).Inc()
}

func (c *Collector) TeamMark(team int, mark float64) {
	if c == nil {
		return
	}
	c.teamMark.WithLabelValues(strconv.Itoa(team)).Set(mark)
}
