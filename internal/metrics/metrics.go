// Package metrics exports site counters to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "portfolio"

// Metrics groups the collectors the site updates.
type Metrics struct {
	pageViews        *prometheus.CounterVec
	feedFetches      *prometheus.CounterVec
	feedLatency      prometheus.Histogram
	terminalSessions prometheus.Gauge
	terminalFrames   prometheus.Counter
	themeToggles     *prometheus.CounterVec
}

// New registers the collectors on reg. Collectors already registered on reg
// are reused.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		pageViews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_views_total",
			Help:      "Rendered pages by route.",
		}, []string{"route"}),
		feedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetches_total",
			Help:      "Blog feed fetches by outcome.",
		}, []string{"outcome"}),
		feedLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_fetch_duration_seconds",
			Help:      "Latency of blog feed fetches.",
			Buckets:   prometheus.DefBuckets,
		}),
		terminalSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "terminal_sessions",
			Help:      "Open typewriter terminal streams.",
		}),
		terminalFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "terminal_frames_total",
			Help:      "Typewriter frames sent to clients.",
		}),
		themeToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "theme_toggles_total",
			Help:      "Theme toggles by resulting theme.",
		}, []string{"theme"}),
	}

	var err error
	if m.pageViews, err = register(reg, m.pageViews); err != nil {
		return nil, err
	}
	if m.feedFetches, err = register(reg, m.feedFetches); err != nil {
		return nil, err
	}
	if m.feedLatency, err = register(reg, m.feedLatency); err != nil {
		return nil, err
	}
	if m.terminalSessions, err = register(reg, m.terminalSessions); err != nil {
		return nil, err
	}
	if m.terminalFrames, err = register(reg, m.terminalFrames); err != nil {
		return nil, err
	}
	if m.themeToggles, err = register(reg, m.themeToggles); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register collector: %w", err)
	}
	return c, nil
}

// PageView counts a rendered page.
func (m *Metrics) PageView(route string) {
	m.pageViews.WithLabelValues(route).Inc()
}

// ObserveFetch implements feed.Observer.
func (m *Metrics) ObserveFetch(outcome string, elapsed time.Duration) {
	m.feedFetches.WithLabelValues(outcome).Inc()
	m.feedLatency.Observe(elapsed.Seconds())
}

// TerminalOpened marks a new typewriter stream; the returned func closes it.
func (m *Metrics) TerminalOpened() func() {
	m.terminalSessions.Inc()
	return m.terminalSessions.Dec
}

// TerminalFrame counts one streamed frame.
func (m *Metrics) TerminalFrame() {
	m.terminalFrames.Inc()
}

// ThemeToggled counts a toggle to theme.
func (m *Metrics) ThemeToggled(theme string) {
	m.themeToggles.WithLabelValues(theme).Inc()
}
