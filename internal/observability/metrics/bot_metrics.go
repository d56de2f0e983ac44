// Package metrics exposes prometheus instrumentation for the bot's
// check and drain cycles.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config sets the constant labels attached to every metric.
type Config struct {
	ServiceName string
	Environment string
}

// BotMetrics instruments check cycles, awards and the announcement queue.
type BotMetrics struct {
	checkCycles       *prometheus.CounterVec
	checkDuration     prometheus.Histogram
	petsSeen          prometheus.Counter
	adoptions         prometheus.Counter
	pointsAwarded     prometheus.Counter
	awardFailures     prometheus.Counter
	announcements     *prometheus.CounterVec
	queueBacklog      *prometheus.GaugeVec
	drainSkips        *prometheus.CounterVec
	staleConsumptions *prometheus.CounterVec
}

var (
	botMetricsOnce sync.Once
	botMetrics     *BotMetrics
)

// Bot returns the process-wide metrics singleton.
func Bot() *BotMetrics {
	return BotWithConfig(Config{})
}

// BotWithConfig returns the singleton, registering it on first use.
func BotWithConfig(cfg Config) *BotMetrics {
	botMetricsOnce.Do(func() {
		botMetrics = newBotMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return botMetrics
}

// ResetBotMetricsForTest clears the singleton between test registries.
func ResetBotMetricsForTest() {
	botMetricsOnce = sync.Once{}
	botMetrics = nil
}

func newBotMetrics(registerer prometheus.Registerer, cfg Config) *BotMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "fantasypet"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	checkCycles := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "fantasypet_check_cycles_total",
			Help:        "Check cycles by result.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // success | failed | skipped
	)

	checkDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:        "fantasypet_check_cycle_duration_seconds",
			Help:        "Wall time of a full check cycle.",
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			ConstLabels: constLabels,
		},
	)

	petsSeen := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "fantasypet_pets_seen_total",
			Help:        "Pets classified as newly seen.",
			ConstLabels: constLabels,
		},
	)

	adoptions := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "fantasypet_adoptions_total",
			Help:        "Pets classified as adopted.",
			ConstLabels: constLabels,
		},
	)

	pointsAwarded := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "fantasypet_points_awarded_total",
			Help:        "Fantasy points written to score records.",
			ConstLabels: constLabels,
		},
	)

	awardFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "fantasypet_award_failures_total",
			Help:        "Adopted pets whose award transaction failed.",
			ConstLabels: constLabels,
		},
	)

	announcements := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "fantasypet_announcements_total",
			Help:        "Announcements emitted by kind.",
			ConstLabels: constLabels,
		},
		[]string{"kind"},
	)

	queueBacklog := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:        "fantasypet_queue_backlog",
			Help:        "Pending announcement queue items by kind.",
			ConstLabels: constLabels,
		},
		[]string{"kind"},
	)

	drainSkips := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "fantasypet_drain_lane_skips_total",
			Help:        "Lanes skipped during drain by reason.",
			ConstLabels: constLabels,
		},
		[]string{"reason"}, // window | spacing
	)

	staleConsumptions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "fantasypet_stale_items_consumed_total",
			Help:        "Queue items consumed without emission after failed re-validation.",
			ConstLabels: constLabels,
		},
		[]string{"kind"},
	)

	registerer.MustRegister(
		checkCycles,
		checkDuration,
		petsSeen,
		adoptions,
		pointsAwarded,
		awardFailures,
		announcements,
		queueBacklog,
		drainSkips,
		staleConsumptions,
	)

	return &BotMetrics{
		checkCycles:       checkCycles,
		checkDuration:     checkDuration,
		petsSeen:          petsSeen,
		adoptions:         adoptions,
		pointsAwarded:     pointsAwarded,
		awardFailures:     awardFailures,
		announcements:     announcements,
		queueBacklog:      queueBacklog,
		drainSkips:        drainSkips,
		staleConsumptions: staleConsumptions,
	}
}

func (m *BotMetrics) ObserveCheckCycle(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.checkCycles.WithLabelValues(result).Inc()
	if result != "skipped" {
		m.checkDuration.Observe(duration.Seconds())
	}
}

func (m *BotMetrics) AddPetsSeen(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.petsSeen.Add(float64(n))
}

func (m *BotMetrics) AddAdoptions(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.adoptions.Add(float64(n))
}

func (m *BotMetrics) AddPointsAwarded(points int64) {
	if m == nil || points <= 0 {
		return
	}
	m.pointsAwarded.Add(float64(points))
}

func (m *BotMetrics) IncAwardFailure() {
	if m == nil {
		return
	}
	m.awardFailures.Inc()
}

func (m *BotMetrics) IncAnnouncement(kind string) {
	if m == nil {
		return
	}
	m.announcements.WithLabelValues(kind).Inc()
}

func (m *BotMetrics) SetQueueBacklog(kind string, value int) {
	if m == nil {
		return
	}
	m.queueBacklog.WithLabelValues(kind).Set(float64(value))
}

func (m *BotMetrics) IncDrainSkip(reason string) {
	if m == nil {
		return
	}
	m.drainSkips.WithLabelValues(reason).Inc()
}

func (m *BotMetrics) IncStaleConsumed(kind string) {
	if m == nil {
		return
	}
	m.staleConsumptions.WithLabelValues(kind).Inc()
}
