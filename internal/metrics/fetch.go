package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	startTime = time.Now()

	Uptime = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "lobbywatch_uptime_seconds",
			Help: "Console server uptime in seconds",
		}, func() float64 {
			return time.Since(startTime).Seconds()
		})

	UnitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lobbywatch_units_total",
			Help: "Total number of finished fan-out units by stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	RecordsAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lobbywatch_records_accepted_total",
			Help: "Total number of records that passed validation",
		},
		[]string{"stage"},
	)

	RecordsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lobbywatch_records_rejected_total",
			Help: "Total number of records dropped by validation",
		},
		[]string{"stage"},
	)

	UnitAttempts = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lobbywatch_unit_attempts",
			Help:    "Number of request attempts made by one unit",
			Buckets: []float64{1, 2, 3, 4, 6, 8},
		},
		[]string{"stage"},
	)

	UnitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lobbywatch_unit_duration_seconds",
			Help:    "Duration of one unit including retries, in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"stage"},
	)
)

var registerOnce sync.Once

// Init registers the collectors with the default registry. It is safe to call
// more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			Uptime,
			UnitsTotal,
			RecordsAccepted,
			RecordsRejected,
			UnitAttempts,
			UnitDuration,
		)
	})
}
