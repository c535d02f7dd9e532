package klei

import (
	"context"

	"github.com/dimspell/lobbywatch/internal/metrics"
	"github.com/kelindar/event"
)

// ObserveMetrics feeds the Prometheus collectors from the unit events
// published on bus. Call the returned function to unsubscribe.
func ObserveMetrics(bus *event.Dispatcher) context.CancelFunc {
	metrics.Init()

	return event.SubscribeTo(bus, EventUnitDone, func(ev UnitEvent) {
		stage := string(ev.Stage)
		metrics.UnitsTotal.WithLabelValues(stage, ev.Outcome.String()).Inc()
		metrics.RecordsAccepted.WithLabelValues(stage).Add(float64(ev.Accepted))
		metrics.RecordsRejected.WithLabelValues(stage).Add(float64(ev.Rejected))
		if ev.Attempts > 0 {
			metrics.UnitAttempts.WithLabelValues(stage).Observe(float64(ev.Attempts))
			metrics.UnitDuration.WithLabelValues(stage).Observe(ev.Duration.Seconds())
		}
	})
}
