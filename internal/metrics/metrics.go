// Package metrics exposes Prometheus instrumentation for the reservation
// core. Collectors are registered once via promauto; services record through
// the helper functions so call sites stay one line.
package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queueskip_reservation_attempts_total",
			Help: "Reservation attempts by venue and outcome",
		},
		[]string{"venue_id", "outcome"},
	)

	holdsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "queueskip_holds_swept_total",
			Help: "Expired pending holds reclaimed by the sweeper",
		},
	)

	slotsRemaining = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queueskip_slots_remaining",
			Help: "Slots remaining in the current sale period per venue",
		},
		[]string{"venue_id"},
	)

	paymentOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queueskip_payment_outcomes_total",
			Help: "Payment outcome events processed by the reconciler",
		},
		[]string{"status"},
	)

	goroutineCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "queueskip_active_goroutines_total",
			Help: "Current number of active goroutines",
		},
	)
)

func ReservationAttempt(venueID, outcome string) {
	reservationAttempts.WithLabelValues(venueID, outcome).Inc()
}

func HoldsSwept(count int) {
	holdsSwept.Add(float64(count))
}

func SlotsRemaining(venueID string, slots int) {
	slotsRemaining.WithLabelValues(venueID).Set(float64(slots))
}

func PaymentOutcome(status string) {
	paymentOutcomes.WithLabelValues(status).Inc()
}

// StartRuntimeCollector samples goroutine counts on a fixed interval until
// the process exits.
func StartRuntimeCollector(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			goroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}()
}
