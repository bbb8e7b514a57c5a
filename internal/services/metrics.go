package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// bookingsCommitted counts bookings written to the ledger.
	bookingsCommitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bookings_committed_total",
		Help: "Bookings committed to the ledger.",
	})

	// bookingRejections counts aborted commits by reason.
	bookingRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_rejections_total",
			Help: "Commits aborted before the ledger write, by reason.",
		},
		[]string{"reason"},
	)

	// availabilityLookups counts cache lookups by result (hit, miss).
	availabilityLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "availability_cache_lookups_total",
			Help: "Availability cache lookups by result.",
		},
		[]string{"result"},
	)

	// documentFailures counts uploads that degraded to a placeholder link.
	documentFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "document_upload_failures_total",
		Help: "Document uploads that failed and were recorded as placeholders.",
	})
)

func init() {
	prometheus.MustRegister(bookingsCommitted, bookingRejections, availabilityLookups, documentFailures)
}

func observeLookup(hit bool) {
	if hit {
		availabilityLookups.WithLabelValues("hit").Inc()
		return
	}
	availabilityLookups.WithLabelValues("miss").Inc()
}
