// Package metrics holds the Prometheus collectors shared by the server, the
// outbox relay and the consumer.  Everything registers on the default
// registry, which /metrics exposes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reservation results used as the "result" label.
const (
	ResultConfirmed     = "confirmed"
	ResultNoCapacity    = "no_capacity"
	ResultNotFound      = "resource_not_found"
	ResultAlreadyBooked = "already_booked"
	ResultError         = "error"
)

var (
	Reservations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_reservations_total",
		Help: "Reservation attempts by result",
	}, []string{"result"})

	Cancellations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_cancellations_total",
		Help: "Bookings moved from CONFIRMED to CANCELLED",
	})

	TxRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_tx_retries_total",
		Help: "Booking transactions restarted after lock contention",
	})

	ReserveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "booking_reserve_duration_seconds",
		Help:    "Time spent in Reserve including retries",
		Buckets: prometheus.DefBuckets,
	})

	OutboxPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outbox_events_published_total",
		Help: "The total number of outbox events published to the broker",
	})

	OutboxPublishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outbox_publish_errors_total",
		Help: "The total number of failed publish attempts",
	})

	ConsumerProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_consumer_messages_total",
		Help: "Messages handled by the booking log consumer",
	}, []string{"outcome"})
)
