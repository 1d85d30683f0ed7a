// Package metrics holds the Prometheus collectors shared by the connection layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsTotal counts accepted connections per engine.
	ConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wserv_connections_total",
			Help: "Total number of accepted connections",
		},
		[]string{"engine"},
	)

	// ConnectionsActive tracks currently open connections per engine.
	ConnectionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wserv_connections_active",
			Help: "Current number of open connections",
		},
		[]string{"engine"},
	)

	// ConnectionsRejected counts connections refused by the connection cap.
	ConnectionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wserv_connections_rejected_total",
			Help: "Total number of connections rejected by the connection limit",
		},
		[]string{"engine"},
	)

	// BytesRead counts bytes pulled through connection bridges.
	BytesRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wserv_bytes_read_total",
			Help: "Total number of bytes read from peers",
		},
	)

	// BytesWritten counts bytes confirmed written by transports.
	BytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wserv_bytes_written_total",
			Help: "Total number of bytes written to peers",
		},
	)

	// MessagesTotal counts extracted messages per framing discipline.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wserv_messages_total",
			Help: "Total number of framed messages extracted",
		},
		[]string{"framer"},
	)

	// ConnectionErrors counts connection loops that ended with an error, by kind.
	ConnectionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wserv_connection_errors_total",
			Help: "Total number of connections terminated by an error",
		},
		[]string{"kind"},
	)
)
