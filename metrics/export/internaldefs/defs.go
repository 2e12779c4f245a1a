package internaldefs

import (
	internalmetrics "github.com/inkpress/authgate/internal/metrics"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   internalmetrics.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   internalmetrics.MetricID
	Name string
	Help string
}

// CounterDefs is the canonical counter list shared by all exporters.
var CounterDefs = []CounterDef{
	{ID: internalmetrics.MetricSessionIssued, Name: "authgate_session_issued_total", Help: "Issued access/refresh pairs (logins and rotations)."},
	{ID: internalmetrics.MetricAuthSuccess, Name: "authgate_auth_success_total", Help: "Authenticated request decisions."},
	{ID: internalmetrics.MetricAuthReject, Name: "authgate_auth_reject_total", Help: "Rejected request decisions."},
	{ID: internalmetrics.MetricRefreshRotation, Name: "authgate_refresh_rotation_total", Help: "Successful refresh rotations."},
	{ID: internalmetrics.MetricRefreshRace, Name: "authgate_refresh_race_total", Help: "Refresh attempts that lost the rotation race."},
	{ID: internalmetrics.MetricSessionEvicted, Name: "authgate_session_evicted_total", Help: "Sessions displaced by a newer login or a status change."},
	{ID: internalmetrics.MetricLogout, Name: "authgate_logout_total", Help: "Explicit logouts."},
	{ID: internalmetrics.MetricSocketAccepted, Name: "authgate_socket_accepted_total", Help: "Accepted WebSocket handshakes."},
	{ID: internalmetrics.MetricSocketRejected, Name: "authgate_socket_rejected_total", Help: "WebSocket handshakes closed with policy violation."},
	{ID: internalmetrics.MetricSocketEvicted, Name: "authgate_socket_evicted_total", Help: "Live sockets force-closed by eviction."},
	{ID: internalmetrics.MetricMessageDispatched, Name: "authgate_message_dispatched_total", Help: "WebSocket frames handed to the message handler."},
	{ID: internalmetrics.MetricMessageRejected, Name: "authgate_message_rejected_total", Help: "WebSocket frames answered with an error frame."},
	{ID: internalmetrics.MetricStoreUnavailable, Name: "authgate_store_unavailable_total", Help: "Fail-closed session store round-trips."},
}

// HistogramDefs is the canonical histogram list shared by all exporters.
var HistogramDefs = []HistogramDef{
	{ID: internalmetrics.MetricAuthenticateLatency, Name: "authgate_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

// HistogramBounds are the upper bucket bounds as Prometheus le labels.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix encodes the bounds as instrument-name-safe suffixes.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw snapshot slice to the fixed
// bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// Prometheus histograms expose.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
