// Package telemetry mirrors Hub metrics and scheduler per-node tick
// timing as Prometheus counters (spec SPEC_FULL §4.11); no gauges or
// histograms are exported.
//
// Grounded on the teacher's stats package shape — named counters read
// back as a point-in-time snapshot without holding a lock across the
// read — combined with github.com/prometheus/client_golang, already a
// direct dependency in the teacher's own go.mod. Unlike the teacher's
// push-on-interval stats runner, this package follows the
// prometheus.Collector pull convention: each named source is polled only
// when something scrapes /metrics, so the monitoring.profiling_enabled
// branch of Scheduler config has no cost when nothing is listening.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// HubSnapshot is the subset of hub.Snapshot telemetry needs. Defined here
// rather than imported from package hub so this package stays independent
// of Hub[T]'s type parameter; hub.Snapshot's fields convert directly.
type HubSnapshot struct {
	MessagesSent     uint64
	MessagesReceived uint64
	SendFailures     uint64
	RecvFailures     uint64
}

// NodeSnapshot is the subset of node.TickStats telemetry needs, for the
// same reason.
type NodeSnapshot struct {
	TickCount     uint64
	TickNanos     int64
	IPCCount      uint64
	IPCNanos      int64
	LastTickNanos int64
}

type hubSource struct {
	topic string
	snap  func() HubSnapshot
}

type nodeSource struct {
	name string
	snap func() NodeSnapshot
}

// Exporter is a prometheus.Collector aggregating every registered Hub and
// node source. Register it once with a prometheus.Registry (or the
// default registry via prometheus.MustRegister) and expose
// promhttp.Handler() on an HTTP mux; each scrape re-reads every
// registered source's live snapshot.
type Exporter struct {
	mu    sync.Mutex
	hubs  []hubSource
	nodes []nodeSource

	hubSent     *prometheus.Desc
	hubRecv     *prometheus.Desc
	hubSendFail *prometheus.Desc
	hubRecvFail *prometheus.Desc
	nodeTicks   *prometheus.Desc
	nodeTickDur *prometheus.Desc
	nodeIPCDur  *prometheus.Desc
}

// New constructs an Exporter with no sources registered yet.
func New() *Exporter {
	return &Exporter{
		hubSent:     prometheus.NewDesc("horus_hub_messages_sent_total", "Messages sent on a Hub topic.", []string{"topic"}, nil),
		hubRecv:     prometheus.NewDesc("horus_hub_messages_received_total", "Messages received on a Hub topic.", []string{"topic"}, nil),
		hubSendFail: prometheus.NewDesc("horus_hub_send_failures_total", "Send failures on a Hub topic.", []string{"topic"}, nil),
		hubRecvFail: prometheus.NewDesc("horus_hub_recv_failures_total", "Samples dropped to lapping on a Hub topic.", []string{"topic"}, nil),
		nodeTicks:   prometheus.NewDesc("horus_node_ticks_total", "Ticks executed by a node.", []string{"node"}, nil),
		nodeTickDur: prometheus.NewDesc("horus_node_tick_seconds_total", "Cumulative tick duration for a node.", []string{"node"}, nil),
		nodeIPCDur:  prometheus.NewDesc("horus_node_ipc_seconds_total", "Cumulative pub/sub IPC duration for a node.", []string{"node"}, nil),
	}
}

// RegisterHub adds a Hub topic whose metrics are polled from snap on
// every scrape. Call with a closure over *hub.Hub[T].GetMetrics (adapted
// to HubSnapshot); Link handles keep no metrics of their own.
func (e *Exporter) RegisterHub(topic string, snap func() HubSnapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hubs = append(e.hubs, hubSource{topic: topic, snap: snap})
}

// RegisterNode adds a node whose tick/IPC stats are polled from snap on
// every scrape.
func (e *Exporter) RegisterNode(name string, snap func() NodeSnapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nodes = append(e.nodes, nodeSource{name: name, snap: snap})
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.hubSent
	ch <- e.hubRecv
	ch <- e.hubSendFail
	ch <- e.hubRecvFail
	ch <- e.nodeTicks
	ch <- e.nodeTickDur
	ch <- e.nodeIPCDur
}

// Collect implements prometheus.Collector, re-reading every registered
// source's live snapshot.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	e.mu.Lock()
	hubs := append([]hubSource(nil), e.hubs...)
	nodes := append([]nodeSource(nil), e.nodes...)
	e.mu.Unlock()

	for _, h := range hubs {
		s := h.snap()
		ch <- prometheus.MustNewConstMetric(e.hubSent, prometheus.CounterValue, float64(s.MessagesSent), h.topic)
		ch <- prometheus.MustNewConstMetric(e.hubRecv, prometheus.CounterValue, float64(s.MessagesReceived), h.topic)
		ch <- prometheus.MustNewConstMetric(e.hubSendFail, prometheus.CounterValue, float64(s.SendFailures), h.topic)
		ch <- prometheus.MustNewConstMetric(e.hubRecvFail, prometheus.CounterValue, float64(s.RecvFailures), h.topic)
	}
	for _, n := range nodes {
		s := n.snap()
		ch <- prometheus.MustNewConstMetric(e.nodeTicks, prometheus.CounterValue, float64(s.TickCount), n.name)
		ch <- prometheus.MustNewConstMetric(e.nodeTickDur, prometheus.CounterValue, float64(s.TickNanos)/1e9, n.name)
		ch <- prometheus.MustNewConstMetric(e.nodeIPCDur, prometheus.CounterValue, float64(s.IPCNanos)/1e9, n.name)
	}
}
