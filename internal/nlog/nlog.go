// Package nlog is the horus core logger: leveled, and aware of the two
// IPC event kinds (pub/sub) that the log sink attaches to trace streams.
// Adapted from the teacher's cmn/nlog, simplified to a single io.Writer
// sink that each record is written to as it is emitted, with no buffering
// and no size-based rotation bookkeeping (which the teacher needs for a
// long-lived storage daemon and this core does not).
package nlog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/horus-robotics/horus/internal/mono"
)

type Severity int

const (
	SevDebug Severity = iota
	SevInfo
	SevWarn
	SevErr
	SevPub // publish IPC event
	SevSub // subscribe IPC event
)

func (s Severity) String() string {
	switch s {
	case SevDebug:
		return "debug"
	case SevInfo:
		return "info"
	case SevWarn:
		return "warn"
	case SevErr:
		return "error"
	case SevPub:
		return "pub"
	case SevSub:
		return "sub"
	default:
		return "?"
	}
}

// Record is one structured log-sink event per spec §6 (Log sink events):
// kind, timestamp, node name, topic (pub/sub only), IPC duration in ns
// (pub/sub only), and a free-form payload.
type Record struct {
	Sev      Severity
	Time     time.Time
	RunID    string // stamped from the owning Logger, empty if unset
	Node     string
	Topic    string        // set for SevPub/SevSub
	IPCNanos int64         // pure-IPC duration, set for SevPub/SevSub
	Payload  string
}

func (r Record) String() string {
	ts := r.Time.Format("15:04:05.000000")
	run := r.RunID
	if run == "" {
		run = "-"
	}
	if r.Sev == SevPub || r.Sev == SevSub {
		return fmt.Sprintf("%s [%s] run=%s %-5s node=%s topic=%s ipc=%s %s",
			ts, r.Sev, run, r.Sev, r.Node, r.Topic, time.Duration(r.IPCNanos), r.Payload)
	}
	return fmt.Sprintf("%s [%s] run=%s %-5s node=%s %s", ts, r.Sev, run, r.Sev, r.Node, r.Payload)
}

// Logger is a minimal-allocation, mutex-protected sink. Unlike the teacher's
// package-global nlog, a Logger here is a value owned by the embedding
// Runtime (per DESIGN NOTES §9: no global mutable singletons), so multiple
// schedulers in one process (e.g. under test) don't share log state.
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	minSev  Severity
	runID   string
	onEvent func(Record) // optional hook: trace collectors attach here
}

func New(out io.Writer) *Logger {
	if out == nil {
		out = os.Stderr
	}
	return &Logger{out: out, minSev: SevInfo}
}

func (l *Logger) SetMinSeverity(sev Severity) {
	l.mu.Lock()
	l.minSev = sev
	l.mu.Unlock()
}

// SetRunID stamps every subsequent Record with id, letting multiple horus
// processes sharing a host's logs be told apart (spec SPEC_FULL §3 "Run
// ID"). A no-op if id is empty.
func (l *Logger) SetRunID(id string) {
	if id == "" {
		return
	}
	l.mu.Lock()
	l.runID = id
	l.mu.Unlock()
}

// RunID returns the currently stamped run ID, or "" if unset.
func (l *Logger) RunID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.runID
}

// OnEvent registers a callback invoked synchronously for every emitted
// record, regardless of minSev. The scheduler's trace collector uses this
// to build the pub/sub IPC timeline without re-parsing log lines.
func (l *Logger) OnEvent(f func(Record)) {
	l.mu.Lock()
	l.onEvent = f
	l.mu.Unlock()
}

func (l *Logger) emit(r Record) {
	l.mu.Lock()
	r.RunID = l.runID
	cb := l.onEvent
	enabled := r.Sev >= l.minSev
	if enabled {
		fmt.Fprintln(l.out, r.String())
	}
	l.mu.Unlock()
	if cb != nil {
		cb(r)
	}
}

func (l *Logger) log(sev Severity, node, format string, args ...any) {
	l.emit(Record{Sev: sev, Time: time.Now(), Node: node, Payload: fmt.Sprintf(format, args...)})
}

func (l *Logger) Debugf(node, format string, args ...any) { l.log(SevDebug, node, format, args...) }
func (l *Logger) Infof(node, format string, args ...any)  { l.log(SevInfo, node, format, args...) }
func (l *Logger) Warnf(node, format string, args ...any)  { l.log(SevWarn, node, format, args...) }
func (l *Logger) Errorf(node, format string, args ...any) { l.log(SevErr, node, format, args...) }

// Pub/Sub record the pure-IPC duration of a single Hub/Link operation,
// measured by the caller from loan-release start to publish visibility
// (or from poll start to value-returned for a receive).
func (l *Logger) Pub(node, topic string, dur time.Duration, payload string) {
	l.emit(Record{Sev: SevPub, Time: time.Now(), Node: node, Topic: topic, IPCNanos: int64(dur), Payload: payload})
}

func (l *Logger) Sub(node, topic string, dur time.Duration, payload string) {
	l.emit(Record{Sev: SevSub, Time: time.Now(), Node: node, Topic: topic, IPCNanos: int64(dur), Payload: payload})
}

// StartTimer returns a mono.NanoTime() reading to pair with mono.Since for
// measuring an IPC call's pure duration without touching the wall clock.
func StartTimer() int64 { return mono.NanoTime() }
