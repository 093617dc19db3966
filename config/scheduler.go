// Package config is the scheduler configuration and topic-file loader
// (spec §3 "Scheduler config", §6 "Configuration file", §4.9 "Configuration
// presets"). TOML/YAML parsing and the search-path fallback follow the
// teacher's search for a cluster config, generalized from aistore's single
// hardcoded location to the ordered list spec §6 names.
package config

import "time"

// ExecutionMode selects how the scheduler invokes nodes within a tick
// (spec §4.8).
type ExecutionMode string

const (
	Sequential   ExecutionMode = "sequential"
	Parallel     ExecutionMode = "parallel"
	JITOptimized ExecutionMode = "jit_optimized"
)

// Timing holds the global tick-rate knob.
type Timing struct {
	GlobalRateHz float64 `toml:"global_rate_hz" yaml:"global_rate_hz"`
}

// Fault holds circuit-breaker/auto-restart knobs.
type Fault struct {
	CircuitBreakerEnabled bool `toml:"circuit_breaker_enabled" yaml:"circuit_breaker_enabled"`
	MaxFailures           int  `toml:"max_failures" yaml:"max_failures"`
	AutoRestart           bool `toml:"auto_restart" yaml:"auto_restart"`
	RestartDelayMs        int  `toml:"restart_delay_ms" yaml:"restart_delay_ms"`
}

// Realtime holds deadline/watchdog/WCET knobs.
type Realtime struct {
	DeadlineMonitoring bool   `toml:"deadline_monitoring" yaml:"deadline_monitoring"`
	WatchdogEnabled    bool   `toml:"watchdog_enabled" yaml:"watchdog_enabled"`
	WatchdogTimeoutMs  int    `toml:"watchdog_timeout_ms" yaml:"watchdog_timeout_ms"`
	WCETEnforcement    bool   `toml:"wcet_enforcement" yaml:"wcet_enforcement"`
	RTSchedulingClass  string `toml:"rt_scheduling_class" yaml:"rt_scheduling_class"`
	MemoryLocking      bool   `toml:"memory_locking" yaml:"memory_locking"`
}

// Monitoring holds profiling/telemetry toggles.
type Monitoring struct {
	ProfilingEnabled bool `toml:"profiling_enabled" yaml:"profiling_enabled"`
}

// Resources holds power/resource-management knobs.
type Resources struct {
	PowerManagement bool `toml:"power_management" yaml:"power_management"`
}

// Scheduler is the full nested scheduler configuration (spec §3).
// Custom holds arbitrary scalar domain-specific knobs addressable by
// bool/int/float/string without extending this schema.
type Scheduler struct {
	Timing     Timing            `toml:"timing" yaml:"timing"`
	Fault      Fault             `toml:"fault" yaml:"fault"`
	Realtime   Realtime          `toml:"realtime" yaml:"realtime"`
	Monitoring Monitoring        `toml:"monitoring" yaml:"monitoring"`
	Resources  Resources         `toml:"resources" yaml:"resources"`
	Execution  ExecutionMode     `toml:"execution" yaml:"execution"`
	Custom     map[string]any    `toml:"custom" yaml:"custom"`
}

// TickInterval derives the fixed tick period from GlobalRateHz. A zero or
// negative rate is treated as "run as fast as possible" (no sleep), same
// as JITOptimized's unconditional skip of the between-tick sleep.
func (s Scheduler) TickInterval() time.Duration {
	if s.Timing.GlobalRateHz <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / s.Timing.GlobalRateHz)
}

// CustomBool/CustomInt/CustomFloat/CustomString read a scalar out of the
// Custom map with a typed zero-value fallback, sparing callers a type
// assertion at every call site.
func (s Scheduler) CustomBool(key string) (bool, bool)     { v, ok := asType[bool](s.Custom, key); return v, ok }
func (s Scheduler) CustomInt(key string) (int64, bool)     { return asType[int64](s.Custom, key) }
func (s Scheduler) CustomFloat(key string) (float64, bool) { return asType[float64](s.Custom, key) }
func (s Scheduler) CustomString(key string) (string, bool) { return asType[string](s.Custom, key) }

func asType[T any](m map[string]any, key string) (T, bool) {
	var zero T
	v, ok := m[key]
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
