package config

// The seven named presets from spec §4.9. Each returns a fully populated
// Scheduler; callers may start from one and mutate fields or add Custom
// entries to describe domain-specific knobs without extending this
// schema — the same pattern the teacher's config package uses for its
// own named deployment profiles, generalized from storage-tier knobs to
// scheduler timing/fault/realtime knobs.

// Standard is the default, general-purpose profile: moderate rate,
// circuit breaker on, no hard realtime guarantees.
func Standard() Scheduler {
	return Scheduler{
		Timing:     Timing{GlobalRateHz: 100},
		Fault:      Fault{CircuitBreakerEnabled: true, MaxFailures: 5, AutoRestart: true, RestartDelayMs: 1000},
		Realtime:   Realtime{DeadlineMonitoring: false, WatchdogEnabled: true, WatchdogTimeoutMs: 100},
		Monitoring: Monitoring{ProfilingEnabled: false},
		Resources:  Resources{PowerManagement: false},
		Execution:  Sequential,
		Custom:     map[string]any{},
	}
}

// SafetyCritical maximizes fault containment: low failure tolerance,
// mandatory watchdog and deadline monitoring, no auto-restart (a failed
// safety-critical node should stay stopped until operator intervention).
func SafetyCritical() Scheduler {
	return Scheduler{
		Timing:     Timing{GlobalRateHz: 100},
		Fault:      Fault{CircuitBreakerEnabled: true, MaxFailures: 1, AutoRestart: false},
		Realtime:   Realtime{DeadlineMonitoring: true, WatchdogEnabled: true, WatchdogTimeoutMs: 20, WCETEnforcement: true},
		Monitoring: Monitoring{ProfilingEnabled: true},
		Resources:  Resources{PowerManagement: false},
		Execution:  Sequential,
		Custom:     map[string]any{},
	}
}

// HardRealtime targets a deterministic control loop: tight watchdog,
// WCET enforcement, an RT scheduling class, and memory locking to avoid
// page-fault jitter.
func HardRealtime() Scheduler {
	return Scheduler{
		Timing: Timing{GlobalRateHz: 1000},
		Fault:  Fault{CircuitBreakerEnabled: true, MaxFailures: 3, AutoRestart: true, RestartDelayMs: 10},
		Realtime: Realtime{
			DeadlineMonitoring: true,
			WatchdogEnabled:    true,
			WatchdogTimeoutMs:  1,
			WCETEnforcement:    true,
			RTSchedulingClass:  "FIFO",
			MemoryLocking:      true,
		},
		Monitoring: Monitoring{ProfilingEnabled: false},
		Resources:  Resources{PowerManagement: false},
		Execution:  Sequential,
		Custom:     map[string]any{},
	}
}

// HighPerformance favors throughput: parallel execution, a relaxed
// watchdog, profiling on to observe hot paths.
func HighPerformance() Scheduler {
	return Scheduler{
		Timing:     Timing{GlobalRateHz: 500},
		Fault:      Fault{CircuitBreakerEnabled: true, MaxFailures: 10, AutoRestart: true, RestartDelayMs: 500},
		Realtime:   Realtime{DeadlineMonitoring: false, WatchdogEnabled: true, WatchdogTimeoutMs: 50},
		Monitoring: Monitoring{ProfilingEnabled: true},
		Resources:  Resources{PowerManagement: false},
		Execution:  Parallel,
		Custom:     map[string]any{},
	}
}

// Space tightens fault containment further for limited-ground-contact
// operation: aggressive circuit breaker, power management on, no
// auto-restart beyond a small budget.
func Space() Scheduler {
	return Scheduler{
		Timing:     Timing{GlobalRateHz: 50},
		Fault:      Fault{CircuitBreakerEnabled: true, MaxFailures: 2, AutoRestart: true, RestartDelayMs: 5000},
		Realtime:   Realtime{DeadlineMonitoring: true, WatchdogEnabled: true, WatchdogTimeoutMs: 200, WCETEnforcement: true},
		Monitoring: Monitoring{ProfilingEnabled: true},
		Resources:  Resources{PowerManagement: true},
		Execution:  Sequential,
		Custom:     map[string]any{"radiation_hardening": true},
	}
}

// Swarm favors many lightweight nodes communicating over the network
// transports: parallel execution, a generous failure budget (one node's
// transient network blip should not open its circuit breaker).
func Swarm() Scheduler {
	return Scheduler{
		Timing:     Timing{GlobalRateHz: 50},
		Fault:      Fault{CircuitBreakerEnabled: true, MaxFailures: 8, AutoRestart: true, RestartDelayMs: 2000},
		Realtime:   Realtime{DeadlineMonitoring: false, WatchdogEnabled: false},
		Monitoring: Monitoring{ProfilingEnabled: false},
		Resources:  Resources{PowerManagement: true},
		Execution:  Parallel,
		Custom:     map[string]any{"swarm_coordination": true},
	}
}

// SoftRobotics relaxes timing precision for compliant actuators: a
// slower tick rate, no hard watchdog, deadline monitoring off (soft
// actuators tolerate jitter the rigid presets do not).
func SoftRobotics() Scheduler {
	return Scheduler{
		Timing:     Timing{GlobalRateHz: 20},
		Fault:      Fault{CircuitBreakerEnabled: true, MaxFailures: 5, AutoRestart: true, RestartDelayMs: 1000},
		Realtime:   Realtime{DeadlineMonitoring: false, WatchdogEnabled: false},
		Monitoring: Monitoring{ProfilingEnabled: false},
		Resources:  Resources{PowerManagement: false},
		Execution:  Sequential,
		Custom:     map[string]any{"compliance_control": true},
	}
}

// byName maps a preset's external identifier (as used in a config file's
// `preset:` field or the CLI's `horusd preset` subcommand) to its
// constructor.
var byName = map[string]func() Scheduler{
	"standard":        Standard,
	"safety_critical":  SafetyCritical,
	"hard_realtime":   HardRealtime,
	"high_performance": HighPerformance,
	"space":           Space,
	"swarm":           Swarm,
	"soft_robotics":   SoftRobotics,
}

// Preset looks up a named preset, returning ok=false for an unknown name.
func Preset(name string) (Scheduler, bool) {
	ctor, ok := byName[name]
	if !ok {
		return Scheduler{}, false
	}
	return ctor(), true
}

// PresetNames returns the known preset identifiers in declaration order,
// for `horusd preset list`.
func PresetNames() []string {
	return []string{
		"standard", "safety_critical", "hard_realtime", "high_performance",
		"space", "swarm", "soft_robotics",
	}
}
