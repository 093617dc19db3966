// Package rtprio applies the scheduler config's realtime knobs
// (realtime.rt_scheduling_class, realtime.memory_locking) to the current
// process, for the HardRealtime preset that asks for them (spec
// §3 "realtime ... rt_scheduling_class, memory_locking"). Linux-only,
// mirroring the teacher's sys package's habit of calling straight into
// golang.org/x/sys/unix rather than shelling out to chrt(1)/mlockall(1).
package rtprio

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/horus-robotics/horus/config"
	"github.com/horus-robotics/horus/internal/cos"
)

// defaultPriority is used for SCHED_FIFO/SCHED_RR when the config doesn't
// otherwise specify one; the spec's config schema has no separate
// priority field, so this is the conservative low end of the class's
// range (1-99 on Linux).
const defaultPriority = 10

// Apply sets the calling process's scheduling class and/or locks its
// memory per cfg. Both knobs typically require CAP_SYS_NICE/CAP_IPC_LOCK
// (or root); a failure here is reported as a ConfigError rather than
// panicking, since a development machine commonly lacks the privilege a
// production robot host has.
func Apply(cfg config.Realtime) error {
	if cfg.RTSchedulingClass != "" {
		if err := applySchedClass(cfg.RTSchedulingClass); err != nil {
			return err
		}
	}
	if cfg.MemoryLocking {
		if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
			return cos.NewConfigError("rtprio-mlockall", err)
		}
	}
	return nil
}

func applySchedClass(class string) error {
	var policy int
	switch class {
	case "FIFO":
		policy = unix.SCHED_FIFO
	case "RR":
		policy = unix.SCHED_RR
	case "OTHER", "":
		policy = unix.SCHED_OTHER
	default:
		return cos.NewConfigError("rtprio-schedclass", fmt.Errorf("unknown rt_scheduling_class %q", class))
	}
	param := &unix.SchedParam{Priority: int32(defaultPriority)}
	if policy == unix.SCHED_OTHER {
		param.Priority = 0
	}
	if err := unix.SchedSetscheduler(0, policy, param); err != nil {
		return cos.NewConfigError("rtprio-schedclass", err)
	}
	return nil
}
