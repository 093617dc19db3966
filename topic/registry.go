// Package topic is the per-host registry of shared-memory regions: it
// maps a topic name plus access kind (Hub broadcast vs Link SPSC) to the
// single backing shm.Region for that name, created lazily on first
// attach and reference-counted so the region is only unmapped once every
// local attacher has detached (spec §3 "Topic").
//
// Grounded on the teacher's xact/xreg package: a process-wide registry
// keyed by name, guarding creation with a mutex and returning the
// existing entry on a second lookup rather than erroring, generalized
// here from xactions to shared-memory regions.
package topic

import (
	"fmt"
	"sync"

	"github.com/horus-robotics/horus/internal/cos"
	"github.com/horus-robotics/horus/shm"
)

// Kind distinguishes the two backing-region namespaces for a topic.
type Kind int

const (
	KindHub Kind = iota
	KindLink
)

func (k Kind) regionName(topicName string) string {
	if k == KindLink {
		return cos.LinkRegionName(topicName)
	}
	return cos.HubRegionName(topicName)
}

// entry is one registered (topic, kind) pair's shared region plus the
// count of local attachers still holding it open.
type entry struct {
	region *shm.Region
	refs   int
}

// Registry is the process-wide table of open regions. The zero value is
// not usable; construct with New. Safe for concurrent use.
type Registry struct {
	mu   sync.Mutex
	dir  string
	byID map[string]*entry
}

// New constructs a registry rooted at dir (normally shm.DefaultDir).
func New(dir string) *Registry {
	if dir == "" {
		dir = shm.DefaultDir
	}
	return &Registry{dir: dir, byID: make(map[string]*entry)}
}

func regionID(kind Kind, topicName string) string {
	return fmt.Sprintf("%d:%s", kind, topicName)
}

// Attach opens (creating if necessary) the region backing topicName under
// kind, sized for capacity slots of slotSize bytes each. Every call must
// be matched with a Detach; capacity/slotSize are only consulted on the
// first Attach for a given (kind, topicName) — later attachers in this
// process get the region already mapped, erroring if the requested
// capacity disagrees with it. The slot size is not compared for a region
// already mapped in this process; the layout check against slotSize
// happens only when shm.OpenOrCreate maps an existing file.
func (r *Registry) Attach(topicName string, kind Kind, capacity, slotSize int) (*shm.Region, error) {
	if err := cos.ValidTopicName(topicName); err != nil {
		return nil, cos.NewConfigError("topic-attach", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := regionID(kind, topicName)
	if e, ok := r.byID[id]; ok {
		if e.region.Capacity() != uint64(capacity) {
			return nil, cos.NewTransportError(topicName, "attach",
				fmt.Errorf("topic already attached locally with capacity %d, requested %d", e.region.Capacity(), capacity))
		}
		e.refs++
		return e.region, nil
	}

	region, _, err := shm.OpenOrCreate(r.dir, kind.regionName(topicName), capacity, slotSize)
	if err != nil {
		return nil, cos.NewTransportError(topicName, "attach", err)
	}
	r.byID[id] = &entry{region: region, refs: 1}
	return region, nil
}

// Detach releases one reference on (kind, topicName)'s region, unmapping
// it once the local refcount reaches zero. It never unlinks the backing
// file: per spec §3 the region outlives its attachers until an explicit
// Remove call.
func (r *Registry) Detach(topicName string, kind Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := regionID(kind, topicName)
	e, ok := r.byID[id]
	if !ok {
		return cos.NewErrNotFound("topic %q (%v)", topicName, kind)
	}
	e.refs--
	if e.refs > 0 {
		return nil
	}
	delete(r.byID, id)
	return e.region.Close()
}

// Remove detaches (if still locally attached) and unlinks the backing
// file, permanently destroying the region. Callers should only do this
// once they know no other process holds the topic open.
func (r *Registry) Remove(topicName string, kind Kind) error {
	r.mu.Lock()
	e, ok := r.byID[id(kind, topicName)]
	if ok {
		delete(r.byID, id(kind, topicName))
	}
	r.mu.Unlock()

	if ok {
		if err := e.region.Close(); err != nil {
			return err
		}
		return e.region.Unlink()
	}

	// Not locally attached: unlink the backing file directly without
	// mapping it, since we don't know its capacity/slot shape here.
	if err := shm.UnlinkPath(r.dir, kind.regionName(topicName)); err != nil {
		return cos.NewErrNotFound("topic %q (%v)", topicName, kind)
	}
	return nil
}

func id(kind Kind, topicName string) string { return regionID(kind, topicName) }
