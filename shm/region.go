// Package shm is the lock-free, bounded shared-memory ring (spec §4.3): a
// fixed-capacity slot array inside a named region, with atomic producer/
// consumer sequence counters and a per-slot stamp used to detect lapping.
//
// Grounded on _examples/other_examples' AlephTX seqlock ring buffer (mmap
// via unix.Mmap, a slot stamp toggled around the write, cache-line
// sized slots) generalized from one hardcoded message struct to any
// trivially-copyable T via Go generics, and extended with the scoped
// loan/publish/abandon contract and the Link consumer-sequence handshake
// that seqlock.go.go does not need (it only ever has one writer feeding
// readers that tolerate torn reads).
package shm

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/horus-robotics/horus/internal/cos"
)

// DefaultDir is the host's shared-memory directory (spec §6 filename
// convention: "horus_topics_<name>" for Hubs, "horus_links_<name>" for
// Links, created under this directory).
const DefaultDir = "/dev/shm"

const (
	stampSize  = 8   // one uint64 stamp per slot
	headerSize = 128 // two cache lines: producer sequence, consumer sequence
)

const magicValue uint64 = 0x686f7275732d7267 // "horus-rg" tag, layout compat check

// regionHeader is the fixed layout at the start of every region file.
// ProducerSeq and ConsumerSeq each get their own cache line to avoid false
// sharing between producer and consumer threads (spec §5 "Hub metrics are
// cache-line isolated ... from the ring header").
type regionHeader struct {
	Magic       uint64
	Capacity    uint64
	SlotStride  uint64
	ProducerSeq uint64
	_           [32]byte
	ConsumerSeq uint64
	_           [56]byte
}

// Region is one process's mapping of a named shared-memory file backing a
// ring. Multiple Regions — in this process or another — may map the same
// file concurrently; all progress between them is via atomics in the
// mapped memory, never a file lock.
type Region struct {
	f        *os.File
	data     []byte
	path     string
	capacity uint64
	stride   uint64
}

// OpenOrCreate maps the region at dir/name, creating and zero-filling it
// if absent. slotSize is sizeof(T) for the Ring that will sit on top.
// created reports whether this call was the one that created the file.
func OpenOrCreate(dir, name string, capacity, slotSize int) (region *Region, created bool, err error) {
	if capacity <= 0 {
		return nil, false, cos.NewConfigError("shm-open", fmt.Errorf("capacity must be positive, got %d", capacity))
	}
	if err := validateName(name); err != nil {
		return nil, false, cos.NewConfigError("shm-open", err)
	}

	stride := uint64(stampSize + slotSize)
	size := int64(headerSize) + int64(stride)*int64(capacity)
	path := filepath.Join(dir, name)

	f, created, err := openOrCreateFile(path, size)
	if err != nil {
		return nil, false, cos.NewConfigError("shm-open", err)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, false, cos.NewConfigError("shm-mmap", err)
	}

	r := &Region{f: f, data: data, path: path, capacity: uint64(capacity), stride: stride}
	if err := r.initOrValidateHeader(created, uint64(capacity), stride); err != nil {
		unix.Munmap(data)
		f.Close()
		return nil, false, err
	}
	return r, created, nil
}

func validateName(name string) error {
	for _, r := range name {
		if r == '/' {
			return fmt.Errorf("shm region name %q must not contain '/'", name)
		}
	}
	if name == "" {
		return fmt.Errorf("shm region name must not be empty")
	}
	return nil
}

func openOrCreateFile(path string, size int64) (f *os.File, created bool, err error) {
	f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	switch {
	case err == nil:
		if terr := f.Truncate(size); terr != nil {
			f.Close()
			os.Remove(path)
			return nil, false, terr
		}
		return f, true, nil
	case os.IsExist(err):
		f, err = os.OpenFile(path, os.O_RDWR, 0o644)
		if err != nil {
			return nil, false, err
		}
		return f, false, nil
	default:
		return nil, false, err
	}
}

func (r *Region) header() *regionHeader {
	return (*regionHeader)(unsafe.Pointer(&r.data[0]))
}

func (r *Region) initOrValidateHeader(created bool, capacity, stride uint64) error {
	h := r.header()
	if created {
		atomic.StoreUint64(&h.Capacity, capacity)
		atomic.StoreUint64(&h.SlotStride, stride)
		atomic.StoreUint64(&h.Magic, magicValue)
		return nil
	}
	// Another attacher created the file; the magic write above is the last
	// field set, so spin briefly until it lands (handles the narrow window
	// between O_CREAT and header init).
	for i := 0; i < 1000 && atomic.LoadUint64(&h.Magic) != magicValue; i++ {
		runtime.Gosched()
	}
	if atomic.LoadUint64(&h.Magic) != magicValue ||
		atomic.LoadUint64(&h.Capacity) != capacity ||
		atomic.LoadUint64(&h.SlotStride) != stride {
		return cos.NewTransportError(r.path, "attach",
			fmt.Errorf("existing region has an incompatible layout (capacity/slot size mismatch)"))
	}
	return nil
}

func (r *Region) slotOffset(idx uint64) uintptr {
	return uintptr(headerSize) + uintptr(idx%r.capacity)*uintptr(r.stride)
}

// Capacity returns the number of slots in the region.
func (r *Region) Capacity() uint64 { return r.capacity }

// Path returns the region's backing file path.
func (r *Region) Path() string { return r.path }

// Close unmaps the region and closes its file descriptor. The backing
// file is left in place; call Unlink to remove it.
func (r *Region) Close() error {
	if err := unix.Munmap(r.data); err != nil {
		r.f.Close()
		return err
	}
	return r.f.Close()
}

// Unlink removes the backing file. Per spec §3 the region outlives the
// processes using it unless the final holder explicitly deletes it;
// callers are responsible for only unlinking once all attachers are done.
func (r *Region) Unlink() error {
	return os.Remove(r.path)
}

// UnlinkPath removes dir/name without mapping it first, for callers (such
// as topic.Registry.Remove) that only hold a name, not an open Region.
func UnlinkPath(dir, name string) error {
	return os.Remove(filepath.Join(dir, name))
}
