package shm

import (
	"sync/atomic"
	"time"
	"unsafe"
)

// spinInterval is the sleep between acquisition attempts. Contended waits
// are short in practice (a scan publication holds its lock well under a
// millisecond), so a brief sleep beats parking the thread in the kernel.
const spinInterval = 100 * time.Microsecond

// Semaphore is a named counting semaphore usable across processes. The
// count lives in a 4-byte shared mapping and is manipulated with atomic
// operations, giving POSIX-named-semaphore semantics without cgo.
type Semaphore struct {
	seg   *segment
	value *int32
}

// OpenSemaphore creates (owner) or attaches to (non-owner) the named
// semaphore. The owner sets the initial count; a non-owner attaching before
// the owner has created the object fails.
func OpenSemaphore(name string, owner bool, initial int32) (*Semaphore, error) {
	seg, err := openSegment(name, owner, 4)
	if err != nil {
		return nil, err
	}
	s := &Semaphore{
		seg:   seg,
		value: (*int32)(unsafe.Pointer(&seg.mem[0])),
	}
	if owner {
		atomic.StoreInt32(s.value, initial)
	}
	return s, nil
}

// Acquire decrements the count, blocking while it is zero.
func (s *Semaphore) Acquire() {
	for {
		if s.TryAcquire() {
			return
		}
		time.Sleep(spinInterval)
	}
}

// AcquireTimeout is Acquire with an upper bound on the wait. It reports
// whether the semaphore was acquired.
func (s *Semaphore) AcquireTimeout(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if s.TryAcquire() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(spinInterval)
	}
}

// TryAcquire attempts a single non-blocking decrement.
func (s *Semaphore) TryAcquire() bool {
	for {
		v := atomic.LoadInt32(s.value)
		if v <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt32(s.value, v, v-1) {
			return true
		}
	}
}

// Release increments the count, waking one blocked acquirer.
func (s *Semaphore) Release() {
	atomic.AddInt32(s.value, 1)
}

// SetValue forces the count to v. Only valid while no other process is
// blocked on the semaphore; used by WritePriorityLock.Reset.
func (s *Semaphore) SetValue(v int32) {
	atomic.StoreInt32(s.value, v)
}

// Close releases the mapping; the owner also unlinks the named object.
func (s *Semaphore) Close() error {
	return s.seg.close()
}

// Counter is a named shared int32. WritePriorityLock keeps its reader,
// write-request and consumer counts in Counters so they are visible to every
// process holding the lock.
type Counter struct {
	seg   *segment
	value *int32
}

// OpenCounter creates (owner, zero-initialized) or attaches to the named
// counter.
func OpenCounter(name string, owner bool) (*Counter, error) {
	seg, err := openSegment(name, owner, 4)
	if err != nil {
		return nil, err
	}
	c := &Counter{
		seg:   seg,
		value: (*int32)(unsafe.Pointer(&seg.mem[0])),
	}
	if owner {
		atomic.StoreInt32(c.value, 0)
	}
	return c, nil
}

// Load returns the current value.
func (c *Counter) Load() int32 {
	return atomic.LoadInt32(c.value)
}

// Add adds delta and returns the new value.
func (c *Counter) Add(delta int32) int32 {
	return atomic.AddInt32(c.value, delta)
}

// Store sets the value.
func (c *Counter) Store(v int32) {
	atomic.StoreInt32(c.value, v)
}

// Close releases the mapping; the owner also unlinks the named object.
func (c *Counter) Close() error {
	return c.seg.close()
}
