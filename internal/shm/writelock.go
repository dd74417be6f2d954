package shm

import (
	"fmt"
	"time"
)

// WritePriorityLock is a cross-process reader/writer lock that favours
// writers: pending write requests block the admission of new readers, so a
// continuous stream of readers cannot starve a writer. Multiple pending
// writers are mutually exclusive but not ordered relative to each other.
//
// The lock also carries a fan-out update notification: consumers register
// once, and each PostUpdate releases the update semaphore once per
// registered consumer, so every consumer's next WaitUpdate unblocks exactly
// once per post.
//
// Algorithm (reader counting): the first reader acquires the write_lock
// semaphore and the last reader releases it; a mutex semaphore serializes
// the counter updates. A writer increments the write-request count, then
// blocks on write_lock for exclusive access.
type WritePriorityLock struct {
	name       string
	owner      bool
	registered bool

	mutex        *Semaphore
	writeLock    *Semaphore
	update       *Semaphore
	registration *Semaphore

	readerCount       *Counter
	writeRequestCount *Counter
	consumerCount     *Counter
}

// Initial semaphore counts. The update semaphore starts drained so the
// first WaitUpdate blocks until a producer posts.
const (
	initMutex        = 1
	initWriteLock    = 1
	initUpdate       = 0
	initRegistration = 1
)

// OpenWritePriorityLock creates (owner) or attaches to the named lock. A
// non-owner attaching before the owner has created the underlying objects
// fails, since the lock state would be uninitialized.
func OpenWritePriorityLock(name string, owner bool) (*WritePriorityLock, error) {
	l := &WritePriorityLock{name: name, owner: owner}

	var err error
	open := func(suffix string, initial int32) *Semaphore {
		if err != nil {
			return nil
		}
		var s *Semaphore
		s, err = OpenSemaphore(name+suffix, owner, initial)
		return s
	}
	openCounter := func(suffix string) *Counter {
		if err != nil {
			return nil
		}
		var c *Counter
		c, err = OpenCounter(name+suffix, owner)
		return c
	}

	l.mutex = open("_mutex", initMutex)
	l.writeLock = open("_write_lock", initWriteLock)
	l.update = open("_update", initUpdate)
	l.registration = open("_registration", initRegistration)
	l.readerCount = openCounter("_reader_count")
	l.writeRequestCount = openCounter("_write_request")
	l.consumerCount = openCounter("_consumer_count")
	if err != nil {
		l.Close()
		return nil, fmt.Errorf("shm: failed to open write priority lock %q: %w", name, err)
	}
	return l, nil
}

// Name returns the logical lock name.
func (l *WritePriorityLock) Name() string {
	return l.name
}

// StartReading acquires shared read access. Admission is deferred while any
// writer is pending, which is what gives writers priority.
func (l *WritePriorityLock) StartReading() {
	l.mutex.Acquire()
	for l.writeRequestCount.Load() > 0 {
		l.mutex.Release()
		time.Sleep(spinInterval)
		l.mutex.Acquire()
	}
	if l.readerCount.Add(1) == 1 {
		l.writeLock.Acquire() // first reader locks out writers
	}
	l.mutex.Release()
}

// FinishReading releases shared read access.
func (l *WritePriorityLock) FinishReading() {
	l.mutex.Acquire()
	if l.readerCount.Add(-1) == 0 {
		l.writeLock.Release() // last reader unblocks writers
	}
	l.mutex.Release()
}

// StartWriting acquires exclusive write access, preempting incoming readers.
func (l *WritePriorityLock) StartWriting() {
	l.mutex.Acquire()
	l.writeRequestCount.Add(1)
	l.mutex.Release()

	l.writeLock.Acquire()
}

// FinishWriting releases exclusive write access.
func (l *WritePriorityLock) FinishWriting() {
	l.mutex.Acquire()
	l.writeRequestCount.Add(-1)
	l.mutex.Release()

	l.writeLock.Release()
}

// RegisterConsumer adds this process to the set of update consumers. Each
// subsequent PostUpdate will make one WaitUpdate return for it.
func (l *WritePriorityLock) RegisterConsumer() {
	if l.registered {
		return
	}
	l.registered = true
	l.registration.Acquire()
	l.consumerCount.Add(1)
	l.registration.Release()
}

// PostUpdate wakes every registered consumer once.
func (l *WritePriorityLock) PostUpdate() {
	n := l.consumerCount.Load()
	for i := int32(0); i < n; i++ {
		l.update.Release()
	}
}

// WaitUpdate blocks until a producer posts an update.
func (l *WritePriorityLock) WaitUpdate() {
	l.update.Acquire()
}

// WaitUpdateTimeout blocks until an update is posted or the timeout
// elapses. It reports whether an update was consumed. Loops that must also
// observe a cancellation flag use this instead of WaitUpdate so the flag is
// itself a wakeable condition.
func (l *WritePriorityLock) WaitUpdateTimeout(timeout time.Duration) bool {
	return l.update.AcquireTimeout(timeout)
}

// Reset reinitializes all counters and semaphores to their initial state,
// for a process restart that reuses the named objects. It must only be
// called while no other process holds the lock.
func (l *WritePriorityLock) Reset() {
	l.mutex.SetValue(initMutex)
	l.writeLock.SetValue(initWriteLock)
	l.update.SetValue(initUpdate)
	l.registration.SetValue(initRegistration)
	l.readerCount.Store(0)
	l.writeRequestCount.Store(0)
	l.consumerCount.Store(0)
	l.registered = false
}

// Close deregisters this process if it registered as a consumer, then
// releases all named objects (the owner unlinks them).
func (l *WritePriorityLock) Close() error {
	if l.registered && l.registration != nil && l.consumerCount != nil {
		l.registration.Acquire()
		l.consumerCount.Add(-1)
		l.registration.Release()
		l.registered = false
	}

	var firstErr error
	closeSem := func(s *Semaphore) {
		if s == nil {
			return
		}
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	closeCounter := func(c *Counter) {
		if c == nil {
			return
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	closeCounter(l.consumerCount)
	closeCounter(l.writeRequestCount)
	closeCounter(l.readerCount)
	closeSem(l.registration)
	closeSem(l.update)
	closeSem(l.writeLock)
	closeSem(l.mutex)
	return firstErr
}
