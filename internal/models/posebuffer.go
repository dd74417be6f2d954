package models

import "fmt"

// PoseBuffer is a bounded ring of recent robot poses. Producers push the
// newest pose; consumers address history most-recent-first, so Get(0) is the
// latest pose and Get(n) the pose n samples ago. Downstream readers use the
// history index to pick a pose matching the latency of a sensor read.
type PoseBuffer struct {
	data *PoseBufferData
}

// NewOwnedPoseBuffer returns a PoseBuffer backed by process-local storage.
func NewOwnedPoseBuffer() *PoseBuffer {
	return &PoseBuffer{data: &PoseBufferData{}}
}

// NewBorrowedPoseBuffer returns a PoseBuffer operating on an existing
// record, typically the pose history field of the shared region.
func NewBorrowedPoseBuffer(data *PoseBufferData) *PoseBuffer {
	return &PoseBuffer{data: data}
}

// Size returns the number of retained poses.
func (b *PoseBuffer) Size() int {
	if b.data.Full != 0 {
		return PoseBufferCapacity
	}
	head, tail := int(b.data.Head), int(b.data.Tail)
	if head >= tail {
		return head - tail
	}
	return PoseBufferCapacity + head - tail
}

// Push appends the newest pose, evicting the oldest when full.
func (b *PoseBuffer) Push(p Pose) {
	b.data.Poses[b.data.Head].Set(p)
	b.data.Head = (b.data.Head + 1) % PoseBufferCapacity
	if b.data.Full != 0 {
		b.data.Tail = (b.data.Tail + 1) % PoseBufferCapacity
	}
	if b.data.Head == b.data.Tail {
		b.data.Full = 1
	}
}

// Get returns the pose index samples before the most recent one. Get(0) is
// the latest pose. Requesting history beyond the retained size is an error.
func (b *PoseBuffer) Get(index int) (Pose, error) {
	size := b.Size()
	if size == 0 {
		return Pose{}, fmt.Errorf("models: pose buffer is empty")
	}
	if index < 0 || index >= size {
		return Pose{}, fmt.Errorf("models: pose history index %d out of range [0, %d)", index, size)
	}
	slot := (int(b.data.Head) - 1 - index + 2*PoseBufferCapacity) % PoseBufferCapacity
	return b.data.Poses[slot].Pose(), nil
}

// Latest returns the most recent pose, or the zero pose when empty.
func (b *PoseBuffer) Latest() Pose {
	p, err := b.Get(0)
	if err != nil {
		return Pose{}
	}
	return p
}

// Reset empties the buffer.
func (b *PoseBuffer) Reset() {
	b.data.Head = 0
	b.data.Tail = 0
	b.data.Full = 0
}
